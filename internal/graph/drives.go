package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// userResponse mirrors the Graph API /me JSON response.
// Unexported: callers use User via toUser() normalization.
type userResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Mail        string `json:"mail"`
	// UPN is a fallback when mail is empty (common on Personal accounts
	// where the mail field is often blank).
	UPN string `json:"userPrincipalName"`
}

// toUser normalizes a Graph API user response into our User type.
func (u *userResponse) toUser() User {
	email := u.Mail
	if email == "" {
		email = u.UPN
	}

	return User{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Email:       email,
	}
}

// driveResponse mirrors the Graph API drive JSON response.
// Unexported: callers use Drive via toDrive() normalization.
type driveResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	DriveType string      `json:"driveType"`
	Owner     *ownerFacet `json:"owner"`
	Quota     *quotaFacet `json:"quota"`
}

// ownerFacet represents the owner block in a Graph API drive response.
type ownerFacet struct {
	User struct {
		DisplayName string `json:"displayName"`
		Email       string `json:"email"`
	} `json:"user"`
}

// quotaFacet represents the quota block in a Graph API drive response.
type quotaFacet struct {
	Used  int64 `json:"used"`
	Total int64 `json:"total"`
}

// toDrive normalizes a Graph API drive response into our Drive type.
// Nil-safe for optional owner and quota facets.
func (d *driveResponse) toDrive() Drive {
	drive := Drive{
		ID:        d.ID,
		Name:      d.Name,
		DriveType: d.DriveType,
	}

	if d.Owner != nil {
		drive.OwnerName = d.Owner.User.DisplayName
		drive.OwnerEmail = d.Owner.User.Email
	}

	if d.Quota != nil {
		drive.QuotaUsed = d.Quota.Used
		drive.QuotaTotal = d.Quota.Total
	}

	return drive
}

// DriveFromData normalizes a drive payload previously returned in a Result
// (for example one stored on an account record).
func DriveFromData(data map[string]any) (Drive, error) {
	dr, err := JSONConstructor[driveResponse]()(data)
	if err != nil {
		return Drive{}, fmt.Errorf("graph: decoding drive data: %w", err)
	}

	return dr.toDrive(), nil
}

// Me returns the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (*User, error) {
	c.logger.Info("fetching authenticated user profile")

	resp, err := c.Get(ctx, "/me")
	if err != nil {
		return nil, err
	}

	objs, err := Decode(resp, JSONConstructor[userResponse]())
	if err != nil {
		return nil, fmt.Errorf("graph: decoding user response: %w", err)
	}

	ur, ok := objs.Single()
	if !ok {
		return nil, fmt.Errorf("graph: /me returned a collection")
	}

	user := ur.toUser()

	c.logger.Debug("fetched user profile",
		slog.String("id", user.ID),
		slog.String("display_name", user.DisplayName),
	)

	return &user, nil
}

// Drives returns all drives accessible to the authenticated user.
func (c *Client) Drives(ctx context.Context) ([]Drive, error) {
	c.logger.Info("listing accessible drives")

	resp, err := c.Get(ctx, "/me/drives")
	if err != nil {
		return nil, err
	}

	objs, err := Decode(resp, JSONConstructor[driveResponse]())
	if err != nil {
		return nil, fmt.Errorf("graph: decoding drives response: %w", err)
	}

	drives := make([]Drive, 0, len(objs.Items))
	for i := range objs.Items {
		drives = append(drives, objs.Items[i].toDrive())
	}

	c.logger.Info("listed drives",
		slog.Int("count", len(drives)),
	)

	return drives, nil
}

// DriveInfo fetches the default drive (GET /me/drive) as a Result. The
// payload carries owner.user.email and the quota facet.
func (c *Client) DriveInfo(ctx context.Context) Result {
	c.logger.Info("fetching drive info")

	return c.result(c.Get(ctx, "/me/drive"))
}

// AccountInfo fetches the basic profile (GET /me) as a Result. The payload
// carries userPrincipalName.
func (c *Client) AccountInfo(ctx context.Context) Result {
	c.logger.Info("fetching basic account info")

	return c.result(c.Get(ctx, "/me"))
}

// result folds a Get outcome into the {errno, data} envelope.
func (c *Client) result(resp *Response, err error) Result {
	if err == nil {
		return Result{Data: resp.Body()}
	}

	var ge *GraphError
	if errors.As(err, &ge) {
		res := Result{Errno: ge.StatusCode, Message: ge.Message, Data: map[string]any{}}

		if ge.Response != nil {
			res.Data = ge.Response.Body()

			if eo := ge.Response.ErrorObject(); eo != nil && eo.Raw != nil {
				res.Data = eo.Raw
			}
		}

		c.logger.Warn("graph call failed",
			slog.Int("status", ge.StatusCode),
			slog.String("code", ge.Code),
			slog.String("request_id", ge.RequestID),
		)

		return res
	}

	c.logger.Warn("graph call failed without response", slog.String("error", err.Error()))

	return Result{Errno: ErrnoTransport, Message: err.Error(), Data: map[string]any{}}
}
