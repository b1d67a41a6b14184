package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tonimelisma/onedrive-index/internal/remotepath"
)

// listChildrenPageSize is the $top value for ListChildren requests.
// 200 is the maximum allowed by the Graph API for drive item collections.
const listChildrenPageSize = 200

// driveRootPath is the path-addressing anchor for the signed-in user's drive.
const driveRootPath = "/me/drive/root"

// Timestamp validation bounds: timestamps outside this range are replaced
// with the current time and a warning is logged.
const (
	minValidYear = 1970
	maxValidYear = 2100
)

// driveItemResponse mirrors the Graph API driveItem JSON exactly.
// Unexported: callers use Item via toItem() normalization.
type driveItemResponse struct {
	ID                   string           `json:"id"`
	Name                 string           `json:"name"`
	Size                 int64            `json:"size"`
	ETag                 string           `json:"eTag"`
	CreatedDateTime      string           `json:"createdDateTime"`
	LastModifiedDateTime string           `json:"lastModifiedDateTime"`
	ParentReference      *parentRef       `json:"parentReference"`
	File                 *fileFacet       `json:"file"`
	Folder               *folderFacet     `json:"folder"`
	Deleted              *json.RawMessage `json:"deleted"`
	DownloadURL          string           `json:"@microsoft.graph.downloadUrl"` //nolint:tagliatelle // Graph API annotation key
}

type parentRef struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

type fileFacet struct {
	MimeType string `json:"mimeType"`
}

type folderFacet struct {
	ChildCount int `json:"childCount"`
}

// toItem normalizes a Graph API driveItem response into our Item type.
func (d *driveItemResponse) toItem(logger *slog.Logger) Item {
	item := Item{
		ID:          d.ID,
		Name:        d.Name,
		Size:        d.Size,
		ETag:        d.ETag,
		IsFolder:    d.Folder != nil,
		IsDeleted:   d.Deleted != nil,
		ChildCount:  ChildCountUnknown,
		DownloadURL: d.DownloadURL,
	}

	if d.ParentReference != nil {
		item.ParentPath = d.ParentReference.Path
	}

	if d.Folder != nil {
		item.ChildCount = d.Folder.ChildCount
	}

	if d.File != nil {
		item.MimeType = d.File.MimeType
	}

	// Deleted items in delta responses carry no timestamps.
	if !item.IsDeleted {
		item.CreatedAt = parseTimestamp(d.CreatedDateTime, "createdDateTime", d.ID, logger)
		item.ModifiedAt = parseTimestamp(d.LastModifiedDateTime, "lastModifiedDateTime", d.ID, logger)
	}

	return item
}

// parseTimestamp parses an RFC3339 timestamp and validates the year range.
// Invalid or out-of-range timestamps are replaced with time.Now().UTC() and logged.
func parseTimestamp(raw, field, itemID string, logger *slog.Logger) time.Time {
	if raw == "" {
		logger.Warn("empty timestamp, using current time",
			slog.String("field", field),
			slog.String("item_id", itemID),
		)

		return time.Now().UTC()
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		logger.Warn("invalid timestamp, using current time",
			slog.String("field", field),
			slog.String("item_id", itemID),
			slog.String("raw", raw),
			slog.String("error", err.Error()),
		)

		return time.Now().UTC()
	}

	if t.Year() < minValidYear || t.Year() > maxValidYear {
		logger.Warn("timestamp out of valid range, using current time",
			slog.String("field", field),
			slog.String("item_id", itemID),
			slog.String("raw", raw),
		)

		return time.Now().UTC()
	}

	return t
}

// decodeItems converts a driveItem response (single or collection) into Items.
func (c *Client) decodeItems(resp *Response) ([]Item, error) {
	objs, err := Decode(resp, JSONConstructor[driveItemResponse]())
	if err != nil {
		return nil, fmt.Errorf("graph: decoding drive items: %w", err)
	}

	items := make([]Item, 0, len(objs.Items))
	for i := range objs.Items {
		items = append(items, objs.Items[i].toItem(c.logger))
	}

	return items, nil
}

// GetItem retrieves the drive item at the given user-facing path
// ("/", "/docs/a.txt"). The path is normalized before use.
func (c *Client) GetItem(ctx context.Context, path string) (*Item, error) {
	c.logger.Info("getting item by path", slog.String("path", path))

	resp, err := c.Get(ctx, driveRootPath+remotepath.RequestPath(path, true, true))
	if err != nil {
		return nil, err
	}

	objs, err := Decode(resp, JSONConstructor[driveItemResponse]())
	if err != nil {
		return nil, fmt.Errorf("graph: decoding item response: %w", err)
	}

	dir, ok := objs.Single()
	if !ok {
		return nil, fmt.Errorf("graph: item request for %q returned a collection", path)
	}

	item := dir.toItem(c.logger)

	return &item, nil
}

// ListChildren returns all children of the folder at the given user-facing
// path, following @odata.nextLink until the collection is exhausted.
func (c *Client) ListChildren(ctx context.Context, path string) ([]Item, error) {
	c.logger.Info("listing children", slog.String("path", path))

	next := fmt.Sprintf("%s%schildren?$top=%d",
		driveRootPath, remotepath.RequestPath(path, true, false), listChildrenPageSize)

	var items []Item

	for page := 1; next != ""; page++ {
		resp, err := c.Get(ctx, next)
		if err != nil {
			return nil, err
		}

		pageItems, err := c.decodeItems(resp)
		if err != nil {
			return nil, err
		}

		items = append(items, pageItems...)

		c.logger.Debug("fetched children page",
			slog.Int("page", page),
			slog.Int("count", len(pageItems)),
			slog.Int64("reported_total", resp.Count()),
		)

		next, _ = resp.NextLink()
	}

	c.logger.Info("listed children complete",
		slog.String("path", path),
		slog.Int("total_items", len(items)),
	)

	return items, nil
}
