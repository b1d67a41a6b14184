package graph

import (
	"context"
	"log/slog"
	"strings"
)

// deltaHTTPPrefix is the scheme prefix used to detect full URL tokens
// returned by the Graph API delta endpoint.
const deltaHTTPPrefix = "http"

// Delta fetches one page of the drive's change feed.
// Pass an empty token for the initial enumeration. For subsequent calls, pass
// the DeltaLink or NextLink value from the previous DeltaPage.
// HTTP 410 (Gone) means the token has expired: returns ErrGone.
func (c *Client) Delta(ctx context.Context, token string) (*DeltaPage, error) {
	path := driveRootPath + "/delta"
	if strings.HasPrefix(token, deltaHTTPPrefix) {
		path = token
	}

	c.logger.Info("fetching delta page", slog.Bool("initial_sync", token == ""))

	resp, err := c.Get(ctx, path)
	if err != nil {
		return nil, err
	}

	items, err := c.decodeItems(resp)
	if err != nil {
		return nil, err
	}

	next, _ := resp.NextLink()
	delta, _ := resp.DeltaLink()

	c.logger.Debug("fetched delta page",
		slog.Int("count", len(items)),
		slog.Bool("has_next_link", next != ""),
		slog.Bool("has_delta_link", delta != ""),
	)

	return &DeltaPage{Items: items, NextLink: next, DeltaLink: delta}, nil
}

// DeltaAll fetches all pages of the change feed and returns the combined
// items and the delta link for the next cycle.
func (c *Client) DeltaAll(ctx context.Context, token string) ([]Item, string, error) {
	var allItems []Item

	currentToken := token
	page := 1

	for {
		dp, err := c.Delta(ctx, currentToken)
		if err != nil {
			return nil, "", err
		}

		allItems = append(allItems, dp.Items...)

		// DeltaLink means we have consumed all pages: done.
		if dp.DeltaLink != "" {
			c.logger.Info("full delta enumeration complete",
				slog.Int("total_items", len(allItems)),
				slog.Int("pages", page),
			)

			return allItems, dp.DeltaLink, nil
		}

		// NextLink means more pages: continue with the next page URL as token.
		if dp.NextLink != "" {
			currentToken = dp.NextLink
			page++

			continue
		}

		// Neither link present: unexpected, but treat as complete with empty token.
		c.logger.Warn("delta response has neither nextLink nor deltaLink",
			slog.Int("page", page),
		)

		return allItems, "", nil
	}
}
