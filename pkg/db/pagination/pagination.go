// Package pagination implements cursor paging for list endpoints.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

// Cursor identifies the last row of a page.
type Cursor struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
}

// PageInfo is embedded in list responses.
type PageInfo struct {
	NextPageToken string `json:"next_page_token,omitempty"`
	HasMore       bool   `json:"has_more"`
}

// EncodeCursor serializes a cursor into an opaque page token.
func EncodeCursor(cursor Cursor) (string, error) {
	raw, err := json.Marshal(cursor)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeCursor parses a page token produced by EncodeCursor.
func DecodeCursor(token string) (Cursor, error) {
	var cursor Cursor
	token = strings.TrimSpace(token)
	if token == "" {
		return cursor, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return cursor, err
	}
	if err := json.Unmarshal(raw, &cursor); err != nil {
		return cursor, err
	}
	return cursor, nil
}

// BuildCursorPageInfo derives page info from a result slice fetched with
// pageSize+1 rows. tokenFor renders the cursor for the last visible row.
func BuildCursorPageInfo[T any](items []*T, pageSize int32, tokenFor func(*T) string) *PageInfo {
	if pageSize <= 0 || len(items) <= int(pageSize) {
		return &PageInfo{}
	}
	last := items[pageSize-1]
	return &PageInfo{
		NextPageToken: tokenFor(last),
		HasMore:       true,
	}
}
