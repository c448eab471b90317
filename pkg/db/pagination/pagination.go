package pagination

import (
	"encoding/base64"
	"encoding/json"

	"gorm.io/gorm"
)

type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size,default=20" validate:"gte=1,lte=250"`
}

type Cursor struct {
	ID        string `json:"id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, err
	}
	return &cursor, nil
}

func (p Pagination) Limit() int {
	if p.PageSize <= 0 {
		return 20
	}
	if p.PageSize > 250 {
		return 250
	}
	return p.PageSize
}

// Apply constrains a list query to the cursor window. Callers order by
// created_at desc, id desc.
func (p Pagination) Apply(stmt *gorm.DB) *gorm.DB {
	if p.PageToken != "" {
		if cursor, err := DecodeCursor(p.PageToken); err == nil && cursor.CreatedAt != "" {
			stmt = stmt.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
		}
	}
	// Fetch one extra row to detect a following page.
	return stmt.Limit(p.Limit() + 1)
}
