package model

import "github.com/jackc/pgx/v5/pgtype"

type List struct {
	ID        int64            `json:"id"`
	Title     string           `json:"title"`
	CreatedAt pgtype.Timestamp `json:"created_at"`
	UpdatedAt pgtype.Timestamp `json:"updated_at"`
}

// ItemID is caller-chosen and unique within a list, so list_static
// commands can address items by a stable handle independent of the row id.
type ListItem struct {
	ID           int64            `json:"id"`
	ListID       int64            `json:"list_id"`
	ItemID       int64            `json:"item_id"`
	Content      string           `json:"content"`
	DateAdded    pgtype.Timestamp `json:"date_added"`
	DateLastUsed pgtype.Timestamp `json:"date_last_used"`
}
