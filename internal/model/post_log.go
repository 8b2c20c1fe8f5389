package model

import "github.com/jackc/pgx/v5/pgtype"

type PostLog struct {
	ID         int64            `json:"id"`
	PostID     int64            `json:"post_id"`
	LastPosted pgtype.Timestamp `json:"last_posted"`
}
