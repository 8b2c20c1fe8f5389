package model

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
)

type Post struct {
	ID           int64            `json:"id"`
	Content      string           `json:"content"`
	Sensitive    bool             `json:"sensitive"`
	SpoilerText  *string          `json:"spoiler_text,omitempty"`
	Visibility   Visibility       `json:"visibility"`
	CronSchedule string           `json:"cron_schedule"`
	NextRun      pgtype.Timestamp `json:"next_run"`
	Published    bool             `json:"published"`
	BotTokenID   *int64           `json:"bot_token_id,omitempty"`
	MediaPath    *string          `json:"media_path,omitempty"`
	CreatedAt    pgtype.Timestamp `json:"created_at"`
}

type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPrivate  Visibility = "private"
	VisibilityDirect   Visibility = "direct"
)

func (v Visibility) IsValid() error {
	switch v {
	case VisibilityPublic, VisibilityUnlisted, VisibilityPrivate, VisibilityDirect:
		return nil
	}
	return fmt.Errorf("invalid visibility: %s", v)
}

func (v *Visibility) UnmarshalText(text []byte) error {
	vis := Visibility(text)
	if err := vis.IsValid(); err != nil {
		return err
	}
	*v = vis
	return nil
}
