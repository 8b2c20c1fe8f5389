package model

type BotToken struct {
	ID          int64   `json:"id"`
	Token       string  `json:"-"`
	Description *string `json:"description,omitempty"`
}
