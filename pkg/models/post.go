package models

import "time"

// Post is an addressable piece of content on the social platform.
type Post struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	AuthorID  string    `json:"author_id,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}
