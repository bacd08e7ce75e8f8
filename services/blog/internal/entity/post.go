package entity

import "time"

type Post struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	AuthorID  string    `json:"author_id"`
	Author    *Author   `json:"author,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Author is the public part of a User shown next to a post.
type Author struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}
