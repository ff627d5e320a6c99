package domain

import "time"

type Post struct {
	ID        int64     `json:"post_id"`
	UserID    int64     `json:"user_id"`
	CircleID  *int64    `json:"circle_id,omitempty"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	MediaURL  string    `json:"media_url,omitempty"`
	Views     int64     `json:"views"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
