package model

import "time"

type Vote struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	SubmissionID string    `json:"submission_id"`
	IsUpvote     bool      `json:"is_upvote"`
	IsDownvote   bool      `json:"is_downvote"`
	CreatedAt    time.Time `json:"created_at"`
	UserUsername *string   `json:"user_username,omitempty"`
}
