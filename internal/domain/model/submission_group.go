package model

import "time"

type SubmissionGroup struct {
	ID                  string       `json:"id"`
	Title               string       `json:"title"`
	Slug                string       `json:"slug"`
	Description         string       `json:"description"`
	CreatedBy           *string      `json:"created_by,omitempty"`
	IsCompleted         bool         `json:"is_completed"`
	IsJudged            bool         `json:"is_judged"`
	WinningSubmissionID *string      `json:"winning_submission_id,omitempty"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
	Submissions         []Submission `json:"submissions"`
}

type SubmissionGroupPatch struct {
	Title               *string `json:"title,omitempty"`
	Description         *string `json:"description,omitempty"`
	IsCompleted         *bool   `json:"is_completed,omitempty"`
	IsJudged            *bool   `json:"is_judged,omitempty"`
	WinningSubmissionID *string `json:"winning_submission_id,omitempty"`
}

type SubmissionGroupFilter struct {
	Completed *bool
	Judged    *bool
}
