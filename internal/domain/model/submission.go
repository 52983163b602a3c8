package model

import "time"

// FileReference points at an object in external storage. An empty Key means the upload never
// reported a storage key and the file cannot be downloaded.
type FileReference struct {
	Name string `json:"name" validate:"required,max=255"`
	Type string `json:"type" validate:"required,max=255"`
	Size int64  `json:"size" validate:"gte=0"`
	Key  string `json:"key,omitempty" validate:"omitempty,max=1024,objectkey"`
}

func (f FileReference) Downloadable() bool {
	return f.Key != ""
}

type Submission struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	Votes             int             `json:"votes"`
	FileReferences    []FileReference `json:"file_references"`
	UserID            string          `json:"user_id"`
	SubmissionGroupID *string         `json:"submission_group_id,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	UserUsername      *string         `json:"user_username,omitempty"` // For display
}

// FileKeys returns the storage keys of all downloadable references.
func (s *Submission) FileKeys() []string {
	var keys []string
	for _, f := range s.FileReferences {
		if f.Downloadable() {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// SubmissionPatch carries the fields of an update; nil means "leave unchanged".
type SubmissionPatch struct {
	Title          *string          `json:"title,omitempty"`
	Description    *string          `json:"description,omitempty"`
	FileReferences *[]FileReference `json:"file_references,omitempty"`
}
