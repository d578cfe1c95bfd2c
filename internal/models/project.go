package models

import "time"

// Project represents a systematic-review project that groups the studies
// under appraisal.
type Project struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
