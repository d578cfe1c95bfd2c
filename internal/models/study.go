package models

import "time"

// Study represents a research paper under appraisal within a project.
// FirstReviewer and SecondReviewer are the double-coding assignment; each
// reviewer fills in their own checklist independently.
type Study struct {
	ID             string
	ProjectID      string
	Title          string
	Authors        string
	Year           int
	Design         string // e.g. "randomized controlled trial", "cohort"
	DOI            string
	FirstReviewer  string
	SecondReviewer string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
