package project

import "time"

// Project is a top-level named collection of parts (e.g. a garment).
// The id is immutable once created; name lookups are accent/case-insensitive.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Parts     []Part    `json:"parts"`
}

// Part is a trackable component of a project with its own row counter.
// CurrentRow always equals the row number of the most recent history entry,
// or 0 when the history is empty.
type Part struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	CurrentRow  int        `json:"current_row"`
	RepeatEvery *int       `json:"repeat_every,omitempty"`
	History     []RowEntry `json:"history"`
	CreatedAt   time.Time  `json:"created_at"`
}

// RowEntry is one append-only history record. Entries are never mutated or
// removed except by deleting the whole part.
type RowEntry struct {
	RowNumber int       `json:"row_number"`
	Timestamp time.Time `json:"timestamp"`
}

// ProjectSummary is a lightweight representation for listing.
type ProjectSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	PartCount int       `json:"part_count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FindPartByID returns the part with the given id, or nil.
func (p *Project) FindPartByID(id string) *Part {
	for i := range p.Parts {
		if p.Parts[i].ID == id {
			return &p.Parts[i]
		}
	}
	return nil
}
