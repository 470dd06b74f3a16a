package domain

import "time"

// CityReport holds the counts for one city in one cycle.
type CityReport struct {
	City     string         `json:"city"`
	Fetched  int            `json:"fetched"`
	Inserted int            `json:"inserted"`
	Updated  int            `json:"updated"`
	Skipped  int            `json:"skipped"`
	Failed   int            `json:"failed"`
	Sources  map[string]int `json:"sources"`
	Error    string         `json:"error,omitempty"`
}

// Saved is the number of records written, inserted or updated.
func (r *CityReport) Saved() int {
	return r.Inserted + r.Updated
}

// SyncReport is the externally observable outcome of a cycle.
type SyncReport struct {
	CycleID    string       `json:"cycle_id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Cities     []CityReport `json:"cities"`
	Error      string       `json:"error,omitempty"`
}

// Totals sums saved and skipped counts over all cities.
func (r *SyncReport) Totals() (saved, skipped int) {
	for i := range r.Cities {
		saved += r.Cities[i].Saved()
		skipped += r.Cities[i].Skipped + r.Cities[i].Failed
	}
	return saved, skipped
}
