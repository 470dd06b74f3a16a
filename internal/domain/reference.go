package domain

// ReferenceCity is a known city loaded once per cycle.
type ReferenceCity struct {
	ID       string `db:"id"`
	Name     string `db:"name"`
	Slug     string `db:"slug"`
	State    string `db:"state"`
	IsActive bool   `db:"is_active"`
}

// ReferenceCategory is a known category loaded once per cycle.
type ReferenceCategory struct {
	ID   string `db:"id"`
	Name string `db:"name"`
	Slug string `db:"slug"`
}

// ReferenceData is the read-only snapshot a cycle works against.
type ReferenceData struct {
	Cities     []ReferenceCity
	Categories []ReferenceCategory
}
