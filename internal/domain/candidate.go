// Package domain holds the record types that flow through an event sync cycle.
package domain

import "time"

// RawCandidate is an unvalidated listing as extracted from one source for one city.
type RawCandidate struct {
	Title            string
	Description      string
	ShortDescription string
	Category         string
	City             string
	Venue            string
	Address          string
	// Date is only meaningful when DateKnown is true.
	Date      time.Time
	DateKnown bool
	Time      string
	ImageURL  string
	PriceMin  float64
	PriceMax  float64
	IsFree    bool
	URL       string
	Source    string
	SourceID  string
	// FromAPI marks records that came from a structured API rather than a rendered page.
	FromAPI bool
}

// Content returns title and description joined for keyword scanning.
func (c *RawCandidate) Content() string {
	return c.Title + " " + c.Description
}
