package models

import (
	"errors"
	"time"
)

// Report is a rendered analysis run kept in the report archive.
type Report struct {
	ID         string           `json:"id"`
	CreatedAt  time.Time        `json:"created_at"`
	Summary    InventorySummary `json:"inventory_summary"`
	TrendCount int              `json:"trend_count"`
	TopKeyword string           `json:"top_keyword,omitempty"`
	Synthetic  bool             `json:"synthetic"`
	HTML       string           `json:"-"`
}

// Validate checks report field constraints.
func (r *Report) Validate() error {
	if r.ID == "" {
		return errors.New("report ID must not be empty")
	}
	if r.CreatedAt.IsZero() {
		return errors.New("report creation time must be set")
	}
	if r.HTML == "" {
		return errors.New("report body must not be empty")
	}
	if r.TrendCount < 0 {
		return errors.New("trend count must not be negative")
	}
	return nil
}
