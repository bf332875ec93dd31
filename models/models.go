package models

import (
	"errors"
	"strings"
)

var (
	ErrNoTowns      = errors.New("no towns provided")
	ErrNoIndustries = errors.New("no industries provided")
	ErrBadBound     = errors.New("parallelism bounds must be positive")
)

// ScrapeConfig describes one run over the towns x industries matrix.
// It is immutable once a run starts.
type ScrapeConfig struct {
	Towns                  []string `json:"towns"`
	Industries             []string `json:"industries"`
	SimultaneousTowns      int      `json:"simultaneous_towns"`
	SimultaneousIndustries int      `json:"simultaneous_industries"`
	SimultaneousLookups    int      `json:"simultaneous_lookups"`
}

func (c *ScrapeConfig) Validate() error {
	if len(c.Towns) == 0 {
		return ErrNoTowns
	}

	if len(c.Industries) == 0 {
		return ErrNoIndustries
	}

	if c.SimultaneousTowns < 1 || c.SimultaneousIndustries < 1 || c.SimultaneousLookups < 1 {
		return ErrBadBound
	}

	for i := range c.Towns {
		if strings.TrimSpace(c.Towns[i]) == "" {
			return ErrNoTowns
		}
	}

	for i := range c.Industries {
		if strings.TrimSpace(c.Industries[i]) == "" {
			return ErrNoIndustries
		}
	}

	return nil
}

// Business is one normalized scrape result. Optional fields are empty
// strings, never absent. Instances are not mutated after creation except
// for the provider enrichment pass, which runs after all towns finish.
type Business struct {
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Provider       string `json:"provider"`
	Address        string `json:"address"`
	MapsAddress    string `json:"maps_address"`
	TypeOfBusiness string `json:"type_of_business"`
	Town           string `json:"town"`
}

// Progress is a snapshot of a run. CompletedTowns never exceeds
// TotalTowns and Percentage is monotonically non-decreasing across
// snapshots of the same run.
type Progress struct {
	TotalTowns          int     `json:"total_towns"`
	CompletedTowns      int     `json:"completed_towns"`
	TotalIndustries     int     `json:"total_industries"`
	CompletedIndustries int     `json:"completed_industries"`
	Percentage          float64 `json:"percentage"`
	TownsRemaining      int     `json:"towns_remaining"`
}
