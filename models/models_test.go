package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadscout/leadscout/models"
)

func validConfig() models.ScrapeConfig {
	return models.ScrapeConfig{
		Towns:                  []string{"Knysna", "George"},
		Industries:             []string{"plumber"},
		SimultaneousTowns:      2,
		SimultaneousIndustries: 1,
		SimultaneousLookups:    1,
	}
}

func TestScrapeConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.ScrapeConfig)
		wantErr error
	}{
		{
			name:   "valid",
			mutate: func(*models.ScrapeConfig) {},
		},
		{
			name:    "no towns",
			mutate:  func(c *models.ScrapeConfig) { c.Towns = nil },
			wantErr: models.ErrNoTowns,
		},
		{
			name:    "blank town",
			mutate:  func(c *models.ScrapeConfig) { c.Towns = []string{"Knysna", "   "} },
			wantErr: models.ErrNoTowns,
		},
		{
			name:    "no industries",
			mutate:  func(c *models.ScrapeConfig) { c.Industries = nil },
			wantErr: models.ErrNoIndustries,
		},
		{
			name:    "blank industry",
			mutate:  func(c *models.ScrapeConfig) { c.Industries = []string{"plumber", "\t"} },
			wantErr: models.ErrNoIndustries,
		},
		{
			name:    "zero towns bound",
			mutate:  func(c *models.ScrapeConfig) { c.SimultaneousTowns = 0 },
			wantErr: models.ErrBadBound,
		},
		{
			name:    "negative lookups bound",
			mutate:  func(c *models.ScrapeConfig) { c.SimultaneousLookups = -1 },
			wantErr: models.ErrBadBound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()

			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}

			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
