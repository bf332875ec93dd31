package scraper_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leadscout/leadscout/scraper"
)

func TestLooksLikeOpeningHours(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"Open 24 hours", true},
		{"Closed ⋅ Opens 8:00", true},
		{"08:00 - 17:00", true},
		{"Mon-Fri 9:00", true},
		{"Open Monday to Friday", true},
		{"24/7", true},
		{"Joe's Plumbing", false},
		{"Sunday's Bakery", false},
		{"The Open Door Gallery", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, scraper.LooksLikeOpeningHours(tt.in))
		})
	}
}

func TestLooksLikeRating(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"4.5", true},
		{"4.5 (120)", true},
		{"5 stars", true},
		{"★★★★", true},
		{"3", true},
		{"Studio 54", false},
		{"Route 66 Diner", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, scraper.LooksLikeRating(tt.in))
		})
	}
}

func TestLooksLikePhoneNumber(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"0821234567", true},
		{"+27 82 123 4567", true},
		{"(011) 123-4567", false},
		{"011 123 4567", true},
		{"Joe's Plumbing", false},
		{"7-Eleven Express", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, scraper.LooksLikePhoneNumber(tt.in))
		})
	}
}
