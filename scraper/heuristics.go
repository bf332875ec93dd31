package scraper

import (
	"regexp"
	"strings"
)

// Extraction artifacts sometimes land in the name slot of a candidate.
// These predicates identify the common shapes so the candidate can be
// skipped instead of polluting the results.

var (
	timeRangeRe  = regexp.MustCompile(`\d{1,2}[:.]\d{2}\s*(?i:am|pm)?\s*[-–]\s*\d{1,2}[:.]\d{2}|(?i)\b(24\s*hours|24/7)\b`)
	openWordRe   = regexp.MustCompile(`(?i)\b(open|opens|closed|closes)\b`)
	dayRe        = regexp.MustCompile(`(?i)\b(mon|tue|wed|thu|fri|sat|sun)(day)?\b`)
	ratingRe     = regexp.MustCompile(`^\s*\d(\.\d)?\s*(\(\d+\))?\s*$|(?i)^\s*\d(\.\d)?\s*stars?\s*$|^\s*[★⭐]+`)
	phoneShapeRe = regexp.MustCompile(`^\s*\+?[\d][\d\s\-().]{6,}\s*$`)
)

// LooksLikeOpeningHours reports whether s reads like a trading-hours
// blurb rather than a business name. An open/closed word alone is not
// enough; it must be paired with a time, digits or a weekday.
func LooksLikeOpeningHours(s string) bool {
	if timeRangeRe.MatchString(s) {
		return true
	}

	hasDigits := strings.ContainsAny(s, "0123456789")

	if openWordRe.MatchString(s) && (hasDigits || dayRe.MatchString(s)) {
		return true
	}

	return dayRe.MatchString(s) && hasDigits
}

// LooksLikeRating reports whether s reads like a star rating, e.g.
// "4.5 (120)" or "★★★★".
func LooksLikeRating(s string) bool {
	return ratingRe.MatchString(s)
}

// LooksLikePhoneNumber reports whether s is just a phone number.
func LooksLikePhoneNumber(s string) bool {
	return phoneShapeRe.MatchString(s)
}
