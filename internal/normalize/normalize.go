// Package normalize contains the pure field normalizers applied to raw
// spreadsheet cells before reconciliation. The source tabs are maintained
// by hand, so every function here degrades to a safe default instead of
// returning an error.
package normalize

import (
	"strconv"
	"strings"
)

// Date canonicalizes a slash-delimited date to YYYY-MM-DD.
// Accepted inputs are DD/MM/YYYY and DD/MM/YY (two-digit years are
// prefixed with "20"). Input without a slash is assumed canonical and
// passed through unchanged, which makes Date idempotent. Empty cells and
// stray header cells normalize to "" so callers can skip the row.
func Date(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "date") {
		return ""
	}
	if !strings.Contains(s, "/") {
		return s
	}
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return ""
	}
	day := pad2(parts[0])
	month := pad2(parts[1])
	year := strings.TrimSpace(parts[2])
	if len(year) == 2 {
		year = "20" + year
	}
	return year + "-" + month + "-" + day
}

// NameKey reduces a display name to its loose join key: lowercased,
// trimmed, first token only. "Claire Makeleni" and "Claire M" both key
// as "claire", which is what lets abbreviated names in one tab match the
// full name in another.
func NameKey(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if i := strings.IndexByte(name, ' '); i >= 0 {
		return name[:i]
	}
	return name
}

// Slug derives a stable key from a display name for agents whose email is
// not yet known: lowercased with whitespace runs replaced by hyphens.
func Slug(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

// Int parses a cell as an integer. Float cells are truncated. Any parse
// failure, including the empty string, yields 0.
func Int(s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

// Float parses a cell as a float. Any parse failure yields 0.
func Float(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

// ScaleRating rescales a 1-5 overall rating to the canonical 0-100 score,
// clamped to that range.
func ScaleRating(rating float64) float64 {
	score := (rating / 5) * 100
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Score parses a KPI sub-score cell, clamped to 0-100. Blank or invalid
// cells yield 0.
func Score(s string) float64 {
	f := Float(s)
	if f < 0 {
		return 0
	}
	if f > 100 {
		return 100
	}
	return f
}

func pad2(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
