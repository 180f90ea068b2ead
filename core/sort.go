package core

import "strings"

// Constants for pagination
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// SortDirection represents the sort order
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ParseSortDirection interprets a free-form direction string such as the
// one carried by an order clause. Matching is case-insensitive and
// tolerates surrounding whitespace; "ascending"/"descending" are accepted.
func ParseSortDirection(s string) (SortDirection, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return SortAsc, true
	case "desc", "descending":
		return SortDesc, true
	}
	return SortAsc, false
}

// ClampPageSize bounds a requested page size to (0, MaxPageSize].
// Non-positive sizes fall back to DefaultPageSize.
func ClampPageSize(size int) int {
	if size > MaxPageSize {
		return MaxPageSize
	}
	if size <= 0 {
		return DefaultPageSize
	}
	return size
}

// String returns a string representation of the sort direction
func (sd SortDirection) String() string {
	return string(sd)
}

// IsValid checks if the sort direction is valid
func (sd SortDirection) IsValid() bool {
	return sd == SortAsc || sd == SortDesc
}

// Opposite returns the opposite sort direction
func (sd SortDirection) Opposite() SortDirection {
	if sd == SortAsc {
		return SortDesc
	}
	return SortAsc
}
