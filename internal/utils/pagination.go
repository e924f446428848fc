// Package utils provides small helpers shared by the HTTP and service
// layers that carry no domain logic.
package utils

import "strconv"

// List endpoints page with these bounds.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// AtoiDefault parses s as a decimal int, returning def when s is empty or
// malformed. Surrounding whitespace is not trimmed.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// NormalizePage clamps a 1-based page request: page < 1 becomes 1, a
// non-positive size becomes DefaultPageSize and sizes above MaxPageSize
// are capped.
func NormalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case size <= 0:
		size = DefaultPageSize
	case size > MaxPageSize:
		size = MaxPageSize
	}
	return page, size
}

// ParsePage reads page and page_size query values and normalizes them.
func ParsePage(pageStr, sizeStr string) (page, size int) {
	return NormalizePage(AtoiDefault(pageStr, 1), AtoiDefault(sizeStr, DefaultPageSize))
}

// Offset returns the SQL offset and limit of a normalized page.
func Offset(page, size int) (offset, limit int) {
	page, size = NormalizePage(page, size)
	return (page - 1) * size, size
}
