package common

import (
	"regexp"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9 \-_.]`)

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// CleanName strips every character that is not a letter, digit, space, dash, underscore or dot.
// The result is safe to use as an asset file name.
//
// Parameters:
//   - name: the raw name from the source document
//
// Returns:
//   - string: the cleaned name
func CleanName(name string) string {
	return nonAlphanumeric.ReplaceAllString(name, "")
}

// InRange reports whether i is a valid index into a sequence of length n.
func InRange(i, n int) bool {
	return i >= 0 && i < n
}
