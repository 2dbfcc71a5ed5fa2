package domain

import (
	"sort"
	"strings"
)

// ValidateColumns checks that every required column for an operation is
// present in the input table header, reporting all missing columns at once.
func ValidateColumns(header, required []string) error {
	present := make(map[string]bool, len(header))
	for _, col := range header {
		present[col] = true
	}

	var missing []string
	for _, col := range required {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	sort.Strings(missing)
	return NewConfigError("input table is missing required columns: %s", strings.Join(missing, ", "))
}
