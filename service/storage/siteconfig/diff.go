package siteconfig

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DiffStats counts changed lines of a unified diff.
type DiffStats struct {
	Added   int
	Removed int
}

// Diff returns a unified diff between a previous and a regenerated file, or
// an empty string when they are identical.
func Diff(previous, current []byte, name string) (string, DiffStats, error) {
	if string(previous) == string(current) {
		return "", DiffStats{}, nil
	}
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(previous)),
		B:        difflib.SplitLines(string(current)),
		FromFile: name + " (previous)",
		ToFile:   name + " (current)",
		Context:  3,
	}
	patch, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return "", DiffStats{}, err
	}
	var stats DiffStats
	for _, line := range strings.Split(patch, "\n") {
		switch {
		case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
			stats.Added++
		case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
			stats.Removed++
		}
	}
	return patch, stats, nil
}
