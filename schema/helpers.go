package schema

import (
	"sort"
	"time"
)

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 { return &v }

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// BoolPtr returns a pointer to v.
func BoolPtr(v bool) *bool { return &v }

// TimePtr returns a pointer to v.
func TimePtr(v time.Time) *time.Time { return &v }

// SortedFlags returns a de-duplicated, sorted copy of flags.
func SortedFlags(flags []QualityFlag) []QualityFlag {
	seen := make(map[QualityFlag]struct{}, len(flags))
	out := make([]QualityFlag, 0, len(flags))
	for _, f := range flags {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// FlagStrings converts flags to plain strings.
func FlagStrings(flags []QualityFlag) []string {
	out := make([]string, len(flags))
	for i, f := range flags {
		out[i] = string(f)
	}
	return out
}
