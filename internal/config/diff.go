// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "sort"

// ChangeSummary describes the result of comparing two stream lists by name.
type ChangeSummary struct {
	Added     []string // present only in the new list
	Removed   []string // present only in the old list
	Changed   []string // present in both with a different URL
	Unchanged []string
}

// Empty reports whether the two lists describe the same streams.
func (c ChangeSummary) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Changed) == 0
}

// Diff compares two snapshots. Either side may be nil.
func Diff(old, next *Snapshot) ChangeSummary {
	oldByName := make(map[string]string, old.Len())
	for _, def := range old.Streams() {
		oldByName[def.Name] = def.URL
	}

	var summary ChangeSummary
	for _, def := range next.Streams() {
		prevURL, ok := oldByName[def.Name]
		switch {
		case !ok:
			summary.Added = append(summary.Added, def.Name)
		case prevURL != def.URL:
			summary.Changed = append(summary.Changed, def.Name)
		default:
			summary.Unchanged = append(summary.Unchanged, def.Name)
		}
		delete(oldByName, def.Name)
	}
	for name := range oldByName {
		summary.Removed = append(summary.Removed, name)
	}

	sort.Strings(summary.Added)
	sort.Strings(summary.Removed)
	sort.Strings(summary.Changed)
	sort.Strings(summary.Unchanged)
	return summary
}
