package listing

import (
	"sort"
	"strings"

	"dais/internal/config"
)

// Sort orders entries in place per the preference. The directories-first
// split is applied before the primary key and the direction only flips
// the key comparison, so descending never sinks directories below files.
// The sort is stable: equal entries keep their input order.
func Sort(entries []Entry, pref config.Sort) {
	if pref.By == "none" {
		if pref.DirsFirst {
			sort.SliceStable(entries, func(i, j int) bool {
				return entries[i].Stats.IsDir && !entries[j].Stats.IsDir
			})
		}
		return
	}
	desc := pref.Order == "desc"
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if pref.DirsFirst && a.Stats.IsDir != b.Stats.IsDir {
			return a.Stats.IsDir
		}
		c := compare(a, b, pref.By)
		if c == 0 {
			return false
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

// compare returns <0, 0, >0 for the primary key.
func compare(a, b Entry, key string) int {
	switch key {
	case "size":
		// Directories measure by child count, files by byte size.
		return cmpInt64(sizeMetric(a), sizeMetric(b))
	case "type":
		if c := strings.Compare(a.ext(), b.ext()); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	case "rows":
		return cmpInt64(int64(a.Stats.Rows), int64(b.Stats.Rows))
	default: // name
		return strings.Compare(a.Name, b.Name)
	}
}

func sizeMetric(e Entry) int64 {
	if e.Stats.IsDir {
		return int64(e.Stats.ItemCount)
	}
	return e.Stats.SizeBytes
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
