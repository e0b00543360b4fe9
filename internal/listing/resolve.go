package listing

import (
	"os"
	"path/filepath"

	"github.com/sahilm/fuzzy"
)

// Resolution bounds for fuzzy path recovery. Completion can leave the
// accumulator holding a name the wrapper never saw typed; rather than
// trust it blindly we look for the nearest real path. This is a
// best-effort heuristic, not a guaranteed resolver; beyond these bounds
// the typed string wins.
const (
	maxResolveDepth     = 2
	maxResolveBranching = 64
)

// ResolvePath maps a possibly-stale typed path to the closest existing
// path under base. An exact hit short-circuits; otherwise candidates from
// a bounded walk are fuzzy-ranked against the typed string.
func ResolvePath(base, typed string) string {
	if typed == "" {
		return typed
	}
	probe := typed
	if !filepath.IsAbs(probe) {
		probe = filepath.Join(base, typed)
	}
	if _, err := os.Stat(probe); err == nil {
		return typed
	}

	candidates := collectCandidates(base, maxResolveDepth)
	if len(candidates) == 0 {
		return typed
	}
	matches := fuzzy.Find(typed, candidates)
	if len(matches) == 0 {
		return typed
	}
	return candidates[matches[0].Index]
}

// collectCandidates walks base to a bounded depth, taking at most
// maxResolveBranching entries per directory.
func collectCandidates(base string, depth int) []string {
	var out []string
	var walk func(dir, rel string, depth int)
	walk = func(dir, rel string, depth int) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return
		}
		if len(entries) > maxResolveBranching {
			entries = entries[:maxResolveBranching]
		}
		for _, e := range entries {
			name := e.Name()
			relPath := name
			if rel != "" {
				relPath = filepath.Join(rel, name)
			}
			out = append(out, relPath)
			if e.IsDir() && depth > 1 {
				walk(filepath.Join(dir, name), relPath, depth-1)
			}
		}
	}
	walk(base, "", depth)
	return out
}
