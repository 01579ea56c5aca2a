// Package discovery implements path-probing for a compatible persisted
// index given a database path, k, and spaced flag (spec.md §4.6).
package discovery

import "os"

// suffixes is ordered (unspaced, spaced) x (k=5,6,7), matching spec.md
// §4.6's stated probe order: P.k5, P.k6, P.k7, P.sk5, P.sk6, P.sk7.
var suffixes = []string{".k5", ".k6", ".k7", ".sk5", ".sk6", ".sk7"}

// Checker abstracts the existence check so tests can probe without touching
// the filesystem; os.Stat is used by Find's default Checker.
type Checker func(path string) bool

func statChecker(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Find tries P.k5, P.k6, P.k7, P.sk5, P.sk6, P.sk7 in that order and
// returns the first that exists, or "" if none do. It performs only a
// stat; no version check (that is the Reader's job on open).
func Find(dbPath string) string {
	return FindWith(dbPath, statChecker)
}

// FindWith is Find parameterized by an existence Checker.
func FindWith(dbPath string, exists Checker) string {
	for _, suf := range suffixes {
		candidate := dbPath + suf
		if exists(candidate) {
			return candidate
		}
	}
	return ""
}
