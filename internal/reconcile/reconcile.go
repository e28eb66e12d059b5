// Package reconcile matches review files to response files by key.
package reconcile

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joescharf/rebuttal/internal/models"
)

// MatchMode selects how a file name becomes a matching key.
type MatchMode string

const (
	// MatchExact keys files by their full name.
	MatchExact MatchMode = "exact"
	// MatchStem keys files by their name without the final extension.
	MatchStem MatchMode = "stem"
)

// ParseMatchMode validates a match mode string. Empty means exact.
func ParseMatchMode(s string) (MatchMode, error) {
	switch MatchMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", MatchExact:
		return MatchExact, nil
	case MatchStem:
		return MatchStem, nil
	default:
		return "", fmt.Errorf("unknown match mode %q (want exact or stem)", s)
	}
}

// Key returns the matching key for a file name under the given mode.
func Key(name string, mode MatchMode) string {
	if mode != MatchStem {
		return name
	}
	return Stem(name)
}

// Stem strips the final extension from a file name. Dotfiles keep their name.
func Stem(name string) string {
	ext := filepath.Ext(name)
	if ext == name {
		return name
	}
	return strings.TrimSuffix(name, ext)
}

// Result is the outcome of reconciling review keys against response keys.
type Result struct {
	Matched []string `json:"matched" yaml:"matched"`
	Missing []string `json:"missing" yaml:"missing"` // reviews with no response
	Extra   []string `json:"extra" yaml:"extra"`     // responses with no review; informational only
}

// OK reports whether every review has a response.
func (r Result) OK() bool { return len(r.Missing) == 0 }

// Reconcile keys review and response file names under mode and computes
// reviews minus responses, plus the matched and extra sets. Names that share a
// key collapse. All output slices hold keys, sorted and non-nil.
func Reconcile(reviews, responses []string, mode MatchMode) Result {
	reviewSet := toSet(reviews, mode)
	responseSet := toSet(responses, mode)

	res := Result{Matched: []string{}, Missing: []string{}, Extra: []string{}}
	for k := range reviewSet {
		if _, ok := responseSet[k]; ok {
			res.Matched = append(res.Matched, k)
		} else {
			res.Missing = append(res.Missing, k)
		}
	}
	for k := range responseSet {
		if _, ok := reviewSet[k]; !ok {
			res.Extra = append(res.Extra, k)
		}
	}

	sort.Strings(res.Matched)
	sort.Strings(res.Missing)
	sort.Strings(res.Extra)
	return res
}

// Pair reconciles two document sets under mode and returns pairings for every
// matched key, in key order. Each document's Key is set from its Name.
func Pair(reviews, responses []models.Document, mode MatchMode) ([]models.Pairing, Result) {
	reviewByKey, reviewNames := index(reviews, mode)
	responseByKey, responseNames := index(responses, mode)

	res := Reconcile(reviewNames, responseNames, mode)
	pairs := make([]models.Pairing, 0, len(res.Matched))
	for _, k := range res.Matched {
		pairs = append(pairs, models.Pairing{
			Key:      k,
			Review:   reviewByKey[k],
			Response: responseByKey[k],
		})
	}
	return pairs, res
}

func index(docs []models.Document, mode MatchMode) (map[string]models.Document, []string) {
	byKey := make(map[string]models.Document, len(docs))
	names := make([]string, 0, len(docs))
	for _, d := range docs {
		d.Key = Key(d.Name, mode)
		byKey[d.Key] = d
		names = append(names, d.Name)
	}
	return byKey, names
}

func toSet(names []string, mode MatchMode) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[Key(n, mode)] = struct{}{}
	}
	return set
}
