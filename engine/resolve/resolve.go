// Package resolve maps names typed by the player to area and quest IDs.
package resolve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nathoo/questflow/engine/state"
)

// AmbiguityError indicates several definitions matched a name.
type AmbiguityError struct {
	Name       string
	Candidates []string
}

func (e *AmbiguityError) Error() string {
	return fmt.Sprintf("which %s? (%s)", e.Name, strings.Join(e.Candidates, ", "))
}

// NotFoundError indicates no definition matched a name.
type NotFoundError struct {
	Kind string // "place" or "quest"
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("there is no %s called %q", e.Kind, e.Name)
}

// Area resolves name against area IDs and display names.
func Area(defs *state.Defs, name string) (string, error) {
	names := make(map[string]string, len(defs.Areas))
	for id, a := range defs.Areas {
		names[id] = a.Name
	}
	return resolve("place", name, names)
}

// Quest resolves name against quest IDs and titles.
func Quest(defs *state.Defs, name string) (string, error) {
	names := make(map[string]string, len(defs.Quests))
	for id, q := range defs.Quests {
		names[id] = q.Title
	}
	return resolve("quest", name, names)
}

// resolve matches name against candidates (ID to display name). An exact
// ID wins outright. Otherwise the name may equal the display name or one
// word of it; more than one hit is ambiguous.
func resolve(kind, name string, candidates map[string]string) (string, error) {
	if _, ok := candidates[name]; ok {
		return name, nil
	}
	query := strings.ToLower(strings.TrimSpace(name))
	asID := strings.ReplaceAll(query, " ", "_")
	asWords := strings.ReplaceAll(query, "_", " ")

	var matches []string
	for id, display := range candidates {
		if strings.ToLower(id) == asID || matchesName(display, asWords) {
			matches = append(matches, id)
		}
	}
	sort.Strings(matches)

	switch len(matches) {
	case 0:
		return "", &NotFoundError{Kind: kind, Name: name}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguityError{Name: name, Candidates: matches}
	}
}

// matchesName reports whether query equals display or any word of it,
// ignoring case. "vault" matches "The Old Vault".
func matchesName(display, query string) bool {
	if display == "" || query == "" {
		return false
	}
	display = strings.ToLower(display)
	if display == query {
		return true
	}
	for _, word := range strings.Fields(display) {
		if word == query {
			return true
		}
	}
	return false
}
