// Package parser converts sandbox command strings into Intent structs.
// Intentionally dumb: no NLP, just pattern matching.
package parser

import (
	"strconv"
	"strings"

	"github.com/nathoo/questflow/types"
)

var verbAliases = map[string]string{
	// Look
	"l":     "look",
	"where": "look",

	// Movement
	"walk":   "go",
	"run":    "go",
	"move":   "go",
	"head":   "go",
	"enter":  "go",
	"travel": "go",

	// Take / Get
	"get":     "take",
	"grab":    "take",
	"collect": "take",
	"loot":    "take",

	// Drop
	"discard": "drop",
	"toss":    "drop",

	// Flags
	"raise":  "set",
	"toggle": "set",
	"clear":  "unset",
	"lower":  "unset",

	// Time
	"z":     "wait",
	"rest":  "wait",
	"sleep": "wait",

	// Quests
	"begin":   "start",
	"accept":  "start",
	"cancel":  "abandon",
	"finish":  "complete",
	"journal": "quests",
	"log":     "quests",
	"q":       "quests",

	// Miscellaneous
	"inv": "inventory",
	"i":   "inventory",
}

var fillers = map[string]bool{
	"the": true, "a": true, "an": true,
	"to": true, "up": true, "quest": true, "flag": true,
	"for": true, "seconds": true, "second": true, "s": true,
}

// Parse converts a raw command string into an Intent. A trailing number
// becomes the Amount; "on"/"off" after set becomes the Amount too.
func Parse(input string) types.Intent {
	input = strings.TrimSpace(input)
	if input == "" {
		return types.Intent{}
	}

	words := strings.Fields(strings.ToLower(input))

	// Handle multi-word verb phrases before general parsing.
	words = expandMultiWordVerbs(words)

	// Apply verb aliases.
	if alias, ok := verbAliases[words[0]]; ok {
		words[0] = alias
	}

	verb := words[0]
	rest := stripFillers(words[1:])

	var amount string
	if n := len(rest); n > 0 && isAmount(verb, rest[n-1]) {
		amount = rest[n-1]
		rest = rest[:n-1]
	}

	// "wait 30" has no object; the number is the amount.
	return types.Intent{
		Verb:   verb,
		Object: strings.Join(rest, "_"),
		Amount: amount,
	}
}

// expandMultiWordVerbs handles "pick up", "go to", "turn on" etc.
func expandMultiWordVerbs(words []string) []string {
	if len(words) < 2 {
		return words
	}

	switch words[0] {
	case "pick":
		if words[1] == "up" {
			return append([]string{"take"}, words[2:]...)
		}
	case "put":
		if words[1] == "down" {
			return append([]string{"drop"}, words[2:]...)
		}
	case "look":
		if words[1] == "around" {
			return []string{"look"}
		}
	case "turn", "switch":
		if words[1] == "on" && len(words) > 2 {
			return append(append([]string{"set"}, words[2:]...), "on")
		}
		if words[1] == "off" && len(words) > 2 {
			return append(append([]string{"set"}, words[2:]...), "off")
		}
	case "give":
		if words[1] == "up" {
			return append([]string{"abandon"}, words[2:]...)
		}
	}

	return words
}

// stripFillers removes articles and filler words from the word list.
func stripFillers(words []string) []string {
	result := make([]string, 0, len(words))
	for _, w := range words {
		if !fillers[w] {
			result = append(result, w)
		}
	}
	return result
}

func isAmount(verb, word string) bool {
	if verb == "set" {
		switch word {
		case "on", "off", "true", "false", "yes", "no":
			return true
		}
	}
	_, err := strconv.ParseFloat(word, 64)
	return err == nil
}
