package loader

import (
	"fmt"
	"log"
	"strings"

	"github.com/nathoo/questflow/engine/effects"
	"github.com/nathoo/questflow/engine/state"
	"github.com/nathoo/questflow/types"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

// Required params per condition type.
var conditionParams = map[string][]string{
	types.CondItemCollected: {"item"},
	types.CondAreaEntered:   {"area"},
	types.CondTimeElapsed:   {"seconds"},
	types.CondCustomFlag:    {"flag"},
	types.CondAll:           nil,
	types.CondAny:           nil,
}

// validate checks the compiled defs, logs warnings and returns a
// *ValidationError if there are errors.
func validate(defs *state.Defs) error {
	ve := check(defs)

	for _, w := range ve.Warnings {
		log.Printf("warning: %s", w)
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// check collects every error and warning in defs.
func check(defs *state.Defs) *ValidationError {
	ve := &ValidationError{}

	// Game title required.
	if defs.Game.Title == "" {
		ve.Errors = append(ve.Errors, "Game.Title is required")
	}

	// Start area, when areas are declared.
	if defs.Game.Start != "" && len(defs.Areas) > 0 {
		if _, ok := defs.Areas[defs.Game.Start]; !ok {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"start area %q not found in defined areas", defs.Game.Start))
		}
	}
	for areaID, area := range defs.Areas {
		for _, exit := range area.Exits {
			if _, ok := defs.Areas[exit]; !ok {
				ve.Errors = append(ve.Errors, fmt.Sprintf(
					"area %q exit points to undefined area %q", areaID, exit))
			}
		}
	}

	// Quest IDs unique.
	seen := map[string]bool{}
	for _, id := range defs.Order {
		if seen[id] {
			ve.Errors = append(ve.Errors, fmt.Sprintf("duplicate quest ID %q", id))
		}
		seen[id] = true
	}

	for _, id := range defs.Order {
		q, ok := defs.Quests[id]
		if !ok || !seen[id] {
			continue
		}
		seen[id] = false // validate each quest once
		validateQuest(q, defs, ve)
	}

	for _, id := range defs.Game.AutoStart {
		if _, ok := defs.Quests[id]; !ok {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"auto_start references undefined quest %q", id))
		}
	}

	return ve
}

func validateQuest(q *types.QuestDef, defs *state.Defs, ve *ValidationError) {
	if q.ID == "" {
		ve.Errors = append(ve.Errors, "quest with empty ID")
		return
	}

	for _, pre := range q.Prerequisites {
		if _, ok := defs.Quests[pre]; !ok {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf(
				"quest %q requires undefined quest %q", q.ID, pre))
		}
	}

	objectives := map[string]*types.ObjectiveDef{}
	for i := range q.Objectives {
		o := &q.Objectives[i]
		if o.ID == "" {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"quest %q objective %d has an empty ID", q.ID, i+1))
			continue
		}
		if _, dup := objectives[o.ID]; dup {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"quest %q has duplicate objective ID %q", q.ID, o.ID))
			continue
		}
		objectives[o.ID] = o
	}

	for i := range q.Objectives {
		o := &q.Objectives[i]
		where := fmt.Sprintf("quest %q objective %q", q.ID, o.ID)
		for _, pre := range o.Prerequisites {
			if _, ok := objectives[pre]; !ok {
				ve.Warnings = append(ve.Warnings, fmt.Sprintf(
					"%s requires undefined objective %q", where, pre))
			}
		}
		if o.Completion == nil {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf(
				"%s has no completion condition and can never complete", where))
		} else {
			validateCondition(o.Completion, where, defs, ve)
		}
		if o.Fail != nil {
			validateCondition(o.Fail, where+" fail", defs, ve)
		}
	}

	required := 0
	for _, o := range q.Objectives {
		if !o.Optional {
			required++
		}
	}
	if required == 0 {
		ve.Warnings = append(ve.Warnings, fmt.Sprintf(
			"quest %q has no required objectives and completes as soon as it starts", q.ID))
	}

	if cycle := findCycle(q.Objectives); cycle != nil {
		ve.Errors = append(ve.Errors, fmt.Sprintf(
			"quest %q has an objective prerequisite cycle: %s", q.ID, strings.Join(cycle, " -> ")))
	}

	validateEffects(q.Rewards, fmt.Sprintf("quest %q reward", q.ID), defs, ve)
}

func validateCondition(spec *types.ConditionSpec, where string, defs *state.Defs, ve *ValidationError) {
	required, known := conditionParams[spec.Type]
	if !known {
		ve.Errors = append(ve.Errors, fmt.Sprintf(
			"%s: unknown condition type %q", where, spec.Type))
		return
	}
	for _, key := range required {
		if _, ok := spec.Params[key]; !ok {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"%s: condition %s missing param %q", where, spec.Type, key))
		}
	}

	switch spec.Type {
	case types.CondAreaEntered:
		if area, ok := spec.Params["area"].(string); ok && len(defs.Areas) > 0 {
			if _, ok := defs.Areas[area]; !ok {
				ve.Errors = append(ve.Errors, fmt.Sprintf(
					"%s: condition area_entered references undefined area %q", where, area))
			}
		}
	case types.CondAny:
		if len(spec.Children) == 0 {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf(
				"%s: empty Any group is never met", where))
		}
	}

	for i := range spec.Children {
		validateCondition(&spec.Children[i], where, defs, ve)
	}
}

func validateEffects(effs []types.Effect, where string, defs *state.Defs, ve *ValidationError) {
	for _, eff := range effs {
		if !effects.Known(eff.Type) {
			ve.Errors = append(ve.Errors, fmt.Sprintf(
				"%s: unknown effect type %q", where, eff.Type))
			continue
		}

		switch eff.Type {
		case effects.MovePlayer:
			if area, ok := eff.Params["area"].(string); ok && len(defs.Areas) > 0 && !isTemplate(area) {
				if _, ok := defs.Areas[area]; !ok {
					ve.Errors = append(ve.Errors, fmt.Sprintf(
						"%s: effect move_player references undefined area %q", where, area))
				}
			}
		case effects.StartQuest:
			if quest, ok := eff.Params["quest"].(string); ok {
				if _, ok := defs.Quests[quest]; !ok {
					ve.Errors = append(ve.Errors, fmt.Sprintf(
						"%s: effect start_quest references undefined quest %q", where, quest))
				}
			}
		}
	}
}

// findCycle returns the objective IDs forming a prerequisite cycle, or
// nil. Dangling prerequisites are skipped.
func findCycle(objectives []types.ObjectiveDef) []string {
	deps := map[string][]string{}
	for _, o := range objectives {
		deps[o.ID] = o.Prerequisites
	}

	const (
		unvisited = iota
		visiting
		done
	)
	mark := map[string]int{}
	var stack []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		switch mark[id] {
		case visiting:
			for i, s := range stack {
				if s == id {
					cycle = append(append([]string{}, stack[i:]...), id)
					break
				}
			}
			return true
		case done:
			return false
		}
		mark[id] = visiting
		stack = append(stack, id)
		for _, pre := range deps[id] {
			if _, ok := deps[pre]; !ok {
				continue
			}
			if visit(pre) {
				return true
			}
		}
		stack = stack[:len(stack)-1]
		mark[id] = done
		return false
	}

	for _, o := range objectives {
		if visit(o.ID) {
			return cycle
		}
	}
	return nil
}

// isTemplate returns true if the string contains a template variable.
func isTemplate(s string) bool {
	return strings.Contains(s, "{") && strings.Contains(s, "}")
}
