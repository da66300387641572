package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/questflow/sandbox"
)

// areaDisplayName derives a readable name from an area ID.
// "great_hall" -> "Great Hall".
func areaDisplayName(id string) string {
	words := strings.Split(id, "_")
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func (m Model) areaName() string {
	id := m.session.World.CurrentAreaID()
	if a, ok := m.session.Defs.Areas[id]; ok && a.Name != "" {
		return a.Name
	}
	if id == "" {
		return "Nowhere"
	}
	return areaDisplayName(id)
}

// renderStatusBar produces a full-width inverted status line showing the
// current area, exits, quest counts, game time and turn count.
func (m Model) renderStatusBar() string {
	s := m.session

	left := " " + m.areaName()
	if a, ok := s.Defs.Areas[s.World.CurrentAreaID()]; ok && len(a.Exits) > 0 {
		exits := append([]string(nil), a.Exits...)
		sort.Strings(exits)
		left += " | Exits: " + strings.Join(exits, ",")
	}

	active := len(s.Engine.ActiveQuests())
	turn := fmt.Sprintf("T:%d ", s.Turns())
	right := fmt.Sprintf("Quests: %d | %s | %s", active, sandbox.FormatTime(s.Clock), turn)
	if lipgloss.Width(left)+lipgloss.Width(right)+2 >= m.width {
		right = fmt.Sprintf("Q:%d | %s", active, turn)
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return styleStatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}
