package tui

// History keeps recent input lines for Up/Down recall. Browsing starts
// from whatever is in the input box, and stepping past the newest entry
// gives that draft back.
type History struct {
	lines []string
	limit int
	pos   int // index into lines while browsing, len(lines) otherwise
	draft string
}

// NewHistory creates a history holding at most limit lines.
func NewHistory(limit int) *History {
	if limit < 1 {
		limit = 1
	}
	return &History{limit: limit}
}

// Add records a submitted line and ends browsing. Repeating the newest
// line is not recorded twice.
func (h *History) Add(line string) {
	if n := len(h.lines); n == 0 || h.lines[n-1] != line {
		h.lines = append(h.lines, line)
		if over := len(h.lines) - h.limit; over > 0 {
			h.lines = h.lines[over:]
		}
	}
	h.Reset()
}

// Len returns the number of stored lines.
func (h *History) Len() int { return len(h.lines) }

func (h *History) browsing() bool { return h.pos < len(h.lines) }

// Back returns the next older line, stopping at the oldest. current is the
// input box content, kept as the draft when browsing begins.
func (h *History) Back(current string) (string, bool) {
	if len(h.lines) == 0 {
		return "", false
	}
	if !h.browsing() {
		h.draft = current
	}
	if h.pos > 0 {
		h.pos--
	}
	return h.lines[h.pos], true
}

// Forward returns the next newer line, or the draft once past the newest.
// It reports false when not browsing.
func (h *History) Forward() (string, bool) {
	if !h.browsing() {
		return "", false
	}
	h.pos++
	if h.browsing() {
		return h.lines[h.pos], true
	}
	draft := h.draft
	h.draft = ""
	return draft, true
}

// Reset ends browsing and drops the draft.
func (h *History) Reset() {
	h.pos = len(h.lines)
	h.draft = ""
}
