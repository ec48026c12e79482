package threat

// History keeps the most recent threats, newest first, evicting the oldest
// once Cap is reached. It is not safe for concurrent use.
type History struct {
	cap     int
	threats []Threat
}

// DefaultHistoryCap is the number of threats retained when no cap is given.
const DefaultHistoryCap = 100

// NewHistory returns an empty history holding at most capacity threats.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCap
	}
	return &History{cap: capacity}
}

// Cap returns the retention limit.
func (h *History) Cap() int { return h.cap }

// Len returns the number of retained threats.
func (h *History) Len() int { return len(h.threats) }

// Add inserts t at the front and returns any evicted threats, oldest last.
func (h *History) Add(t Threat) []Threat {
	h.threats = append(h.threats, Threat{})
	copy(h.threats[1:], h.threats)
	h.threats[0] = t
	if len(h.threats) <= h.cap {
		return nil
	}
	evicted := append([]Threat(nil), h.threats[h.cap:]...)
	h.threats = h.threats[:h.cap]
	return evicted
}

// Get returns the threat with id.
func (h *History) Get(id string) (Threat, bool) {
	if i := h.index(id); i >= 0 {
		return h.threats[i], true
	}
	return Threat{}, false
}

// Dismiss removes the threat with id. Unknown ids are ignored.
func (h *History) Dismiss(id string) bool {
	i := h.index(id)
	if i < 0 {
		return false
	}
	h.threats = append(h.threats[:i], h.threats[i+1:]...)
	return true
}

// Mitigate marks the threat with id as mitigated. It reports false when the
// id is unknown or the threat was already mitigated.
func (h *History) Mitigate(id string) bool {
	i := h.index(id)
	if i < 0 || h.threats[i].Mitigated {
		return false
	}
	h.threats[i].Mitigated = true
	return true
}

// List returns a copy of the retained threats, newest first.
func (h *History) List() []Threat {
	out := make([]Threat, len(h.threats))
	copy(out, h.threats)
	return out
}

// Reset drops every threat.
func (h *History) Reset() {
	h.threats = nil
}

func (h *History) index(id string) int {
	for i, t := range h.threats {
		if t.ID == id {
			return i
		}
	}
	return -1
}
