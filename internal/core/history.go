package core

import "sync"

// DefaultHistorySize is the number of pass reports kept when none is configured.
const DefaultHistorySize = 20

// History keeps the most recent pass reports in memory, newest first.
type History struct {
	mu      sync.RWMutex
	size    int
	reports []PassReport
}

// NewHistory creates a History holding at most size reports.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{size: size}
}

// Add records a report, evicting the oldest when full.
func (h *History) Add(r PassReport) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.reports = append([]PassReport{r}, h.reports...)
	if len(h.reports) > h.size {
		h.reports = h.reports[:h.size]
	}
}

// List returns a copy of the stored reports, newest first.
func (h *History) List() []PassReport {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]PassReport, len(h.reports))
	copy(out, h.reports)
	return out
}

// Get returns the report with the given pass ID.
func (h *History) Get(passID string) (PassReport, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, r := range h.reports {
		if r.PassID == passID {
			return r, true
		}
	}
	return PassReport{}, false
}

// Last returns the newest report.
func (h *History) Last() (PassReport, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.reports) == 0 {
		return PassReport{}, false
	}
	return h.reports[0], true
}
