package metadata

import "sync"

// IncludeHistory tracks the chain of files currently being processed,
// so that circular includes can be detected and diagnostics can name
// the active inclusion chain.
type IncludeHistory struct {
	mu    sync.Mutex
	stack []string
}

func newIncludeHistory() *IncludeHistory {
	return &IncludeHistory{}
}

// Include pushes filename onto the active chain and returns a leave
// function that pops it. The returned function must be called exactly
// once, when processing of the file ends.
func (h *IncludeHistory) Include(filename string) func() {
	h.mu.Lock()
	h.stack = append(h.stack, filename)
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.stack = h.stack[:len(h.stack)-1]
	}
}

// Current returns the file at the top of the chain, or "" when no
// file is being processed.
func (h *IncludeHistory) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.stack) == 0 {
		return ""
	}
	return h.stack[len(h.stack)-1]
}

// Chain returns a copy of the active inclusion chain, outermost file
// first.
func (h *IncludeHistory) Chain() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	chain := make([]string, len(h.stack))
	copy(chain, h.stack)
	return chain
}

// Contains reports whether filename is already on the active chain.
func (h *IncludeHistory) Contains(filename string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, f := range h.stack {
		if f == filename {
			return true
		}
	}
	return false
}
