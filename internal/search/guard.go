package search

import "sync"

// Guard holds the currently active request tag. Responses are applied only
// when their tag still matches; anything else is a stale response.
type Guard struct {
	mu     sync.Mutex
	active string
	set    bool
}

func (g *Guard) Activate(tag string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.active = tag
	g.set = true
}

func (g *Guard) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.active = ""
	g.set = false
}

func (g *Guard) Current() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active, g.set
}

func (g *Guard) Accept(tag string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.set && g.active == tag
}
