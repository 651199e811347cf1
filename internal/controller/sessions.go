package controller

import "sync"

// sessionGroup tracks open websocket sessions. Once closed it refuses new ones,
// so wait never races with add.
type sessionGroup struct {
	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

func (g *sessionGroup) add() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return false
	}

	g.wg.Add(1)
	return true
}

func (g *sessionGroup) done() {
	g.wg.Done()
}

func (g *sessionGroup) close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
}

func (g *sessionGroup) wait() {
	g.wg.Wait()
}
