package httpapi

import (
	"sync"
	"time"

	authflow "github.com/abjadnlp2026-anon/arabic-dialect-hub"
)

// registry tracks live flows by ID so stateless HTTP requests can reattach to
// the form instance their cookie names. A background sweeper closes and drops
// flows that have not been touched within the idle TTL.
type registry struct {
	mu    sync.Mutex
	flows map[string]*registryEntry

	idleTTL time.Duration

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type registryEntry struct {
	flow     *authflow.Flow
	lastSeen time.Time
}

func newRegistry(idleTTL, sweepEvery time.Duration) *registry {
	r := &registry{
		flows:   make(map[string]*registryEntry),
		idleTTL: idleTTL,
		stop:    make(chan struct{}),
	}
	r.wg.Add(1)
	go r.sweep(sweepEvery)
	return r
}

func (r *registry) add(f *authflow.Flow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flows[f.ID()] = &registryEntry{flow: f, lastSeen: time.Now()}
}

// get returns the flow and refreshes its idle clock.
func (r *registry) get(id string) (*authflow.Flow, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.flows[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = time.Now()
	return e.flow, true
}

// remove drops the flow from the registry and closes it. Closing outside the
// registry lock keeps eviction from contending with in-flight requests.
func (r *registry) remove(id string) {
	r.mu.Lock()
	e, ok := r.flows[id]
	if ok {
		delete(r.flows, id)
	}
	r.mu.Unlock()
	if ok {
		e.flow.Close()
	}
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flows)
}

func (r *registry) sweep(every time.Duration) {
	defer r.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.evictIdle(time.Now())
		case <-r.stop:
			return
		}
	}
}

func (r *registry) evictIdle(now time.Time) {
	cutoff := now.Add(-r.idleTTL)

	var expired []*authflow.Flow
	r.mu.Lock()
	for id, e := range r.flows {
		if e.lastSeen.Before(cutoff) {
			expired = append(expired, e.flow)
			delete(r.flows, id)
		}
	}
	r.mu.Unlock()

	for _, f := range expired {
		f.Close()
	}
}

// close stops the sweeper and closes every tracked flow.
func (r *registry) close() {
	r.stopOnce.Do(func() { close(r.stop) })
	r.wg.Wait()

	r.mu.Lock()
	remaining := make([]*authflow.Flow, 0, len(r.flows))
	for id, e := range r.flows {
		remaining = append(remaining, e.flow)
		delete(r.flows, id)
	}
	r.mu.Unlock()

	for _, f := range remaining {
		f.Close()
	}
}
