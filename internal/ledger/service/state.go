package service

import (
	"sync"

	"github.com/operalab/commesse/internal/ledger/domain"
)

// State is the lifecycle of one commission view.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

// View is the explicit state container for a commission: the latest
// snapshot, the view state, and subscription fan-out. It replaces
// per-caller mutable state so that the published snapshot is always the
// product of one full reload, never a local patch.
type View struct {
	mu       sync.RWMutex
	state    State
	snapshot *domain.Snapshot
	errMsg   string
	subs     map[int]chan domain.Snapshot
	nextSub  int
}

func newView() *View {
	return &View{
		state: StateIdle,
		subs:  make(map[int]chan domain.Snapshot),
	}
}

func (v *View) State() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

// Snapshot returns the last published snapshot, if any.
func (v *View) Snapshot() (*domain.Snapshot, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.snapshot, v.snapshot != nil
}

// Err returns the failure message of the last failed reload.
func (v *View) Err() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.errMsg
}

// Subscribe registers for snapshot publications. The returned cancel
// func must be called to release the subscription. A slow subscriber
// misses intermediate snapshots instead of blocking the publisher.
func (v *View) Subscribe() (<-chan domain.Snapshot, func()) {
	v.mu.Lock()
	defer v.mu.Unlock()

	id := v.nextSub
	v.nextSub++
	ch := make(chan domain.Snapshot, 1)
	v.subs[id] = ch

	cancel := func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		if existing, ok := v.subs[id]; ok {
			delete(v.subs, id)
			close(existing)
		}
	}
	return ch, cancel
}

func (v *View) setLoading() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state = StateLoading
}

func (v *View) setReady(snap *domain.Snapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state = StateReady
	v.snapshot = snap
	v.errMsg = ""

	for _, ch := range v.subs {
		select {
		case ch <- *snap:
		default:
			// drop the stale value, replace with the fresh one
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- *snap:
			default:
			}
		}
	}
}

func (v *View) setFailed(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state = StateFailed
	v.errMsg = err.Error()
}
