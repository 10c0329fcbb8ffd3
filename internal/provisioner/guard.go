package provisioner

import "sync"

// rollbackGuard runs its cleanup function unless disarmed first. Each
// provisioning step that allocates an external resource (database, role,
// bucket, index) registers a guard immediately after the allocation
// succeeds; the guards are disarmed, in order, only once every step has
// succeeded and both database transactions are committed.
type rollbackGuard struct {
	mu      sync.Mutex
	armed   bool
	cleanup func()
}

// newRollbackGuard arms cleanup to run when the guard fires.
func newRollbackGuard(cleanup func()) *rollbackGuard {
	return &rollbackGuard{armed: true, cleanup: cleanup}
}

// disarm cancels the guard's cleanup. Safe to call once the guard has
// already fired or been disarmed.
func (g *rollbackGuard) disarm() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.armed = false
}

// fire runs cleanup if the guard is still armed. Safe to call more than
// once.
func (g *rollbackGuard) fire() {
	g.mu.Lock()
	armed := g.armed
	g.armed = false
	g.mu.Unlock()
	if armed {
		g.cleanup()
	}
}

// guards is an ordered set of rollback guards, fired in reverse
// registration order (undoing the most recent step first) and disarmed
// together once provisioning succeeds.
type guards struct {
	list []*rollbackGuard
}

func (g *guards) add(cleanup func()) *rollbackGuard {
	guard := newRollbackGuard(cleanup)
	g.list = append(g.list, guard)
	return guard
}

// fireAll runs every still-armed guard's cleanup, most recent first.
func (g *guards) fireAll() {
	for i := len(g.list) - 1; i >= 0; i-- {
		g.list[i].fire()
	}
}

// disarmAll cancels every guard's cleanup, called once provisioning has
// fully succeeded and committed.
func (g *guards) disarmAll() {
	for _, guard := range g.list {
		guard.disarm()
	}
}
