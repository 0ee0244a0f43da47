package driver

import (
	"time"

	"github.com/nick/procdrive/child"
)

// DriverObservation is what Driver.Iterate yields for each member:
// exactly one of (Stdout/Stderr non-empty) or Err holds.
type DriverObservation struct {
	Stdout []byte
	Stderr []byte
	Err    error
}

// idleSleep bounds the busy-spin when a whole cycle produced no bytes.
// spec.md §4.3 leaves the exact figure to the implementation (0-10ms);
// 5ms splits the difference between CPU burn and added latency.
const idleSleep = 5 * time.Millisecond

// Iterator is the pull-sequence returned by Driver.Iterate.
type Iterator struct {
	d               *Driver
	defaultChunk    time.Duration
	hasDefaultChunk bool
	defaultTotal    time.Duration
	hasDefaultTotal bool
	pending         []pendingYield
	pendingIdx      int
	done            bool
}

type pendingYield struct {
	c   *child.Child
	obs DriverObservation
}

// Iterate starts a new iteration cycle across the current member set.
// defaultChunkTimeout/defaultTotalTimeout apply to any member that is not
// TimeoutCapable or that has no non-null override of its own; zero means
// disabled.
func (d *Driver) Iterate(defaultTotalTimeout, defaultChunkTimeout time.Duration) *Iterator {
	d.mu.Lock()
	now := time.Now()
	d.active = make(map[*child.Child]childTimers, len(d.members))
	for _, c := range d.order {
		if _, ok := d.members[c]; !ok {
			continue
		}
		d.active[c] = childTimers{chunkDeadline: now, totalDeadline: now}
	}
	d.mu.Unlock()

	return &Iterator{
		d:               d,
		defaultChunk:    defaultChunkTimeout,
		hasDefaultChunk: defaultChunkTimeout > 0,
		defaultTotal:    defaultTotalTimeout,
		hasDefaultTotal: defaultTotalTimeout > 0,
	}
}

func effectiveTimeout(c *child.Child, own func() (time.Duration, bool), defaultDur time.Duration, hasDefault bool) (time.Duration, bool) {
	if d, ok := own(); ok {
		return d, true
	}
	return defaultDur, hasDefault
}

// Next advances the driver iteration by one visible event. It returns
// (child, obs, true) for each yielded pair, or (nil, zero, false) once the
// active set has been fully drained for this cycle sequence (i.e. every
// member has exited, timed out, or been removed, with no ReturnBack calls
// pending).
func (it *Iterator) Next() (*child.Child, DriverObservation, bool) {
	for {
		if it.pendingIdx < len(it.pending) {
			p := it.pending[it.pendingIdx]
			it.pendingIdx++
			return p.c, p.obs, true
		}

		if it.done {
			return nil, DriverObservation{}, false
		}

		it.runCycle()

		if len(it.pending) == 0 {
			if it.activeEmpty() {
				it.finish()
				return nil, DriverObservation{}, false
			}
			time.Sleep(idleSleep)
			continue
		}
		it.pendingIdx = 0
	}
}

func (it *Iterator) activeEmpty() bool {
	it.d.mu.Lock()
	defer it.d.mu.Unlock()
	return len(it.d.active) == 0
}

func (it *Iterator) finish() {
	it.done = true
	it.d.mu.Lock()
	it.d.active = nil
	it.d.mu.Unlock()
}

// runCycle visits every currently-active member at most once, appending
// any produced events to it.pending.
func (it *Iterator) runCycle() {
	it.pending = it.pending[:0]

	it.d.mu.Lock()
	snapshot := make([]*child.Child, 0, len(it.d.active))
	for _, c := range it.d.order {
		if _, ok := it.d.active[c]; ok {
			snapshot = append(snapshot, c)
		}
	}
	it.d.mu.Unlock()

	now := time.Now()

	for _, c := range snapshot {
		it.d.mu.Lock()
		timers, stillActive := it.d.active[c]
		it.d.mu.Unlock()
		if !stillActive {
			continue
		}

		obs, err := c.ReadAvailable()
		if err != nil {
			// The child exited out from under this cycle (ReadAvailable
			// rejects anything past RUNNING). Its pipes are still open
			// until something Joins it, so take one last drain through
			// them before reporting ProcessEnded -- otherwise output
			// written just before exit is lost. If that drain still comes
			// up empty, the child is genuinely finished and is removed
			// from the active set.
			final, ferr := c.DrainExited()
			if ferr == nil && final != nil && (len(final.Stdout) > 0 || len(final.Stderr) > 0) {
				timers.chunkDeadline = now
				it.d.mu.Lock()
				it.d.active[c] = timers
				it.d.mu.Unlock()
				it.pending = append(it.pending, pendingYield{c, DriverObservation{Stdout: final.Stdout, Stderr: final.Stderr}})
				continue
			}
			it.d.mu.Lock()
			delete(it.d.active, c)
			it.d.mu.Unlock()
			it.pending = append(it.pending, pendingYield{c, DriverObservation{Err: &ProcessEndedError{Pid: c.Pid()}}})
			continue
		}
		if obs != nil && (len(obs.Stdout) > 0 || len(obs.Stderr) > 0) {
			timers.chunkDeadline = now
			it.d.mu.Lock()
			it.d.active[c] = timers
			it.d.mu.Unlock()
			it.pending = append(it.pending, pendingYield{c, DriverObservation{Stdout: obs.Stdout, Stderr: obs.Stderr}})
			continue
		}

		totalTimeout, hasTotal := effectiveTimeout(c, c.TotalTimeout, it.defaultTotal, it.hasDefaultTotal)
		chunkTimeout, hasChunk := effectiveTimeout(c, c.ChunkTimeout, it.defaultChunk, it.hasDefaultChunk)

		if hasTotal && now.After(timers.totalDeadline.Add(totalTimeout)) {
			it.d.mu.Lock()
			delete(it.d.active, c)
			it.d.mu.Unlock()
			it.pending = append(it.pending, pendingYield{c, DriverObservation{Err: &child.TotalTimeoutError{Pid: c.Pid(), Timeout: totalTimeout.Seconds()}}})
			continue
		}
		if hasChunk && now.After(timers.chunkDeadline.Add(chunkTimeout)) {
			// "Reset-then-remove" for fidelity with spec.md §9. The reset
			// only touches this cycle's local copy of the timers, which is
			// dropped with the active entry, so it has no observable
			// effect; a later ReturnBack installs fresh timers of its own.
			timers.chunkDeadline = now
			it.d.mu.Lock()
			delete(it.d.active, c)
			it.d.mu.Unlock()
			it.pending = append(it.pending, pendingYield{c, DriverObservation{Err: &child.ChunkTimeoutError{Pid: c.Pid(), Timeout: chunkTimeout.Seconds()}}})
			continue
		}
	}
}

// ReturnBack re-adds c to the active set of an in-progress iteration,
// after it was removed due to a timeout or natural exit (ProcessEnded).
// Valid only during iteration; returns *NotAMemberError if c is not a
// member of the Driver at all.
func (d *Driver) ReturnBack(c *child.Child) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.members[c]; !ok {
		return &NotAMemberError{}
	}
	if d.active == nil {
		// No iteration in progress: nothing to return c into.
		return nil
	}
	d.active[c] = childTimers{chunkDeadline: time.Now(), totalDeadline: time.Now()}
	return nil
}
