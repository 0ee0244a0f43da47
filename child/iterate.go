package child

import "time"

// Iterator is the restartable pull-sequence returned by Child.Iterate.
// It has no generator/goroutine behind it: all work happens inside Next,
// driven entirely by the caller, per the single-threaded cooperative
// scheduling model.
type Iterator struct {
	c             *Child
	chunkTimeout  time.Duration
	hasChunk      bool
	totalTimeout  time.Duration
	hasTotal      bool
	chunkDeadline time.Time
	totalDeadline time.Time
	done          bool
	drainedFinal  bool
}

// Iterate registers a new iteration over this child's output. chunkTimeout
// and totalTimeout of zero mean "disabled". Re-entrant: calling Iterate
// again (e.g. after a previous Iterator raised a timeout) resets the
// timers.
func (c *Child) Iterate(chunkTimeout, totalTimeout time.Duration) *Iterator {
	now := time.Now()
	return &Iterator{
		c:             c,
		chunkTimeout:  chunkTimeout,
		hasChunk:      chunkTimeout > 0,
		totalTimeout:  totalTimeout,
		hasTotal:      totalTimeout > 0,
		chunkDeadline: now,
		totalDeadline: now,
	}
}

// Next advances the iteration by one step. It returns (obs, nil) when an
// Observation was produced, (zero, nil) with ok=false once the sequence is
// exhausted (the child has been fully drained and reaped), or a non-nil
// error (*ChunkTimeoutError, *TotalTimeoutError, or a propagated OS error)
// when the iteration must stop without reaping the child -- the caller may
// call Iterate again, or Kill/Terminate, to recover.
func (it *Iterator) Next() (Observation, error, bool) {
	if it.done {
		return Observation{}, nil, false
	}

	if it.c.neverStarted() {
		it.done = true
		return Observation{}, &ProcessNotStartedError{Op: "iterate"}, false
	}

	for {
		if !it.c.Alive() {
			// Final drain: pick up anything buffered since the last cycle.
			// The fds are still open at this point (Join, below, hasn't run
			// yet), so this reads through DrainExited rather than
			// ReadAvailable, which would reject a non-RUNNING child.
			if !it.drainedFinal {
				it.drainedFinal = true
				obs, err := it.c.DrainExited()
				if err != nil {
					obs = nil
				}
				if obs != nil && !obs.empty() {
					return *obs, nil, true
				}
			}
			it.done = true
			_ = it.c.Join()
			return Observation{}, nil, false
		}

		obs, err := it.c.ReadAvailable()
		if err != nil {
			if _, dead := err.(*ProcessAlreadyDeadError); dead {
				// The child exited between the Alive check and this read;
				// loop back so the final drain above picks up its last bytes.
				continue
			}
			return Observation{}, err, false
		}
		if obs != nil && !obs.empty() {
			it.chunkDeadline = time.Now()
			return *obs, nil, true
		}

		now := time.Now()
		if it.hasChunk && now.After(it.chunkDeadline.Add(it.chunkTimeout)) {
			return Observation{}, &ChunkTimeoutError{Pid: it.c.Pid(), Timeout: it.chunkTimeout.Seconds()}, false
		}
		if it.hasTotal && now.After(it.totalDeadline.Add(it.totalTimeout)) {
			return Observation{}, &TotalTimeoutError{Pid: it.c.Pid(), Timeout: it.totalTimeout.Seconds()}, false
		}

		time.Sleep(2 * time.Millisecond)
	}
}
