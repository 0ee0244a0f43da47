// Package driver implements the Multi-Child Driver: a set of child.Child
// instances whose output is interleaved by a single, fair, round-robin
// iteration. Grounded on internal/process/controller.go's map-of-instances
// shape in this module's teacher repository, generalized from an
// id-keyed map to identity-keyed (pointer) membership per spec.md §9.
package driver

import (
	"sync"
	"time"

	"github.com/nick/procdrive/child"
)

// Driver owns a set of children and interleaves their output.
type Driver struct {
	mu      sync.Mutex
	members map[*child.Child]struct{}

	// active is nil when no iteration is in progress; set-algebra
	// mutation is rejected while it is non-nil.
	active map[*child.Child]childTimers

	// order preserves insertion order for round-robin fairness. Remove
	// splices a member out and Add appends, so a removed-then-re-added
	// member moves to the end (matching "insertion order is acceptable").
	order []*child.Child
}

type childTimers struct {
	chunkDeadline time.Time
	totalDeadline time.Time
}

// New constructs a Driver containing the given children.
func New(children ...*child.Child) *Driver {
	d := &Driver{members: make(map[*child.Child]struct{}, len(children))}
	for _, c := range children {
		d.addLocked(c)
	}
	return d
}

func (d *Driver) addLocked(c *child.Child) {
	if c == nil {
		return
	}
	if _, ok := d.members[c]; ok {
		return
	}
	d.members[c] = struct{}{}
	d.order = append(d.order, c)
}

// Add inserts a child into the member set. Valid at any time, including
// during an iteration (the child simply won't be polled until the next
// call to Iterate, unless re-added via ReturnBack semantics).
func (d *Driver) Add(c *child.Child) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.addLocked(c)
}

// Remove drops a child from the member set.
func (d *Driver) Remove(c *child.Child) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.members[c]; !ok {
		return
	}
	delete(d.members, c)
	delete(d.active, c)
	for i, m := range d.order {
		if m == c {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// Contains reports whether c is a member.
func (d *Driver) Contains(c *child.Child) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.members[c]
	return ok
}

// Len returns the number of members.
func (d *Driver) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.members)
}

// GetAll returns a snapshot of every member, in insertion order.
func (d *Driver) GetAll() []*child.Child {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*child.Child, len(d.order))
	copy(out, d.order)
	return out
}

// GetAlive returns members currently reporting Alive() == true.
func (d *Driver) GetAlive() []*child.Child {
	var out []*child.Child
	for _, c := range d.GetAll() {
		if c.Alive() {
			out = append(out, c)
		}
	}
	return out
}

// GetDead returns members currently reporting Alive() == false.
func (d *Driver) GetDead() []*child.Child {
	var out []*child.Child
	for _, c := range d.GetAll() {
		if !c.Alive() {
			out = append(out, c)
		}
	}
	return out
}

// iterating reports whether an Iterate call currently has active != nil.
func (d *Driver) iterating() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active != nil
}

// Equal compares the underlying member sets by identity, per spec.md §4.3.
func (d *Driver) Equal(other *Driver) bool {
	if other == nil {
		return false
	}
	d.mu.Lock()
	a := make(map[*child.Child]struct{}, len(d.members))
	for c := range d.members {
		a[c] = struct{}{}
	}
	d.mu.Unlock()

	other.mu.Lock()
	defer other.mu.Unlock()
	if len(a) != len(other.members) {
		return false
	}
	for c := range other.members {
		if _, ok := a[c]; !ok {
			return false
		}
	}
	return true
}
