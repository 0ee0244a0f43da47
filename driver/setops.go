package driver

import "github.com/nick/procdrive/child"

// Union returns a new Driver containing every member of d and other.
// Rejected with *DontCallDuringIterationError while either Driver is
// mid-iteration.
func (d *Driver) Union(other *Driver) (*Driver, error) {
	if d.iterating() || other.iterating() {
		return nil, &DontCallDuringIterationError{Op: "union"}
	}
	out := New(d.GetAll()...)
	for _, c := range other.GetAll() {
		out.Add(c)
	}
	return out, nil
}

// UnionChildren unions d with a plain slice of children.
func (d *Driver) UnionChildren(children []*child.Child) (*Driver, error) {
	if d.iterating() {
		return nil, &DontCallDuringIterationError{Op: "union"}
	}
	out := New(d.GetAll()...)
	for _, c := range children {
		out.Add(c)
	}
	return out, nil
}

// Intersect returns a new Driver containing members present in both d and
// other. Read-only, so it is permitted even mid-iteration.
func (d *Driver) Intersect(other *Driver) *Driver {
	other.mu.Lock()
	otherMembers := make(map[*child.Child]struct{}, len(other.members))
	for c := range other.members {
		otherMembers[c] = struct{}{}
	}
	other.mu.Unlock()

	out := New()
	for _, c := range d.GetAll() {
		if _, ok := otherMembers[c]; ok {
			out.Add(c)
		}
	}
	return out
}

// Difference returns a new Driver containing members of d that are not in
// other. Rejected with *DontCallDuringIterationError while either Driver
// is mid-iteration.
func (d *Driver) Difference(other *Driver) (*Driver, error) {
	if d.iterating() || other.iterating() {
		return nil, &DontCallDuringIterationError{Op: "difference"}
	}
	other.mu.Lock()
	otherMembers := make(map[*child.Child]struct{}, len(other.members))
	for c := range other.members {
		otherMembers[c] = struct{}{}
	}
	other.mu.Unlock()

	out := New()
	for _, c := range d.GetAll() {
		if _, ok := otherMembers[c]; !ok {
			out.Add(c)
		}
	}
	return out, nil
}

// UnionAny, IntersectAny, and DifferenceAny accept operands typed as []any,
// for parity with callers working against a dynamically-typed
// configuration or test fixture (mirroring spec.md's WrongMember failure
// mode, which Go's static typing makes unreachable through the *Driver-
// and []*child.Child-typed methods above).
func (d *Driver) UnionAny(items []any) (*Driver, error) {
	children, err := toChildren(items)
	if err != nil {
		return nil, err
	}
	return d.UnionChildren(children)
}

func (d *Driver) IntersectAny(items []any) (*Driver, error) {
	children, err := toChildren(items)
	if err != nil {
		return nil, err
	}
	tmp := New(children...)
	return d.Intersect(tmp), nil
}

func (d *Driver) DifferenceAny(items []any) (*Driver, error) {
	children, err := toChildren(items)
	if err != nil {
		return nil, err
	}
	tmp := New(children...)
	return d.Difference(tmp)
}

func toChildren(items []any) ([]*child.Child, error) {
	out := make([]*child.Child, 0, len(items))
	for _, item := range items {
		c, ok := item.(*child.Child)
		if !ok {
			return nil, &WrongMemberError{Value: item}
		}
		out = append(out, c)
	}
	return out, nil
}
