package driver

import "github.com/nick/procdrive/child"

// StartAll starts every member, returning the first error encountered
// alongside the child that produced it (nil if all started successfully).
// It does not stop at the first failure; every member is attempted.
func (d *Driver) StartAll() (*child.Child, error) {
	var firstErr error
	var firstChild *child.Child
	for _, c := range d.GetAll() {
		if err := c.Start(); err != nil && firstErr == nil {
			firstErr, firstChild = err, c
		}
	}
	return firstChild, firstErr
}

// KillAll sends SIGKILL to every alive member's process group and reaps
// it. Members that are not alive are skipped.
func (d *Driver) KillAll() (*child.Child, error) {
	var firstErr error
	var firstChild *child.Child
	for _, c := range d.GetAll() {
		if !c.Alive() {
			continue
		}
		if err := c.Kill(); err != nil && firstErr == nil {
			firstErr, firstChild = err, c
		}
	}
	return firstChild, firstErr
}

// TerminateAll sends SIGTERM to every alive member's process group and
// reaps it. Members that are not alive are skipped.
func (d *Driver) TerminateAll() (*child.Child, error) {
	var firstErr error
	var firstChild *child.Child
	for _, c := range d.GetAll() {
		if !c.Alive() {
			continue
		}
		if err := c.Terminate(); err != nil && firstErr == nil {
			firstErr, firstChild = err, c
		}
	}
	return firstChild, firstErr
}
