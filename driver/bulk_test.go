package driver

import (
	"testing"

	"github.com/nick/procdrive/child"
)

func TestStartAllStartsEveryMember(t *testing.T) {
	c1, err := child.NewChild("sleep 1")
	if err != nil {
		t.Fatalf("NewChild: %v", err)
	}
	c2, err := child.NewChild("sleep 1")
	if err != nil {
		t.Fatalf("NewChild: %v", err)
	}
	d := New(c1, c2)

	failed, err := d.StartAll()
	if err != nil {
		t.Fatalf("StartAll: %v (child %v)", err, failed)
	}
	defer d.KillAll()

	if !c1.Alive() || !c2.Alive() {
		t.Fatalf("expected both children to be running")
	}
}

func TestTerminateAllSkipsDeadMembers(t *testing.T) {
	alive, err := child.NewChild("sleep 1")
	if err != nil {
		t.Fatalf("NewChild: %v", err)
	}
	if err := alive.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	dead, err := child.NewChild("exit 0")
	if err != nil {
		t.Fatalf("NewChild: %v", err)
	}
	if err := dead.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	dead.Join()

	d := New(alive, dead)
	if failed, err := d.TerminateAll(); err != nil {
		t.Fatalf("TerminateAll: %v (child %v)", err, failed)
	}

	if alive.Alive() {
		t.Fatalf("expected alive child to be terminated")
	}
}

func TestKillAllReapsEveryAliveMember(t *testing.T) {
	c1, err := child.NewChild("sleep 5")
	if err != nil {
		t.Fatalf("NewChild: %v", err)
	}
	c2, err := child.NewChild("sleep 5")
	if err != nil {
		t.Fatalf("NewChild: %v", err)
	}
	if err := c1.Start(); err != nil {
		t.Fatalf("Start c1: %v", err)
	}
	if err := c2.Start(); err != nil {
		t.Fatalf("Start c2: %v", err)
	}

	d := New(c1, c2)
	if failed, err := d.KillAll(); err != nil {
		t.Fatalf("KillAll: %v (child %v)", err, failed)
	}
	if c1.Alive() || c2.Alive() {
		t.Fatalf("expected both children to be dead after KillAll")
	}
}
