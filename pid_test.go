package ensemble

import "testing"

func TestPID_ChildAndParent(t *testing.T) {
	root := NewPID("local", "root")
	child := root.Child("worker")
	if child.ID != "root/worker" {
		t.Fatalf("child id = %q, want %q", child.ID, "root/worker")
	}
	if child.Address != root.Address {
		t.Fatalf("child address = %q, want %q", child.Address, root.Address)
	}

	parent, ok := child.Parent()
	if !ok || parent != root {
		t.Fatalf("parent = %+v, %v; want %+v, true", parent, ok, root)
	}

	if _, ok := root.Parent(); ok {
		t.Fatalf("root-level pid must report no parent")
	}
}

func TestPID_StringIsWireFormat(t *testing.T) {
	p := NewPID("local", "root/child")
	if got, want := p.String(), "local/root/child"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestPID_IsZero(t *testing.T) {
	if !(PID{}).IsZero() {
		t.Fatal("zero-valued PID must report IsZero")
	}
	if NewPID("local", "x").IsZero() {
		t.Fatal("non-empty PID must not report IsZero")
	}
}

func TestPID_Equality(t *testing.T) {
	a := NewPID("local", "x")
	b := NewPID("local", "x")
	c := NewPID("remote", "x")
	if a != b {
		t.Fatal("equal fields must compare equal")
	}
	if a == c {
		t.Fatal("different system address must compare unequal")
	}
}
