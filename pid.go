package ensemble

import "strings"

// PID is the immutable logical handle for a process: {system address, id}.
// PIDs are value types, freely copyable, and never hold a reference to the
// target — resolving one to a live Process always goes back through a
// ProcessRegistry.
type PID struct {
	Address string
	ID      string
}

// NewPID builds a PID for the given local or remote system address.
func NewPID(address, id string) PID {
	return PID{Address: address, ID: id}
}

// Child returns the PID of a hierarchical child of this PID, joining the id
// with "/" as spec §3 requires (e.g. "root/child/grandchild").
func (p PID) Child(name string) PID {
	return PID{Address: p.Address, ID: p.ID + "/" + name}
}

// Parent returns the PID of the hierarchical parent, and false if this PID
// has no "/" in its id (a root-level actor).
func (p PID) Parent() (PID, bool) {
	idx := strings.LastIndexByte(p.ID, '/')
	if idx < 0 {
		return PID{}, false
	}
	return PID{Address: p.Address, ID: p.ID[:idx]}, true
}

// String returns the wire format from spec §6: "{system_address}/{id}".
func (p PID) String() string {
	return p.Address + "/" + p.ID
}

// IsZero reports whether p is the zero PID (used as a "no sender" marker).
func (p PID) IsZero() bool {
	return p.Address == "" && p.ID == ""
}
