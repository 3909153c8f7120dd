package fixup

import "fmt"

// EntityState is the tracking lifecycle phase of an entity.
type EntityState uint8

// Entity states.
const (
	// Detached entities are not tracked and take no part in fixup.
	Detached EntityState = iota
	// Added entities are tracked and will be inserted on save.
	Added
	// Unchanged entities are tracked and match their stored row.
	Unchanged
	// Modified entities are tracked and differ from their stored row.
	Modified
	// Deleted entities are tracked but are no longer fixup targets.
	Deleted
)

var stateNames = [...]string{
	Detached:  "detached",
	Added:     "added",
	Unchanged: "unchanged",
	Modified:  "modified",
	Deleted:   "deleted",
}

// String returns the lower-case name of the state.
func (s EntityState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("EntityState(%d)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s EntityState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *EntityState) UnmarshalText(text []byte) error {
	v, err := ParseEntityState(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseEntityState parses the lower-case name of a state.
func ParseEntityState(name string) (EntityState, error) {
	for i, n := range stateNames {
		if n == name {
			return EntityState(i), nil
		}
	}
	return Detached, fmt.Errorf("fixup: unknown entity state %q", name)
}

// IsTracked reports whether entities in this state participate in fixup
// as a source of linkage.
func (s EntityState) IsTracked() bool {
	return s != Detached
}

// IsFixupTarget reports whether other entities may be linked to an
// entity in this state. Deleted entities are tracked but are never
// resolved as principals or dependents.
func (s EntityState) IsFixupTarget() bool {
	return s == Added || s == Unchanged || s == Modified
}

// CanTransition reports whether the state machine allows moving from s to next.
//
//	detached -> added | unchanged | modified
//	added | unchanged | modified -> any
//	deleted -> deleted | detached
func (s EntityState) CanTransition(next EntityState) bool {
	if next > Deleted {
		return false
	}
	switch s {
	case Detached:
		return next == Added || next == Unchanged || next == Modified || next == Detached
	case Added, Unchanged, Modified:
		return true
	case Deleted:
		return next == Deleted || next == Detached
	default:
		return false
	}
}

// States lists every attachment state a caller may request for a tracked entity.
func States() []EntityState {
	return []EntityState{Added, Unchanged, Modified}
}
