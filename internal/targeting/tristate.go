// Package targeting evaluates segment targeting trees against visitor data.
// A tree is a binary expression over conditions with three-valued logic:
// a condition that cannot be decided yields Unknown, and Unknown only resolves
// at the tree root, where it counts as targeted.
package targeting

// TriState is the result of evaluating a tree node.
type TriState int8

const (
	Unknown TriState = iota
	True
	False
)

// FromBool converts a decided boolean to a TriState.
func FromBool(b bool) TriState {
	if b {
		return True
	}
	return False
}

// Negate flips True and False and leaves Unknown untouched.
func (t TriState) Negate() TriState {
	switch t {
	case True:
		return False
	case False:
		return True
	default:
		return Unknown
	}
}

func (t TriState) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}
