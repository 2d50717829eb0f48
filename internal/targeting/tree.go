package targeting

// Tree is a node of a targeting expression. A node either holds a condition
// (leaf) or combines its children with one boolean operator. A nil child is
// treated as targeted.
type Tree struct {
	OrOperator bool
	Left       *Tree
	Right      *Tree
	Condition  Condition
}

// Check evaluates the tree against the given data getter. An overall Unknown
// resolves to targeted.
func (t *Tree) Check(get DataGetter) bool {
	return t.check(get) != False
}

func (t *Tree) check(get DataGetter) TriState {
	if t == nil {
		return True
	}
	if t.Condition != nil {
		return t.checkCondition(get)
	}

	left := t.Left.check(get)

	// The operator's identity short-circuits: true for OR, false for AND.
	computeRight := left == Unknown || left != FromBool(t.OrOperator)
	right := Unknown
	if computeRight {
		right = t.Right.check(get)
	}

	if left == Unknown {
		if right == FromBool(t.OrOperator) {
			return right
		}
		return Unknown
	}
	if left == FromBool(t.OrOperator) {
		return left
	}
	return right
}

func (t *Tree) checkCondition(get DataGetter) TriState {
	result := FromBool(t.Condition.Check(get(t.Condition.Type())))
	if !t.Condition.Include() {
		result = result.Negate()
	}
	return result
}
