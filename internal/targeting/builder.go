package targeting

// The targeting expression arrives in two tiers: condition blocks chained by
// first-level operators, and conditions inside each block chained by the
// block's own operators. Both tiers fold left-to-right into a binary tree,
// with OR nodes grown right-deep so the identity short-circuit skips the
// whole remainder.

func buildTree(cd *conditionsData) *Tree {
	if cd == nil {
		return nil
	}
	state := &firstLevelState{levels: cd.FirstLevel, ops: cd.FirstLevelOrOperators}
	return state.build()
}

type firstLevelState struct {
	levels []secondLevel
	ops    []bool
}

func (s *firstLevelState) popOp() bool {
	if len(s.ops) == 0 {
		return false
	}
	op := s.ops[0]
	s.ops = s.ops[1:]
	return op
}

func (s *firstLevelState) popLevel() *Tree {
	level := s.levels[0]
	s.levels = s.levels[1:]
	state := &secondLevelState{conditions: level.Conditions, ops: level.OrOperators}
	return state.build()
}

func (s *firstLevelState) build() *Tree {
	if len(s.levels) == 0 {
		return nil
	}
	left := s.popLevel()
	if len(s.levels) == 0 {
		return left
	}
	op := s.popOp()
	if op {
		return &Tree{OrOperator: op, Left: left, Right: s.build()}
	}
	right := s.popLevel()
	tree := &Tree{OrOperator: op, Left: left, Right: right}
	if len(s.levels) == 0 {
		return tree
	}
	return &Tree{OrOperator: s.popOp(), Left: tree, Right: s.build()}
}

type secondLevelState struct {
	conditions []*conditionData
	ops        []bool
}

func (s *secondLevelState) popOp() bool {
	if len(s.ops) == 0 {
		return false
	}
	op := s.ops[0]
	s.ops = s.ops[1:]
	return op
}

func (s *secondLevelState) popCondition() *Tree {
	cd := s.conditions[0]
	s.conditions = s.conditions[1:]
	return &Tree{Condition: newCondition(cd)}
}

func (s *secondLevelState) build() *Tree {
	if len(s.conditions) == 0 {
		return nil
	}
	left := s.popCondition()
	if len(s.conditions) == 0 {
		return left
	}
	op := s.popOp()
	if op {
		return &Tree{OrOperator: op, Left: left, Right: s.build()}
	}
	right := s.popCondition()
	tree := &Tree{OrOperator: op, Left: left, Right: right}
	if len(s.conditions) == 0 {
		return tree
	}
	return &Tree{OrOperator: s.popOp(), Left: tree, Right: s.build()}
}
