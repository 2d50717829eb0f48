package targeting

import "encoding/json"

// Segment is a named targeting expression referenced by delivery rules.
type Segment struct {
	ID   int
	Tree *Tree
}

type segmentData struct {
	ID             int             `json:"id"`
	ConditionsData *conditionsData `json:"conditionsData"`
}

func (s *Segment) UnmarshalJSON(b []byte) error {
	var sd segmentData
	if err := json.Unmarshal(b, &sd); err != nil {
		return err
	}
	s.ID = sd.ID
	s.Tree = buildTree(sd.ConditionsData)
	return nil
}

// CheckTree evaluates the segment against the given data getter. A segment
// without a tree targets everyone.
func (s *Segment) CheckTree(get DataGetter) bool {
	if s == nil || s.Tree == nil {
		return true
	}
	return s.Tree.Check(get)
}
