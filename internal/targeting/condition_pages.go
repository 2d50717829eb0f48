package targeting

// The page conditions all receive the visitor's page visits keyed by URL.

// pageURLCondition matches a visited page URL. The EXACT operator is a plain
// key lookup, the others scan every visit.
type pageURLCondition struct {
	stringCondition
}

func newPageURLCondition(cd *conditionData) Condition {
	return pageURLCondition{newStringCondition(cd, cd.URL)}
}

func (c pageURLCondition) Check(payload any) bool {
	visits, ok := payload.(map[string]PageVisit)
	if !ok {
		return false
	}
	if c.operator == OperatorExact {
		_, found := visits[c.conditionValue]
		return found
	}
	for _, visit := range visits {
		if c.match(visit.URL) {
			return true
		}
	}
	return false
}

// pageTitleCondition matches the title of any visited page.
type pageTitleCondition struct {
	stringCondition
}

func newPageTitleCondition(cd *conditionData) Condition {
	return pageTitleCondition{newStringCondition(cd, cd.Title)}
}

func (c pageTitleCondition) Check(payload any) bool {
	visits, ok := payload.(map[string]PageVisit)
	if !ok {
		return false
	}
	for _, visit := range visits {
		if c.match(visit.Title) {
			return true
		}
	}
	return false
}

// pageViewNumberCondition matches the total number of page views across all
// visited pages.
type pageViewNumberCondition struct {
	numberCondition
}

func newPageViewNumberCondition(cd *conditionData) Condition {
	return pageViewNumberCondition{newNumberCondition(cd, cd.PageCount)}
}

func (c pageViewNumberCondition) Check(payload any) bool {
	visits, ok := payload.(map[string]PageVisit)
	if !ok {
		return false
	}
	count := 0
	for _, visit := range visits {
		count += visit.Count
	}
	return c.matchCount(float64(count))
}

// previousPageCondition matches the URL of the page viewed before the most
// recent one.
type previousPageCondition struct {
	stringCondition
}

func newPreviousPageCondition(cd *conditionData) Condition {
	return previousPageCondition{newStringCondition(cd, cd.URL)}
}

func (c previousPageCondition) Check(payload any) bool {
	visits, ok := payload.(map[string]PageVisit)
	if !ok {
		return false
	}
	var mostRecent, secondMostRecent *PageVisit
	for _, visit := range visits {
		visit := visit
		switch {
		case mostRecent == nil || visit.LastTimestamp > mostRecent.LastTimestamp:
			secondMostRecent = mostRecent
			mostRecent = &visit
		case secondMostRecent == nil || visit.LastTimestamp > secondMostRecent.LastTimestamp:
			secondMostRecent = &visit
		}
	}
	return secondMostRecent != nil && c.match(secondMostRecent.URL)
}
