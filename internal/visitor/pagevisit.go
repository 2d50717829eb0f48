package visitor

import (
	"time"

	"github.com/rafaeljc/verdandi/data"
)

// PageViewVisit accumulates repeated views of one URL: the latest page view,
// how often it was viewed and when it was last seen.
type PageViewVisit struct {
	PageView      *data.PageView
	Count         int
	LastTimestamp int64
}

func (v *PageViewVisit) DataType() data.Type { return data.TypePageViewVisit }

// NewPageViewVisit returns a visit for a page viewed once, now.
func NewPageViewVisit(pv *data.PageView) *PageViewVisit {
	return &PageViewVisit{PageView: pv, Count: 1, LastTimestamp: time.Now().UnixMilli()}
}

// Overwrite replaces the page view and counts one more visit.
func (v *PageViewVisit) Overwrite(pv *data.PageView) {
	v.PageView = pv
	v.Count++
}

// Merge folds another visit of the same URL into this one.
func (v *PageViewVisit) Merge(other *PageViewVisit) {
	v.Count += other.Count
	if other.LastTimestamp > v.LastTimestamp {
		v.LastTimestamp = other.LastTimestamp
	}
}
