package data

import (
	"encoding/json"

	"github.com/rafaeljc/verdandi/internal/wire"
)

// PageView records a page the visitor viewed. Referrers are indices into the
// referrer list configured for the project. Page views keep their nonce
// across resends so the collector can deduplicate redelivered lines.
type PageView struct {
	SendableBase

	url       string
	title     string
	referrers []int
}

// NewPageView returns a page view for the given URL.
func NewPageView(url, title string, referrers ...int) *PageView {
	return &PageView{
		SendableBase: NewDuplicationSafeBase(),
		url:          url,
		title:        title,
		referrers:    referrers,
	}
}

func (p *PageView) DataType() Type { return TypePageView }

// URL returns the viewed page URL.
func (p *PageView) URL() string { return p.url }

// Title returns the viewed page title, possibly empty.
func (p *PageView) Title() string { return p.title }

// Referrers returns the referrer indices, possibly empty.
func (p *PageView) Referrers() []int { return p.referrers }

func (p *PageView) EncodeQuery() string {
	if p.url == "" {
		return ""
	}
	builder := wire.NewBuilder(
		wire.NewRawParam(wire.ParamEventType, wire.EventTypePage),
		wire.NewParam(wire.ParamHref, p.url),
		wire.NewParam(wire.ParamTitle, p.title),
	)
	if len(p.referrers) > 0 {
		encoded, err := json.Marshal(p.referrers)
		if err == nil {
			builder.Append(wire.NewParam(wire.ParamReferrers, string(encoded)))
		}
	}
	builder.Append(p.nonceParam())
	return builder.String()
}
