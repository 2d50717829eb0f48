package tracking

import (
	"log/slog"

	"github.com/rafaeljc/verdandi/data"
	"github.com/rafaeljc/verdandi/internal/datafile"
	"github.com/rafaeljc/verdandi/internal/visitor"
	"github.com/rafaeljc/verdandi/internal/wire"
)

// builder selects the unsent data of a set of visitors and renders the
// tracking lines for one request, stopping once the accumulated size
// exceeds the request size limit. Not safe for concurrent use.
type builder struct {
	visitorCodes []string
	dataFile     *datafile.DataFile
	visitors     *visitor.Manager
	sizeLimit    int
	logger       *slog.Logger

	totalSize int

	codesToSend []string
	codesToKeep []string
	unsentData  []data.Sendable
	lines       []string
}

func newBuilder(
	visitorCodes []string, dataFile *datafile.DataFile, visitors *visitor.Manager,
	sizeLimit int, logger *slog.Logger,
) *builder {
	return &builder{
		visitorCodes: visitorCodes,
		dataFile:     dataFile,
		visitors:     visitors,
		sizeLimit:    sizeLimit,
		logger:       logger,
	}
}

func (b *builder) build() {
	for _, visitorCode := range b.visitorCodes {
		if b.totalSize > b.sizeLimit {
			b.codesToKeep = append(b.codesToKeep, visitorCode)
			continue
		}
		v := b.visitors.GetVisitor(visitorCode)
		consentGiven := b.isConsentGiven(v)
		collected := b.collectVisitorData(visitorCode, v, consentGiven)
		if len(collected) > 0 {
			b.codesToSend = append(b.codesToSend, visitorCode)
			b.unsentData = append(b.unsentData, collected...)
		} else {
			b.logger.Debug("no tracking data for visitor",
				slog.String("visitor_code", visitorCode),
				slog.Bool("consent_given", consentGiven))
		}
	}
}

func (b *builder) isConsentGiven(v *visitor.Visitor) bool {
	return !b.dataFile.Settings().ConsentRequired || (v != nil && v.LegalConsent())
}

func (b *builder) collectVisitorData(
	visitorCode string, v *visitor.Visitor, consentGiven bool,
) []data.Sendable {
	useMappingValue, v := b.selfLinkIfRequired(visitorCode, v)
	unsent := collectUnsentData(v, consentGiven)
	b.collectLines(visitorCode, v, unsent, useMappingValue)
	return unsent
}

// selfLinkIfRequired handles a visitor whose code is an application-provided
// identifier but which has no anonymous visitor linked yet: it links the
// visitor to itself so the collector treats the code as a mapping value
// consistently.
func (b *builder) selfLinkIfRequired(
	visitorCode string, v *visitor.Visitor,
) (bool, *visitor.Visitor) {
	isMapped := false
	isUniqueIdentifier := false
	if v != nil {
		_, isMapped = v.MappingIdentifier()
		isUniqueIdentifier = v.IsUniqueIdentifier()
	}
	if isUniqueIdentifier && !isMapped {
		if index := b.dataFile.CustomDataInfo().MappingIdentifierIndex(); index != -1 {
			v = b.visitors.AddData(visitorCode, data.NewCustomData(index, visitorCode))
		}
	}
	useMappingValue := false
	if isUniqueIdentifier && v != nil {
		mapping, _ := v.MappingIdentifier()
		useMappingValue = visitorCode != mapping
	}
	return useMappingValue, v
}

func collectUnsentData(v *visitor.Visitor, consentGiven bool) []data.Sendable {
	var unsent []data.Sendable
	if v != nil {
		if consentGiven {
			for _, item := range v.EnumerateSendables() {
				if item.Unsent() {
					unsent = append(unsent, item)
				}
			}
		} else {
			// without consent only conversions and targeted delivery
			// assignments may leave the process
			for _, conversion := range v.Conversions() {
				if conversion.Unsent() {
					unsent = append(unsent, conversion)
				}
			}
			for _, variation := range v.Variations() {
				if variation.Unsent() && variation.RuleType() == datafile.RuleTargetedDelivery {
					unsent = append(unsent, variation)
				}
			}
		}
	}
	if len(unsent) == 0 && consentGiven {
		unsent = append(unsent, NewActivityEvent())
	}
	return unsent
}

func (b *builder) collectLines(
	visitorCode string, v *visitor.Visitor, unsent []data.Sendable, useMappingValue bool,
) {
	identParam := wire.ParamVisitorCode
	if useMappingValue {
		identParam = wire.ParamMappingValue
	}
	identity := wire.NewParam(identParam, visitorCode).String()
	userAgent := ""
	if v != nil {
		userAgent = v.UserAgent()
	}
	for _, item := range unsent {
		line := item.EncodeQuery()
		if line == "" {
			continue
		}
		line += "&" + identity
		if userAgent != "" {
			line += "&" + wire.NewParam(wire.ParamUserAgent, userAgent).String()
			userAgent = ""
		}
		b.totalSize += len(line)
		b.lines = append(b.lines, line)
	}
}
