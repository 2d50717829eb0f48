package datafile

import "log/slog"

const scopeVisitor = "VISITOR"

type customDataEntry struct {
	Index               *int   `json:"index"`
	LocalOnly           bool   `json:"localOnly"`
	Scope               string `json:"scope"`
	IsMappingIdentifier bool   `json:"isMappingIdentifier"`
}

// CustomDataInfo describes the project's custom data dimensions: which are
// kept local, which have visitor scope, and which one links cross-device
// identities.
type CustomDataInfo struct {
	mappingIdentifierIndex int
	localOnly              map[int]struct{}
	visitorScope           map[int]struct{}
}

func newCustomDataInfo(entries []customDataEntry, logger *slog.Logger) *CustomDataInfo {
	info := &CustomDataInfo{
		mappingIdentifierIndex: -1,
		localOnly:              map[int]struct{}{},
		visitorScope:           map[int]struct{}{},
	}
	for _, entry := range entries {
		if entry.Index == nil {
			continue
		}
		index := *entry.Index
		if entry.LocalOnly {
			info.localOnly[index] = struct{}{}
		}
		if entry.Scope == scopeVisitor {
			info.visitorScope[index] = struct{}{}
		}
		if entry.IsMappingIdentifier {
			if info.mappingIdentifierIndex != -1 {
				logger.Warn("more than one mapping identifier is configured, cross-device reconciliation may misbehave")
			}
			info.mappingIdentifierIndex = index
		}
	}
	return info
}

// IsLocalOnly reports whether the dimension never leaves the process.
func (c *CustomDataInfo) IsLocalOnly(index int) bool {
	_, ok := c.localOnly[index]
	return ok
}

// IsVisitorScope reports whether the dimension has visitor scope.
func (c *CustomDataInfo) IsVisitorScope(index int) bool {
	_, ok := c.visitorScope[index]
	return ok
}

// IsMappingIdentifier reports whether the dimension links cross-device
// identities.
func (c *CustomDataInfo) IsMappingIdentifier(index int) bool {
	return c.mappingIdentifierIndex != -1 && c.mappingIdentifierIndex == index
}

// MappingIdentifierIndex returns the linking dimension index, -1 when none
// is configured.
func (c *CustomDataInfo) MappingIdentifierIndex() int {
	return c.mappingIdentifierIndex
}
