package data

// Cookie carries the cookies visible to the application, keyed by name. It is
// never delivered to the collector; targeting conditions read it locally.
type Cookie struct {
	cookies map[string]string
}

// NewCookie returns cookie data for the given name to value map.
func NewCookie(cookies map[string]string) *Cookie {
	return &Cookie{cookies: cookies}
}

func (c *Cookie) DataType() Type { return TypeCookie }

// Cookies returns the cookie name to value map.
func (c *Cookie) Cookies() map[string]string { return c.cookies }

// UserAgent carries the visitor's user agent string. It is delivered once per
// visitor as a parameter of the first request line of a batch rather than as
// a line of its own.
type UserAgent struct {
	value string
}

// NewUserAgent returns user agent data.
func NewUserAgent(value string) *UserAgent {
	return &UserAgent{value: value}
}

func (u *UserAgent) DataType() Type { return TypeUserAgent }

// Value returns the user agent string.
func (u *UserAgent) Value() string { return u.value }

// VisitorVisits carries the start timestamps of the visitor's previous
// visits, most recent first, in milliseconds since the Unix epoch.
type VisitorVisits struct {
	prevVisits  []int64
	visitNumber int
}

// NewVisitorVisits returns visit history data.
func NewVisitorVisits(prevVisits []int64, visitNumber int) *VisitorVisits {
	return &VisitorVisits{prevVisits: prevVisits, visitNumber: visitNumber}
}

func (v *VisitorVisits) DataType() Type { return TypeVisitorVisits }

// PrevVisits returns the previous visit timestamps, most recent first.
func (v *VisitorVisits) PrevVisits() []int64 { return v.prevVisits }

// VisitNumber returns the ordinal of the current visit, zero when unknown.
func (v *VisitorVisits) VisitNumber() int { return v.visitNumber }

// KcsHeat carries key moment scores per goal, keyed by goal identifier and
// then by key moment identifier.
type KcsHeat struct {
	values map[int]map[int]float64
}

// NewKcsHeat returns key moment score data.
func NewKcsHeat(values map[int]map[int]float64) *KcsHeat {
	return &KcsHeat{values: values}
}

func (k *KcsHeat) DataType() Type { return TypeKcsHeat }

// Values returns the scores keyed by goal and key moment identifiers.
func (k *KcsHeat) Values() map[int]map[int]float64 { return k.values }

// UniqueIdentifier marks the visitor code as a stable application-provided
// identifier rather than a generated one, which changes how cross-device
// history is linked.
type UniqueIdentifier struct {
	value bool
}

// NewUniqueIdentifier returns unique identifier data.
func NewUniqueIdentifier(value bool) *UniqueIdentifier {
	return &UniqueIdentifier{value: value}
}

func (u *UniqueIdentifier) DataType() Type { return TypeUniqueIdentifier }

// Value reports whether the visitor code is a stable identifier.
func (u *UniqueIdentifier) Value() bool { return u.value }
