package data

import (
	"sync"

	"github.com/rafaeljc/verdandi/internal/wire"
)

// Sendable is implemented by data items that are delivered to the collector.
// An item starts unsent, is marked transmitting while a batch that contains it
// is in flight, and is marked sent once the batch is acknowledged. A failed
// batch moves its items back to unsent.
type Sendable interface {
	Data

	Nonce() string
	Unsent() bool
	Transmitting() bool
	Sent() bool
	MarkAsUnsent()
	MarkAsTransmitting()
	MarkAsSent()

	// EncodeQuery renders the item as one collector request line. An empty
	// string means the item carries nothing worth sending.
	EncodeQuery() string
}

type sendState int32

const (
	stateUnsent sendState = iota
	stateTransmitting
	stateSent
)

// SendableBase holds the delivery state shared by all Sendable
// implementations and is meant to be embedded.
//
// Items fall in two groups. Duplication-safe items (conversions, page views)
// obtain their nonce at construction and keep it across resends, so the
// collector can deduplicate a line that was delivered but not acknowledged.
// For the remaining items a resend is harmless, so the nonce is created
// lazily and dropped once the item is sent.
type SendableBase struct {
	mu    sync.Mutex
	state sendState
	nonce string
	lazy  bool
}

// NewDuplicationSafeBase returns delivery state with an eager nonce that
// survives resends and acknowledgment.
func NewDuplicationSafeBase() SendableBase {
	return SendableBase{nonce: wire.NewNonce()}
}

// NewDuplicationUnsafeBase returns delivery state with a lazily created
// nonce that is dropped once the item is sent.
func NewDuplicationUnsafeBase() SendableBase {
	return SendableBase{lazy: true}
}

func (s *SendableBase) Nonce() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lazy && s.nonce == "" && s.state != stateSent {
		s.nonce = wire.NewNonce()
	}
	return s.nonce
}

func (s *SendableBase) Unsent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateUnsent
}

func (s *SendableBase) Transmitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateTransmitting
}

func (s *SendableBase) Sent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateSent
}

// MarkAsUnsent reverts a transmitting item after a failed delivery. An item
// that was already sent stays sent.
func (s *SendableBase) MarkAsUnsent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateTransmitting {
		s.state = stateUnsent
	}
}

func (s *SendableBase) MarkAsTransmitting() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateUnsent {
		s.state = stateTransmitting
	}
}

func (s *SendableBase) MarkAsSent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = stateSent
	if s.lazy {
		s.nonce = ""
	}
}

// nonceParam returns the nonce query parameter, invalid once the item no
// longer carries a nonce.
func (s *SendableBase) nonceParam() wire.Param {
	return wire.NewParam(wire.ParamNonce, s.Nonce())
}
