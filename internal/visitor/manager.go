package visitor

import (
	"log/slog"
	"sync"
	"time"

	"github.com/spaolacci/murmur3"

	"github.com/rafaeljc/verdandi/data"
	"github.com/rafaeljc/verdandi/internal/datafile"
)

const shardCount = 16

type slot struct {
	mu           sync.Mutex
	visitor      *Visitor
	lastActivity time.Time
}

type shard struct {
	mu    sync.Mutex
	slots map[string]*slot
}

// CustomDataInfoSource yields the current custom data dimension metadata.
// It is consulted on every add so configuration refreshes take effect
// without restarting the manager.
type CustomDataInfoSource func() *datafile.CustomDataInfo

// Manager is a sharded in-memory visitor store. Visitors expire after a
// period of inactivity; Purge drops expired slots.
type Manager struct {
	shards     [shardCount]*shard
	expiration time.Duration
	infoSource CustomDataInfoSource
	logger     *slog.Logger
}

// NewManager returns a manager evicting visitors idle longer than
// expiration. infoSource may be nil when no custom data metadata is
// available yet.
func NewManager(expiration time.Duration, infoSource CustomDataInfoSource, logger *slog.Logger) *Manager {
	m := &Manager{
		expiration: expiration,
		infoSource: infoSource,
		logger:     logger,
	}
	for i := range m.shards {
		m.shards[i] = &shard{slots: map[string]*slot{}}
	}
	return m
}

func (m *Manager) shardFor(visitorCode string) *shard {
	return m.shards[murmur3.Sum32([]byte(visitorCode))%shardCount]
}

// acquire returns the locked slot for visitorCode, creating it when create
// is set. The caller must unlock the returned slot. A slot removed between
// lookup and locking is retried so the caller never observes a slot that
// Purge already detached.
func (m *Manager) acquire(visitorCode string, create bool) *slot {
	sh := m.shardFor(visitorCode)
	for {
		sh.mu.Lock()
		s, ok := sh.slots[visitorCode]
		if !ok {
			if !create {
				sh.mu.Unlock()
				return nil
			}
			s = &slot{}
			sh.slots[visitorCode] = s
		}
		sh.mu.Unlock()

		s.mu.Lock()
		sh.mu.Lock()
		current := sh.slots[visitorCode]
		sh.mu.Unlock()
		if current == s {
			return s
		}
		s.mu.Unlock()
	}
}

// GetVisitor returns the visitor for visitorCode, nil when unknown.
func (m *Manager) GetVisitor(visitorCode string) *Visitor {
	s := m.acquire(visitorCode, false)
	if s == nil {
		return nil
	}
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
	return s.visitor
}

// GetOrCreateVisitor returns the visitor for visitorCode, creating an empty
// one when unknown.
func (m *Manager) GetOrCreateVisitor(visitorCode string) *Visitor {
	s := m.acquire(visitorCode, true)
	defer s.mu.Unlock()
	if s.visitor == nil {
		s.visitor = New()
	}
	s.lastActivity = time.Now()
	return s.visitor
}

// AddData attaches data items to the visitor, applying the project's custom
// data dimension rules, and returns the visitor. Local-only custom data is
// marked sent so it never reaches the collector. When the mapping
// identifier dimension is set, the visitor is linked to the identity in its
// first value and the same visitor becomes reachable under that identity.
func (m *Manager) AddData(visitorCode string, items ...data.Data) *Visitor {
	var info *datafile.CustomDataInfo
	if m.infoSource != nil {
		info = m.infoSource()
	}
	processed := make([]data.Data, 0, len(items))
	for _, item := range items {
		cd, ok := item.(*data.CustomData)
		if !ok || info == nil {
			processed = append(processed, item)
			continue
		}
		if info.IsLocalOnly(cd.ID()) {
			cd.MarkAsSent()
		}
		if info.IsMappingIdentifier(cd.ID()) && len(cd.Values()) > 0 && cd.Values()[0] != "" {
			m.linkVisitor(visitorCode, cd.Values()[0])
			item = data.NewMappingIdentifier(cd)
		}
		processed = append(processed, item)
	}
	v := m.GetOrCreateVisitor(visitorCode)
	v.AddData(processed...)
	return v
}

// linkVisitor makes the visitor reachable under userID and records
// visitorCode as the code its assignments keep hashing with.
func (m *Manager) linkVisitor(visitorCode, userID string) {
	v := m.GetOrCreateVisitor(visitorCode)
	v.SetMappingIdentifier(visitorCode)
	if visitorCode == userID {
		return
	}
	clone := v.Clone()
	s := m.acquire(userID, true)
	s.visitor = clone
	s.lastActivity = time.Now()
	s.mu.Unlock()
	m.logger.Info("linked visitor to mapping identifier",
		slog.String("visitor_code", visitorCode),
		slog.String("user_id", userID))
}

// VisitorCodes snapshots the stored visitor codes.
func (m *Manager) VisitorCodes() []string {
	var codes []string
	for _, sh := range m.shards {
		sh.mu.Lock()
		for code := range sh.slots {
			codes = append(codes, code)
		}
		sh.mu.Unlock()
	}
	return codes
}

// Len returns the number of stored visitors.
func (m *Manager) Len() int {
	n := 0
	for _, sh := range m.shards {
		sh.mu.Lock()
		n += len(sh.slots)
		sh.mu.Unlock()
	}
	return n
}

// Purge drops visitors idle longer than the expiration period.
func (m *Manager) Purge() int {
	deadline := time.Now().Add(-m.expiration)
	purged := 0
	for _, sh := range m.shards {
		sh.mu.Lock()
		codes := make([]string, 0, len(sh.slots))
		for code := range sh.slots {
			codes = append(codes, code)
		}
		sh.mu.Unlock()

		for _, code := range codes {
			sh.mu.Lock()
			s, ok := sh.slots[code]
			sh.mu.Unlock()
			if !ok {
				continue
			}
			s.mu.Lock()
			sh.mu.Lock()
			if sh.slots[code] == s && (s.visitor == nil || s.lastActivity.Before(deadline)) {
				delete(sh.slots, code)
				purged++
			}
			sh.mu.Unlock()
			s.mu.Unlock()
		}
	}
	return purged
}
