package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/leadcapture/internal/entity"
)

// memStore is an in-memory implementation of every repository the pipeline
// uses.
type memStore struct {
	mu         sync.Mutex
	leads      map[string]*entity.Lead
	sources    map[string]*entity.LeadSource
	activities []entity.LeadActivity
	audit      []entity.AutomationLogEntry
	messages   map[string]*entity.WhatsAppMessage

	metadataUpdates int
}

func newMemStore() *memStore {
	return &memStore{
		leads:    map[string]*entity.Lead{},
		sources:  map[string]*entity.LeadSource{},
		messages: map[string]*entity.WhatsAppMessage{},
	}
}

func (s *memStore) FindByEmail(_ context.Context, email string) (*entity.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.leads {
		if l.Email != "" && l.Email == email {
			cp := *l
			return &cp, nil
		}
	}
	return nil, entity.ErrNotFound
}

func (s *memStore) FindByPhone(_ context.Context, phone string) (*entity.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.leads {
		if l.Phone != "" && l.Phone == phone {
			cp := *l
			return &cp, nil
		}
	}
	return nil, entity.ErrNotFound
}

func (s *memStore) Create(_ context.Context, lead *entity.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *lead
	s.leads[lead.ID] = &cp
	return nil
}

func (s *memStore) Update(_ context.Context, lead *entity.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *lead
	s.leads[lead.ID] = &cp
	return nil
}

func (s *memStore) UpdateChannelMetadata(_ context.Context, id, channel, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	if !ok {
		return entity.ErrNotFound
	}
	l.SourceChannel = channel
	l.SourceDetail = detail
	l.UpdatedAt = time.Now()
	s.metadataUpdates++
	return nil
}

func (s *memStore) GetOrCreate(_ context.Context, code, name, sourceType string) (*entity.LeadSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if src, ok := s.sources[code]; ok {
		return src, nil
	}
	src := &entity.LeadSource{ID: uuid.New().String(), Code: code, Name: name, Type: sourceType, IsActive: true}
	s.sources[code] = src
	return src, nil
}

func (s *memStore) lead(id string) entity.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.leads[id]
}

func (s *memStore) leadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.leads)
}

func (s *memStore) entries(rule, entityID string) []entity.AutomationLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.AutomationLogEntry
	for _, e := range s.audit {
		if e.RuleName == rule && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out
}

// memAudit, memActivities and memMessages expose the store under the
// method sets of the other repositories.
type memAudit struct{ *memStore }

func (a memAudit) Record(_ context.Context, entry *entity.AutomationLogEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.audit = append(a.audit, *entry)
	return nil
}

func (a memAudit) HasSuccessSince(_ context.Context, rule, entityID string, since time.Time) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.audit {
		if e.RuleName == rule && e.EntityID == entityID && e.Status == entity.AutomationSuccess && !e.ExecutedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (a memAudit) Exists(_ context.Context, rule, entityID string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.audit {
		if e.RuleName == rule && e.EntityID == entityID {
			return true, nil
		}
	}
	return false, nil
}

func (a memAudit) Claim(_ context.Context, entry *entity.AutomationLogEntry) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.audit {
		if e.RuleName == entry.RuleName && e.EntityID == entry.EntityID && e.Status == entity.AutomationProcessing {
			return false, nil
		}
	}
	a.audit = append(a.audit, *entry)
	return true, nil
}

type memActivities struct{ *memStore }

func (m memActivities) Create(_ context.Context, activity *entity.LeadActivity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activities = append(m.activities, *activity)
	return nil
}

type memMessages struct{ *memStore }

func (m memMessages) Create(_ context.Context, msg *entity.WhatsAppMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *msg
	m.messages[msg.ID] = &cp
	return nil
}

func (m memMessages) MarkProcessed(_ context.Context, id, leadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return entity.ErrNotFound
	}
	msg.Processed = true
	msg.LeadID = leadID
	return nil
}

// MockExtractor
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, systemPrompt, userContent string) (*entity.ExtractionResult, error) {
	args := m.Called(ctx, systemPrompt, userContent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ExtractionResult), args.Error(1)
}

// MockLeadRepository
type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) FindByEmail(ctx context.Context, email string) (*entity.Lead, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) FindByPhone(ctx context.Context, phone string) (*entity.Lead, error) {
	args := m.Called(ctx, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	return m.Called(ctx, lead).Error(0)
}

func (m *MockLeadRepository) Update(ctx context.Context, lead *entity.Lead) error {
	return m.Called(ctx, lead).Error(0)
}

func (m *MockLeadRepository) UpdateChannelMetadata(ctx context.Context, id, channel, detail string) error {
	return m.Called(ctx, id, channel, detail).Error(0)
}

type recordingNotifier struct {
	events chan entity.LeadCapturedEvent
}

func (n *recordingNotifier) NotifyLeadCaptured(_ context.Context, event entity.LeadCapturedEvent) error {
	n.events <- event
	return nil
}

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

// newTestPipeline wires a pipeline on an in-memory store with a clock the
// test can move.
func newTestPipeline(store *memStore, extractor Extractor, now *time.Time) *Pipeline {
	clock := func() time.Time { return *now }
	upsert := &UpsertLeadUseCase{Leads: store, Sources: store, Now: clock}
	p := NewPipeline(memAudit{store}, extractor, upsert, nil)
	p.Now = clock
	return p
}
