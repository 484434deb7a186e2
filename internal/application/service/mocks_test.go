package service

import (
	"context"
	"sync"
	"time"

	"github.com/garyjia/draftflow/internal/application/port"
	"github.com/garyjia/draftflow/internal/domain/draft"
	"github.com/garyjia/draftflow/internal/domain/event"
)

// mockDraftRepo keeps drafts in memory and hands out copies, like a real store
type mockDraftRepo struct {
	mu     sync.Mutex
	drafts map[int64]*draft.Draft

	saveFunc func(ctx context.Context, d *draft.Draft) error
	listFunc func(ctx context.Context, filter port.DraftFilter) (*port.DraftPage, error)
}

func newMockDraftRepo() *mockDraftRepo {
	return &mockDraftRepo{drafts: make(map[int64]*draft.Draft)}
}

func (m *mockDraftRepo) Create(ctx context.Context, d *draft.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[d.ID] = cloneDraft(d)
	return nil
}

func (m *mockDraftRepo) GetByID(ctx context.Context, id int64) (*draft.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[id]
	if !ok {
		return nil, draft.ErrNotFound
	}
	return cloneDraft(d), nil
}

func (m *mockDraftRepo) Save(ctx context.Context, d *draft.Draft) error {
	if m.saveFunc != nil {
		if err := m.saveFunc(ctx, d); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range d.Steps {
		s.Version++
	}
	m.drafts[d.ID] = cloneDraft(d)
	return nil
}

func (m *mockDraftRepo) List(ctx context.Context, filter port.DraftFilter) (*port.DraftPage, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	return &port.DraftPage{}, nil
}

func (m *mockDraftRepo) ListHistory(ctx context.Context, draftID int64) ([]draft.History, error) {
	d, err := m.GetByID(ctx, draftID)
	if err != nil {
		return nil, err
	}
	return d.History, nil
}

func (m *mockDraftRepo) ListReferences(ctx context.Context, draftID int64) ([]draft.Reference, error) {
	d, err := m.GetByID(ctx, draftID)
	if err != nil {
		return nil, err
	}
	return d.References, nil
}

func (m *mockDraftRepo) stored(id int64) *draft.Draft {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneDraft(m.drafts[id])
}

func cloneDraft(d *draft.Draft) *draft.Draft {
	c := *d
	c.Steps = make([]*draft.Step, 0, len(d.Steps))
	for _, s := range d.Steps {
		c.Steps = append(c.Steps, s.Clone())
	}
	c.History = append([]draft.History(nil), d.History...)
	c.Attachments = append([]draft.Attachment(nil), d.Attachments...)
	c.References = append([]draft.Reference(nil), d.References...)
	return &c
}

type mockTemplateRepo struct {
	templates map[int64]*draft.ApprovalLineTemplate

	createFunc func(ctx context.Context, t *draft.ApprovalLineTemplate) error
	listFunc   func(ctx context.Context, feature, org string, activeOnly bool) ([]*draft.ApprovalLineTemplate, error)
}

func newMockTemplateRepo(templates ...*draft.ApprovalLineTemplate) *mockTemplateRepo {
	m := &mockTemplateRepo{templates: make(map[int64]*draft.ApprovalLineTemplate)}
	for _, t := range templates {
		m.templates[t.ID] = t
	}
	return m
}

func (m *mockTemplateRepo) Create(ctx context.Context, t *draft.ApprovalLineTemplate) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, t)
	}
	cp := *t
	m.templates[t.ID] = &cp
	return nil
}

func (m *mockTemplateRepo) Update(ctx context.Context, t *draft.ApprovalLineTemplate) error {
	cp := *t
	m.templates[t.ID] = &cp
	return nil
}

func (m *mockTemplateRepo) GetByID(ctx context.Context, id int64) (*draft.ApprovalLineTemplate, error) {
	t, ok := m.templates[id]
	if !ok {
		return nil, draft.ErrNotFound
	}
	cp := *t
	cp.Steps = append([]draft.TemplateStep(nil), t.Steps...)
	return &cp, nil
}

func (m *mockTemplateRepo) GetActiveByID(ctx context.Context, id int64) (*draft.ApprovalLineTemplate, error) {
	t, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.Active {
		return nil, draft.ErrNotFound
	}
	return t, nil
}

func (m *mockTemplateRepo) List(ctx context.Context, feature, org string, activeOnly bool) ([]*draft.ApprovalLineTemplate, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, feature, org, activeOnly)
	}
	return nil, nil
}

type mockFormRepo struct {
	getActiveByIDFunc func(ctx context.Context, id int64) (*port.FormTemplate, error)
}

func (m *mockFormRepo) GetActiveByID(ctx context.Context, id int64) (*port.FormTemplate, error) {
	if m.getActiveByIDFunc != nil {
		return m.getActiveByIDFunc(ctx, id)
	}
	return nil, draft.ErrNotFound
}

type mockDirectory struct {
	members map[string][]string
	err     error
}

func (m *mockDirectory) FindActiveMembers(ctx context.Context, groupCode string) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.members[groupCode], nil
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockIDs struct {
	mu   sync.Mutex
	next int64
}

func (m *mockIDs) NextID() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	return m.next, nil
}

type mockStorage struct {
	files map[string][]byte
}

func (m *mockStorage) Save(ctx context.Context, path string, content []byte) error {
	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	m.files[path] = content
	return nil
}

func (m *mockStorage) Read(ctx context.Context, path string) ([]byte, error) {
	return m.files[path], nil
}

func (m *mockStorage) Exists(ctx context.Context, path string) bool {
	_, ok := m.files[path]
	return ok
}

func (m *mockStorage) Delete(ctx context.Context, path string) error {
	delete(m.files, path)
	return nil
}

type mockPublisher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (m *mockPublisher) DispatchAsync(ctx context.Context, evt *event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
}

func (m *mockPublisher) types() []event.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]event.Type, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}

func (m *mockPublisher) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

type mockMetrics struct {
	operations map[string]int
	failures   map[string]int
	changes    []string
}

func (m *mockMetrics) ObserveOperation(operation string, err error, duration time.Duration) {
	if m.operations == nil {
		m.operations = make(map[string]int)
		m.failures = make(map[string]int)
	}
	m.operations[operation]++
	if err != nil {
		m.failures[operation]++
	}
}

func (m *mockMetrics) ObserveStatusChange(from, to draft.Status) {
	m.changes = append(m.changes, string(from)+"->"+string(to))
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}
