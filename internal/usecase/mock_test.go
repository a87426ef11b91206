//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"realestate-payments/internal/domain"
	"realestate-payments/internal/domain/model"
	"realestate-payments/internal/domain/ports/adapter"
	"realestate-payments/internal/domain/ports/repository"
)

// =============================
// Transactions
// =============================

// txStore is implemented by in-memory repos that take part in mock transactions.
type txStore interface {
	snapshot() func()
}

type mockTx struct{}

// MockTxManager serializes transactions (like row locks would) and restores every
// registered store when fn fails.
type MockTxManager struct {
	mu         sync.Mutex
	stores     []txStore
	Calls      int
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager(stores ...txStore) *MockTxManager {
	return &MockTxManager{stores: stores}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++

	restores := make([]func(), 0, len(m.stores))
	for _, s := range m.stores {
		restores = append(restores, s.snapshot())
	}
	if err := fn(ctx, mockTx{}); err != nil {
		for _, r := range restores {
			r()
		}
		return err
	}
	return nil
}

// =============================
// Repositories
// =============================

// ---- Payments ----

type MockPaymentRepo struct {
	mu   sync.Mutex
	data map[string]*model.Payment

	SaveFunc                  func(ctx context.Context, tx repository.Tx, p *model.Payment) error
	FindByIDFunc              func(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error)
	UpdateStatusIfPendingFunc func(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, ext *string) (bool, error)
}

var (
	_ repository.PaymentRepository = (*MockPaymentRepo)(nil)
	_ txStore                      = (*MockPaymentRepo)(nil)
)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{data: map[string]*model.Payment{}}
}

func clonePayment(p *model.Payment) *model.Payment {
	cp := *p
	if p.ExternalPaymentID != nil {
		ext := *p.ExternalPaymentID
		cp.ExternalPaymentID = &ext
	}
	return &cp
}

func (r *MockPaymentRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	saved := make(map[string]*model.Payment, len(r.data))
	for k, v := range r.data {
		saved[k] = clonePayment(v)
	}
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.data = saved
	}
}

func (r *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[p.ID]; ok {
		return domain.ErrAlreadyExists
	}
	r.data[p.ID] = clonePayment(p)
	return nil
}

func (r *MockPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clonePayment(p), nil
}

func (r *MockPaymentRepo) sorted() []*model.Payment {
	out := make([]*model.Payment, 0, len(r.data))
	for _, p := range r.data {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *MockPaymentRepo) FindByPreferenceID(ctx context.Context, tx repository.Tx, preferenceID string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.sorted() {
		if p.PreferenceID == preferenceID {
			return clonePayment(p), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockPaymentRepo) FindLatestPending(ctx context.Context, tx repository.Tx) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.sorted() {
		if p.Status == model.PaymentStatusPending {
			return clonePayment(p), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockPaymentRepo) UpdateStatusIfPending(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, ext *string) (bool, error) {
	if r.UpdateStatusIfPendingFunc != nil {
		return r.UpdateStatusIfPendingFunc(ctx, tx, id, status, ext)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok || p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.Status = status
	if ext != nil {
		v := *ext
		p.ExternalPaymentID = &v
	}
	p.UpdatedAt = time.Now()
	return true, nil
}

func (r *MockPaymentRepo) AttachExternalID(ctx context.Context, tx repository.Tx, id string, ext string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.ExternalPaymentID = &ext
	return nil
}

func (r *MockPaymentRepo) ListPendingWithExternalID(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.sorted() {
		if p.Status == model.PaymentStatusPending && p.ExternalPaymentID != nil && p.CreatedAt.Before(olderThan) {
			out = append(out, clonePayment(p))
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---- Plans ----

type MockPlanRepo struct {
	mu   sync.Mutex
	data map[string]*model.Plan

	SaveFunc func(ctx context.Context, tx repository.Tx, p *model.Plan) error
}

var _ repository.PlanRepository = (*MockPlanRepo)(nil)

func NewMockPlanRepo(plans ...*model.Plan) *MockPlanRepo {
	r := &MockPlanRepo{data: map[string]*model.Plan{}}
	for _, p := range plans {
		r.data[p.ID] = p
	}
	return r
}

func (r *MockPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.data[p.ID] = &cp
	return nil
}

func (r *MockPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockPlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Plan, 0, len(r.data))
	for _, p := range r.data {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	return out, nil
}

// ---- Subscriptions ----

type MockSubscriptionRepo struct {
	mu     sync.Mutex
	rows   []*model.UserSubscription
	Locked []string

	SaveFunc func(ctx context.Context, tx repository.Tx, s *model.UserSubscription) error
}

var (
	_ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)
	_ txStore                           = (*MockSubscriptionRepo)(nil)
)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{}
}

func (r *MockSubscriptionRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	saved := make([]*model.UserSubscription, len(r.rows))
	for i, s := range r.rows {
		cp := *s
		saved[i] = &cp
	}
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.rows = saved
	}
}

func (r *MockSubscriptionRepo) LockUser(ctx context.Context, tx repository.Tx, userID string) error {
	if tx == nil {
		return domain.ErrInvalidExecContext
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Locked = append(r.Locked, userID)
	return nil
}

func (r *MockSubscriptionRepo) CancelActiveByUser(ctx context.Context, tx repository.Tx, userID string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.rows {
		if s.UserID == userID && s.Status == model.SubscriptionStatusActive {
			s.Status = model.SubscriptionStatusCancelled
			t := at
			s.CancelledAt = &t
			n++
		}
	}
	return n, nil
}

// Save mirrors the partial unique index on active rows.
func (r *MockSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.UserSubscription) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, s)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.Status == model.SubscriptionStatusActive {
		for _, existing := range r.rows {
			if existing.UserID == s.UserID && existing.Status == model.SubscriptionStatusActive && existing.ID != s.ID {
				return domain.ErrAlreadyActive
			}
		}
	}
	cp := *s
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *MockSubscriptionRepo) FindActiveByUser(ctx context.Context, tx repository.Tx, userID string) (*model.UserSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.rows {
		if s.UserID == userID && s.Status == model.SubscriptionStatusActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockSubscriptionRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.UserSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.UserSubscription
	for _, s := range r.rows {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockSubscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[model.SubscriptionStatus]int{}
	for _, s := range r.rows {
		out[s.Status]++
	}
	return out, nil
}

// activeCount is a test helper.
func (r *MockSubscriptionRepo) activeCount(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.rows {
		if s.UserID == userID && s.Status == model.SubscriptionStatusActive {
			n++
		}
	}
	return n
}

// ---- Webhook events ----

type MockWebhookEventRepo struct {
	mu   sync.Mutex
	data map[string]*model.WebhookEvent
	ids  []string
}

var _ repository.WebhookEventRepository = (*MockWebhookEventRepo)(nil)

func NewMockWebhookEventRepo() *MockWebhookEventRepo {
	return &MockWebhookEventRepo{data: map[string]*model.WebhookEvent{}}
}

func (r *MockWebhookEventRepo) Save(ctx context.Context, tx repository.Tx, e *model.WebhookEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.data[e.ID] = &cp
	r.ids = append(r.ids, e.ID)
	return nil
}

func (r *MockWebhookEventRepo) MarkProcessed(ctx context.Context, tx repository.Tx, id string, outcome model.WebhookOutcome, errMsg string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.Outcome = outcome
	e.Error = errMsg
	t := at
	e.ProcessedAt = &t
	return nil
}

func (r *MockWebhookEventRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *MockWebhookEventRepo) ListRecent(ctx context.Context, tx repository.Tx, limit int) ([]*model.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.WebhookEvent
	for i := len(r.ids) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		cp := *r.data[r.ids[i]]
		out = append(out, &cp)
	}
	return out, nil
}

// =============================
// Adapters
// =============================

// ---- Preference gateway ----

type MockGateway struct {
	mu       sync.Mutex
	seq      int
	Requests []adapter.PreferenceRequest
	Payments map[string]*adapter.ProviderPayment
	GetCalls int

	CreatePreferenceFunc func(ctx context.Context, req adapter.PreferenceRequest) (*adapter.Preference, error)
	GetPaymentFunc       func(ctx context.Context, id string) (*adapter.ProviderPayment, error)
}

var _ adapter.PreferenceGateway = (*MockGateway)(nil)

func NewMockGateway() *MockGateway {
	return &MockGateway{Payments: map[string]*adapter.ProviderPayment{}}
}

func (g *MockGateway) Name() string { return "mercadopago" }

func (g *MockGateway) CreatePreference(ctx context.Context, req adapter.PreferenceRequest) (*adapter.Preference, error) {
	g.mu.Lock()
	g.Requests = append(g.Requests, req)
	g.seq++
	id := fmt.Sprintf("pref-%d", g.seq)
	g.mu.Unlock()
	if g.CreatePreferenceFunc != nil {
		return g.CreatePreferenceFunc(ctx, req)
	}
	return &adapter.Preference{ID: id, InitPoint: "https://mp.test/checkout/" + id, SandboxInitPoint: "https://sandbox.mp.test/checkout/" + id}, nil
}

func (g *MockGateway) GetPayment(ctx context.Context, id string) (*adapter.ProviderPayment, error) {
	g.mu.Lock()
	g.GetCalls++
	g.mu.Unlock()
	if g.GetPaymentFunc != nil {
		return g.GetPaymentFunc(ctx, id)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.Payments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// SetPayment records what the provider reports for a payment id.
func (g *MockGateway) SetPayment(p *adapter.ProviderPayment) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Payments[p.ID] = p
}

// ---- Notifier ----

type MockNotifier struct {
	mu   sync.Mutex
	Sent []model.Payment
	Err  error
}

func (n *MockNotifier) NotifyPaymentStatus(ctx context.Context, p *model.Payment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Sent = append(n.Sent, *p)
	return n.Err
}

// ---- Verifier ----

type MockVerifier struct {
	Err error
}

func (v *MockVerifier) VerifyNotification(signatureHeader, requestID, dataID string) error {
	return v.Err
}

// ---- In-memory Locker (implements adapter.Locker) ----

type MockLocker struct {
	mu    sync.Mutex
	held  map[string]string
	ErrOn map[string]error
}

var _ adapter.Locker = (*MockLocker)(nil)

func NewMockLocker() *MockLocker {
	return &MockLocker{held: map[string]string{}, ErrOn: map[string]error{}}
}

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err, bad := l.ErrOn[key]; bad {
		return "", err
	}
	if tok, ok := l.held[key]; ok && tok != "" {
		return "", domain.ErrLocked
	}
	tok := uuid.NewString()
	l.held[key] = tok
	return tok, nil
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

// Hold marks key as held by someone else.
func (l *MockLocker) Hold(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held[key] = "other"
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
// It writes to io.Discard to prevent logs from cluttering test output.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

func txOptions() pgx.TxOptions { return pgx.TxOptions{} }
