package service_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/niksmo/pos-terminal/internal/core/domain"
	"github.com/niksmo/pos-terminal/internal/core/port"
)

type staticLister struct {
	mu sync.Mutex
	ps []domain.Product
	n  int
}

func (l *staticLister) ListProducts(
	ctx context.Context, ownerID string,
) ([]domain.Product, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.n++
	vs := make([]domain.Product, len(l.ps))
	copy(vs, l.ps)
	return vs, nil
}

func (l *staticLister) setProducts(ps []domain.Product) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ps = ps
}

func (l *staticLister) calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.n
}

type stockCall struct {
	ProductID string
	Stock     int
	Start     time.Time
	End       time.Time
}

// fakeStore records stock writes with optional latency and
// per-product injected failures.
type fakeStore struct {
	mu      sync.Mutex
	latency time.Duration
	failFor map[string]error
	writes  []stockCall
}

func (s *fakeStore) WriteStock(
	ctx context.Context, productID string, stock int,
) error {
	s.mu.Lock()
	latency := s.latency
	err := s.failFor[productID]
	s.mu.Unlock()

	start := time.Now()
	if latency > 0 {
		time.Sleep(latency)
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.writes = append(s.writes, stockCall{
		ProductID: productID, Stock: stock, Start: start, End: time.Now(),
	})
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) calls() []stockCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	vs := make([]stockCall, len(s.writes))
	copy(vs, s.writes)
	return vs
}

type saleCall struct {
	Sale domain.Sale
	At   time.Time
}

type fakeSales struct {
	mu    sync.Mutex
	err   error
	sales []saleCall
}

func (s *fakeSales) CreateSale(ctx context.Context, v domain.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sales = append(s.sales, saleCall{Sale: v, At: time.Now()})
	return nil
}

func (s *fakeSales) calls() []saleCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	vs := make([]saleCall, len(s.sales))
	copy(vs, s.sales)
	return vs
}

type notification struct {
	Message  string
	Severity port.Severity
}

type viewRecorder struct {
	mu            sync.Mutex
	notifications []notification
	gridRenders   int
	cartRenders   int
	confirmAnswer bool
}

func (v *viewRecorder) RenderProductGrid(ps []domain.Product) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gridRenders++
}

func (v *viewRecorder) RenderCartPanel(
	es []domain.CartEntry, t domain.CartTotals,
) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cartRenders++
}

func (v *viewRecorder) Notify(message string, severity port.Severity) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notifications = append(v.notifications, notification{message, severity})
}

func (v *viewRecorder) Confirm(prompt string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.confirmAnswer
}

func (v *viewRecorder) notified() []notification {
	v.mu.Lock()
	defer v.mu.Unlock()
	vs := make([]notification, len(v.notifications))
	copy(vs, v.notifications)
	return vs
}

func (v *viewRecorder) grids() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.gridRenders
}

type memSnaps struct {
	mu    sync.Mutex
	snap  []domain.SnapshotEntry
	saves int
}

func (m *memSnaps) Save(ctx context.Context, es []domain.SnapshotEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = make([]domain.SnapshotEntry, len(es))
	copy(m.snap, es)
	m.saves++
	return nil
}

func (m *memSnaps) Load(ctx context.Context) ([]domain.SnapshotEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	vs := make([]domain.SnapshotEntry, len(m.snap))
	copy(vs, m.snap)
	return vs, nil
}

func (m *memSnaps) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = nil
	return nil
}

func (m *memSnaps) current() []domain.SnapshotEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	vs := make([]domain.SnapshotEntry, len(m.snap))
	copy(vs, m.snap)
	return vs
}

type auditRecorder struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (a *auditRecorder) Append(ctx context.Context, e domain.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	return nil
}

func (a *auditRecorder) all() []domain.AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	vs := make([]domain.AuditEntry, len(a.entries))
	copy(vs, a.entries)
	return vs
}

// logRecorder captures slog output so tests can assert on logged
// error values.
type logRecorder struct {
	mu   sync.Mutex
	errs []error
}

func captureLogs(t *testing.T) *logRecorder {
	t.Helper()
	rec := &logRecorder{}
	prev := slog.Default()
	slog.SetDefault(slog.New(rec))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return rec
}

func (h *logRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (h *logRecorder) Handle(_ context.Context, r slog.Record) error {
	r.Attrs(func(a slog.Attr) bool {
		if err, ok := a.Value.Any().(error); ok {
			h.mu.Lock()
			h.errs = append(h.errs, err)
			h.mu.Unlock()
		}
		return true
	})
	return nil
}

func (h *logRecorder) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *logRecorder) WithGroup(string) slog.Handler { return h }

func (h *logRecorder) loggedErrs() []error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]error(nil), h.errs...)
}
