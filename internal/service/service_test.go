package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/openpredict/settler/internal/domain"
)

// ---------------------------------------------------------------------------
// In-memory fakes shared by the service tests.
// ---------------------------------------------------------------------------

type fakeMarketStore struct {
	mu      sync.Mutex
	markets map[uint64]domain.Market
	gets    int
	upserts int
}

func newFakeMarketStore() *fakeMarketStore {
	return &fakeMarketStore{markets: make(map[uint64]domain.Market)}
}

func (s *fakeMarketStore) Upsert(_ context.Context, m domain.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	s.markets[m.ID] = m
	return nil
}

func (s *fakeMarketStore) GetByID(_ context.Context, id uint64) (domain.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	m, ok := s.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (s *fakeMarketStore) ListByStatus(_ context.Context, status domain.MarketStatus, _ domain.ListOpts) ([]domain.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Market
	for _, m := range s.markets {
		if m.Status == status {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeMarketStore) List(_ context.Context, _ domain.ListOpts) ([]domain.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Market, 0, len(s.markets))
	for _, m := range s.markets {
		out = append(out, m)
	}
	return out, nil
}

func (s *fakeMarketStore) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.markets)), nil
}

type fakeMarketCache struct {
	mu          sync.Mutex
	entries     map[uint64]domain.Market
	getErr      error
	sets        int
	invalidates int
}

func newFakeMarketCache() *fakeMarketCache {
	return &fakeMarketCache{entries: make(map[uint64]domain.Market)}
}

func (c *fakeMarketCache) Set(_ context.Context, m domain.Market) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.entries[m.ID] = m
	return nil
}

func (c *fakeMarketCache) Get(_ context.Context, id uint64) (domain.Market, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return domain.Market{}, c.getErr
	}
	m, ok := c.entries[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (c *fakeMarketCache) Invalidate(_ context.Context, id uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidates++
	delete(c.entries, id)
	return nil
}

type fakeEventStore struct {
	mu     sync.Mutex
	events []domain.Event
}

func (s *fakeEventStore) Append(_ context.Context, ev domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *fakeEventStore) ListByMarket(_ context.Context, marketID uint64, _ domain.ListOpts) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Event
	for _, ev := range s.events {
		if ev.MarketID == marketID {
			out = append(out, ev)
		}
	}
	return out, nil
}

type fakeOrderStore struct {
	mu     sync.Mutex
	orders []domain.Order
}

func (s *fakeOrderStore) Upsert(_ context.Context, o domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, o)
	return nil
}

func (s *fakeOrderStore) GetByID(context.Context, uint64, uint64) (domain.Order, error) {
	return domain.Order{}, domain.ErrNotFound
}
func (s *fakeOrderStore) ListOpen(context.Context, uint64) ([]domain.Order, error) { return nil, nil }
func (s *fakeOrderStore) ListByOwner(context.Context, string, domain.ListOpts) ([]domain.Order, error) {
	return nil, nil
}
func (s *fakeOrderStore) ListByMarket(context.Context, uint64, domain.ListOpts) ([]domain.Order, error) {
	return nil, nil
}

type fakeTradeStore struct {
	mu     sync.Mutex
	trades []domain.Trade
}

func (s *fakeTradeStore) InsertBatch(_ context.Context, trades []domain.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, trades...)
	return nil
}

func (s *fakeTradeStore) ListByMarket(context.Context, uint64, domain.ListOpts) ([]domain.Trade, error) {
	return nil, nil
}
func (s *fakeTradeStore) ListByOwner(context.Context, string, domain.ListOpts) ([]domain.Trade, error) {
	return nil, nil
}

type fakePositionStore struct {
	mu        sync.Mutex
	positions []domain.Position
}

func (s *fakePositionStore) Upsert(_ context.Context, p domain.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions = append(s.positions, p)
	return nil
}

func (s *fakePositionStore) Get(context.Context, uint64, string) (domain.Position, error) {
	return domain.Position{}, domain.ErrNotFound
}
func (s *fakePositionStore) ListByOwner(context.Context, string) ([]domain.Position, error) {
	return nil, nil
}
func (s *fakePositionStore) ListByMarket(context.Context, uint64) ([]domain.Position, error) {
	return nil, nil
}

type fakeProposalStore struct {
	mu        sync.Mutex
	proposals []domain.OracleProposal
}

func (s *fakeProposalStore) Upsert(_ context.Context, p domain.OracleProposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proposals = append(s.proposals, p)
	return nil
}

func (s *fakeProposalStore) GetByMarket(context.Context, uint64) (domain.OracleProposal, error) {
	return domain.OracleProposal{}, domain.ErrNotFound
}
func (s *fakeProposalStore) ListByStatus(context.Context, domain.ProposalStatus) ([]domain.OracleProposal, error) {
	return nil, nil
}

type fakeArchiver struct {
	mu    sync.Mutex
	calls []uint64
	err   error
}

func (a *fakeArchiver) ArchiveMarket(_ context.Context, marketID uint64) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return "", a.err
	}
	a.calls = append(a.calls, marketID)
	return "reports/ok", nil
}

type fakeLockManager struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeLockManager() *fakeLockManager {
	return &fakeLockManager{held: make(map[string]bool)}
}

func (l *fakeLockManager) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, domain.ErrLockHeld
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}, nil
}

var errCacheDown = errors.New("cache down")
