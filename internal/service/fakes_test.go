package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"stockfolio/internal/domain"
)

// fakeFetcher returns canned quotes per symbol and records call order.
type fakeFetcher struct {
	mu      sync.Mutex
	quotes  map[string]domain.Quote
	infos   map[string]domain.CompanyInfo
	errs    map[string]error
	fetched []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		quotes: make(map[string]domain.Quote),
		infos:  make(map[string]domain.CompanyInfo),
		errs:   make(map[string]error),
	}
}

func (f *fakeFetcher) FetchQuote(ctx context.Context, symbol string) (domain.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, symbol)
	if err, ok := f.errs[symbol]; ok {
		return domain.Quote{}, err
	}
	q, ok := f.quotes[symbol]
	if !ok {
		return domain.Quote{}, domain.ErrQuoteUnavailable
	}
	return q, nil
}

func (f *fakeFetcher) FetchCompanyInfo(ctx context.Context, symbol string) (domain.CompanyInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.infos[symbol]
	if !ok {
		return domain.CompanyInfo{}, domain.ErrQuoteUnavailable
	}
	return info, nil
}

func (f *fakeFetcher) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetched)
}

// fakeCache is an in-memory domain.QuoteCache.
type fakeCache struct {
	mu      sync.Mutex
	quotes  map[string]domain.Quote
	listErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{quotes: make(map[string]domain.Quote)}
}

func (c *fakeCache) Get(ctx context.Context, symbol string) (domain.Quote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.quotes[symbol]
	if !ok {
		return domain.Quote{}, domain.ErrNotFound
	}
	q.Source = domain.QuoteSourceCached
	return q, nil
}

func (c *fakeCache) Upsert(ctx context.Context, q domain.Quote) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.quotes[q.Symbol]; ok && cur.ObservedAt.After(q.ObservedAt) {
		return nil
	}
	c.quotes[q.Symbol] = q
	return nil
}

func (c *fakeCache) ListTrackedSymbols(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listErr != nil {
		return nil, c.listErr
	}
	symbols := make([]string, 0, len(c.quotes))
	for s := range c.quotes {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols, nil
}

func (c *fakeCache) ListAll(ctx context.Context) ([]domain.Quote, error) {
	symbols, err := c.ListTrackedSymbols(ctx)
	if err != nil {
		return nil, err
	}
	quotes := make([]domain.Quote, 0, len(symbols))
	for _, s := range symbols {
		q, err := c.Get(ctx, s)
		if err != nil {
			continue
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

func (c *fakeCache) Remove(ctx context.Context, symbol string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.quotes, symbol)
	return nil
}

// fakePublisher records every published quote.
type fakePublisher struct {
	mu        sync.Mutex
	published []domain.Quote
}

func (p *fakePublisher) Publish(ctx context.Context, q domain.Quote) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, q)
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

// fakeLocks is an in-process domain.LockManager.
type fakeLocks struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeLocks() *fakeLocks {
	return &fakeLocks{held: make(map[string]bool)}
}

func (l *fakeLocks) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, domain.ErrLockHeld
	}
	l.held[key] = true
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.held, key)
		})
	}, nil
}

// fakeStore is an in-memory domain.PositionStore.
type fakeStore struct {
	mu        sync.Mutex
	positions map[string]domain.Position // by ID
}

func newFakeStore() *fakeStore {
	return &fakeStore{positions: make(map[string]domain.Position)}
}

func (s *fakeStore) Get(ctx context.Context, owner, symbol string) (domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.positions {
		if p.Owner == owner && p.Symbol == symbol {
			return p, nil
		}
	}
	return domain.Position{}, domain.ErrNotFound
}

func (s *fakeStore) GetByID(ctx context.Context, id string) (domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[id]
	if !ok {
		return domain.Position{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *fakeStore) ListOpen(ctx context.Context, owner string) ([]domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Position
	for _, p := range s.positions {
		if p.Owner == owner {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
	return out, nil
}

func (s *fakeStore) Create(ctx context.Context, p domain.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.positions[p.ID]; ok {
		return errors.New("duplicate id")
	}
	s.positions[p.ID] = p
	return nil
}

func (s *fakeStore) Update(ctx context.Context, p domain.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.positions[p.ID]; !ok {
		return domain.ErrNotFound
	}
	s.positions[p.ID] = p
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.positions[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.positions, id)
	return nil
}
