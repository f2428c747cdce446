package play

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"luckyplay/internal/models"
	"luckyplay/internal/rewards"
)

// memStore mimics the MySQL store: the unique key and the stock guard are
// enforced inside Record under one lock, the way the transaction does.
type memStore struct {
	mu          sync.Mutex
	campaigns   map[int64]*models.Campaign
	prizes      map[int64]*models.Prize
	orders      map[string]*models.Order
	entries     map[string]models.PlayEntry
	failures    []models.RewardFailure
	prizeReads  int
	stockWrites int
}

func newMemStore() *memStore {
	return &memStore{
		campaigns: make(map[int64]*models.Campaign),
		prizes:    make(map[int64]*models.Prize),
		orders:    make(map[string]*models.Order),
		entries:   make(map[string]models.PlayEntry),
	}
}

func entryKey(campaignID int64, identity string) string {
	return strconv.FormatInt(campaignID, 10) + "|" + identity
}

func (m *memStore) GetCampaign(ctx context.Context, id int64) (*models.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) ActivePrizes(ctx context.Context, campaignID int64) ([]models.Prize, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prizeReads++
	out := make([]models.Prize, 0)
	for _, p := range m.prizes {
		if p.CampaignID == campaignID && p.Active {
			out = append(out, *p)
		}
	}
	sortPrizes(out)
	return out, nil
}

func (m *memStore) FindByNumber(ctx context.Context, number string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.Number == number {
			cp := *o
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) FindByID(ctx context.Context, id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memStore) FindByIdentity(ctx context.Context, campaignID int64, identityKey string) (*models.PlayEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[entryKey(campaignID, identityKey)]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (m *memStore) CountByCustomer(ctx context.Context, campaignID int64, customerKey string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.CampaignID == campaignID && e.CustomerKey == customerKey {
			n++
		}
	}
	return n, nil
}

func (m *memStore) Record(ctx context.Context, rec Recording) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prizes[rec.Entry.PrizeID]
	if !ok || !p.InStock() {
		return ErrStockConflict
	}
	key := entryKey(rec.Entry.CampaignID, rec.Entry.IdentityKey)
	if _, dup := m.entries[key]; dup {
		return ErrDuplicateEntry
	}
	p.UsedStock++
	m.stockWrites++
	m.entries[key] = rec.Entry
	c := m.campaigns[rec.Entry.CampaignID]
	c.TotalPlays++
	if rec.Entry.IsWinner {
		c.TotalWins++
	}
	if rec.OrderBacked {
		c.TotalOrders++
	}
	if rec.Failure != nil {
		m.failures = append(m.failures, *rec.Failure)
	}
	return nil
}

func (m *memStore) entryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *memStore) usedStock(prizeID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prizes[prizeID].UsedStock
}

type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }

type stubClient struct {
	mu    sync.Mutex
	calls int
	err   error
	block bool
}

func (s *stubClient) CreateReward(ctx context.Context, code string, sem rewards.Semantics, cons rewards.Constraints) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if s.err != nil {
		return "", s.err
	}
	return "ext-" + code, nil
}

type stubProvider struct {
	client rewards.Client
}

func (p stubProvider) Lookup(ctx context.Context, shop string) (rewards.Client, bool) {
	if p.client == nil {
		return nil, false
	}
	return p.client, true
}

var errRewardDown = errors.New("reward service down")

func intPtr(n int) *int { return &n }

func timePtr(t time.Time) *time.Time { return &t }

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// newTestEngine wires an engine over st with the given reward client.
func newTestEngine(st *memStore, client rewards.Client, src Source) *Engine {
	issuer := NewRewardIssuer(stubProvider{client: client})
	issuer.Timeout = 50 * time.Millisecond
	verifier := &Verifier{Orders: st, Entries: st}
	eng := NewEngine(st, verifier, issuer, st)
	if src != nil {
		eng.Rand = src
	}
	return eng
}

// scenarioStore is Scenario A's campaign: P1 (50, stock 1), P2 (50, unlimited).
func scenarioStore() *memStore {
	st := newMemStore()
	st.campaigns[1] = &models.Campaign{
		ID:                 1,
		Shop:               "demo.myshop.test",
		Mode:               models.ModeOrder,
		Active:             true,
		MinOrderAmount:     money("50"),
		AllowedOrderStatus: "paid",
	}
	st.prizes[11] = &models.Prize{ID: 11, CampaignID: 1, Name: "P1", Kind: models.PrizePercentDiscount, Value: money("10"), ChanceWeight: 50, TotalStock: intPtr(1), Active: true}
	st.prizes[12] = &models.Prize{ID: 12, CampaignID: 1, Name: "P2", Kind: models.PrizeFreeShipping, ChanceWeight: 50, Active: true}
	st.orders["O1"] = &models.Order{ID: "O1", Number: "1001", Amount: money("100"), Status: "paid", Customer: models.Customer{ID: "C1", Email: "a@example.com"}}
	return st
}
