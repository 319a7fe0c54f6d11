// Package memory is a map-backed implementation of the port repositories.
// It is the storage used by the test suite and by local development runs
// where no database DSN is configured. Per-account serialization is a
// mutex registry; WithAccountLock acquires the mutexes in sorted id order.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vendahub/ledger/internal/domain"
	"github.com/vendahub/ledger/internal/port"
)

// Store holds all tables behind one RWMutex plus a per-account lock
// registry. The repository views returned by Accounts, Transactions,
// Withdrawals and Transfers all share it.
type Store struct {
	mu          sync.RWMutex
	accounts    map[string]*domain.Account
	bySeller    map[string]string
	byNumber    map[string]string
	txs         map[string][]*domain.Transaction
	withdrawals map[string]*domain.WithdrawalRequest
	transfers   map[string]*domain.TransferRecord
	orders      map[string]*domain.Order
	costs       map[string]int64

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

func New() *Store {
	return &Store{
		accounts:    make(map[string]*domain.Account),
		bySeller:    make(map[string]string),
		byNumber:    make(map[string]string),
		txs:         make(map[string][]*domain.Transaction),
		withdrawals: make(map[string]*domain.WithdrawalRequest),
		transfers:   make(map[string]*domain.TransferRecord),
		orders:      make(map[string]*domain.Order),
		costs:       make(map[string]int64),
		locks:       make(map[string]*sync.Mutex),
	}
}

func (s *Store) Accounts() port.AccountRepository         { return &accountRepo{s} }
func (s *Store) Transactions() port.TransactionRepository { return &transactionRepo{s} }
func (s *Store) Withdrawals() port.WithdrawalRepository   { return &withdrawalRepo{s} }
func (s *Store) Transfers() port.TransferRepository       { return &transferRepo{s} }
func (s *Store) Orders() port.OrderSource                 { return &orderSource{s} }
func (s *Store) Costs() port.CostHistory                  { return &costHistory{s} }

// PutOrder seeds an order into the store (dev and test fixture path; the
// production order source is the marketplace database).
func (s *Store) PutOrder(o *domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	cp.Items = append([]domain.OrderItem(nil), o.Items...)
	s.orders[o.ID] = &cp
}

// PutUnitCost seeds a product cost snapshot.
func (s *Store) PutUnitCost(productID string, costCents int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.costs[productID] = costCents
}

func (s *Store) accountLock(id string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

//
// --- Accounts ---
//

type accountRepo struct{ s *Store }

func (r *accountRepo) Create(ctx context.Context, a *domain.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.bySeller[a.SellerID]; exists {
		return port.ErrConflict
	}
	if _, exists := r.s.accounts[a.ID]; exists {
		return port.ErrConflict
	}
	cp := *a
	r.s.accounts[a.ID] = &cp
	r.s.bySeller[a.SellerID] = a.ID
	r.s.byNumber[a.Number] = a.ID
	return nil
}

func (r *accountRepo) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *accountRepo) GetBySellerID(ctx context.Context, sellerID string) (*domain.Account, error) {
	r.s.mu.RLock()
	id, ok := r.s.bySeller[sellerID]
	r.s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *accountRepo) GetByNumber(ctx context.Context, number string) (*domain.Account, error) {
	r.s.mu.RLock()
	id, ok := r.s.byNumber[number]
	r.s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *accountRepo) Update(ctx context.Context, a *domain.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.accounts[a.ID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if cur.Version != a.Version {
		return port.ErrConflict
	}
	cp := *a
	cp.Version++
	cp.UpdatedAt = time.Now()
	r.s.accounts[a.ID] = &cp
	a.Version = cp.Version
	a.UpdatedAt = cp.UpdatedAt
	return nil
}

func (r *accountRepo) List(ctx context.Context) ([]*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.Account, 0, len(r.s.accounts))
	for _, a := range r.s.accounts {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// WithAccountLock serializes mutations for the given accounts. Lock order
// is sorted id so two transfers running in opposite directions cannot
// deadlock each other.
func (r *accountRepo) WithAccountLock(ctx context.Context, accountIDs []string, fn func(ctx context.Context) error) error {
	ids := make([]string, 0, len(accountIDs))
	seen := make(map[string]bool, len(accountIDs))
	for _, id := range accountIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	held := make([]*sync.Mutex, 0, len(ids))
	for _, id := range ids {
		l := r.s.accountLock(id)
		l.Lock()
		held = append(held, l)
	}
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}()
	return fn(ctx)
}

//
// --- Transactions (append-only) ---
//

type transactionRepo struct{ s *Store }

func (r *transactionRepo) Append(ctx context.Context, t *domain.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	log := r.s.txs[t.AccountID]
	t.Seq = int64(len(log)) + 1
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	cp := *t
	r.s.txs[t.AccountID] = append(log, &cp)
	return nil
}

func (r *transactionRepo) ListByAccount(ctx context.Context, accountID string, f port.TransactionFilter) ([]*domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	log := r.s.txs[accountID]
	var out []*domain.Transaction
	for i := len(log) - 1; i >= 0; i-- {
		t := log[i]
		if f.BeforeSeq > 0 && t.Seq >= f.BeforeSeq {
			continue
		}
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		if f.RelatedOrderID != "" && t.RelatedOrderID != f.RelatedOrderID {
			continue
		}
		cp := *t
		out = append(out, &cp)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

func (r *transactionRepo) FoldBalance(ctx context.Context, accountID string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var sum int64
	for _, t := range r.s.txs[accountID] {
		sum += t.AmountCents
	}
	return sum, nil
}

//
// --- Withdrawal requests ---
//

type withdrawalRepo struct{ s *Store }

func (r *withdrawalRepo) Create(ctx context.Context, w *domain.WithdrawalRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.withdrawals[w.ID]; exists {
		return port.ErrConflict
	}
	cp := *w
	r.s.withdrawals[w.ID] = &cp
	return nil
}

func (r *withdrawalRepo) GetByID(ctx context.Context, id string) (*domain.WithdrawalRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	w, ok := r.s.withdrawals[id]
	if !ok {
		return nil, domain.ErrWithdrawalNotFound
	}
	cp := *w
	return &cp, nil
}

func (r *withdrawalRepo) Update(ctx context.Context, w *domain.WithdrawalRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.withdrawals[w.ID]; !ok {
		return domain.ErrWithdrawalNotFound
	}
	cp := *w
	cp.UpdatedAt = time.Now()
	r.s.withdrawals[w.ID] = &cp
	return nil
}

func (r *withdrawalRepo) GetActiveByAccount(ctx context.Context, accountID string) (*domain.WithdrawalRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, w := range r.s.withdrawals {
		if w.AccountID == accountID && !w.Status.Terminal() {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *withdrawalRepo) List(ctx context.Context, status domain.WithdrawalStatus, accountID string) ([]*domain.WithdrawalRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.WithdrawalRequest
	for _, w := range r.s.withdrawals {
		if status != "" && w.Status != status {
			continue
		}
		if accountID != "" && w.AccountID != accountID {
			continue
		}
		cp := *w
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.Before(out[j].RequestedAt) })
	return out, nil
}

//
// --- Transfer records ---
//

type transferRepo struct{ s *Store }

func (r *transferRepo) Create(ctx context.Context, t *domain.TransferRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.transfers[t.ID]; exists {
		return port.ErrConflict
	}
	cp := *t
	r.s.transfers[t.ID] = &cp
	return nil
}

func (r *transferRepo) ListByAccount(ctx context.Context, accountID string) ([]*domain.TransferRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.TransferRecord
	for _, t := range r.s.transfers {
		if t.FromAccountID == accountID || t.ToAccountID == accountID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

//
// --- Orders and cost snapshots ---
//

type orderSource struct{ s *Store }

func (r *orderSource) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	cp.Items = append([]domain.OrderItem(nil), o.Items...)
	return &cp, nil
}

type costHistory struct{ s *Store }

func (r *costHistory) LastKnownUnitCost(ctx context.Context, productID string) (int64, bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.costs[productID]
	return c, ok, nil
}
