package handler_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"wallet-pos-bridge/internal/core/domain"
	"wallet-pos-bridge/internal/core/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- In-Memory Ledger ---

type inMemoryLedger struct {
	mu       sync.Mutex
	nextID   int64
	balances map[int64]decimal.Decimal
	txs      []*domain.WalletTransaction
}

func newInMemoryLedger() *inMemoryLedger {
	return &inMemoryLedger{balances: make(map[int64]decimal.Decimal)}
}

func (l *inMemoryLedger) Balance(_ context.Context, userID int64) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[userID], nil
}

func (l *inMemoryLedger) Record(_ context.Context, entry domain.LedgerEntry) (*domain.WalletTransaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !domain.ValidAmount(entry.Amount) {
		return nil, fmt.Errorf("record transaction: amount %s must be positive with at most %d decimals", entry.Amount, domain.AmountScale)
	}
	if ref := entry.Meta[domain.MetaExternalReference]; ref != "" {
		for _, tx := range l.txs {
			if tx.ExternalReference() == ref {
				return nil, domain.ErrDuplicateReference
			}
		}
	}

	balance := l.balances[entry.UserID]
	if entry.Type == domain.TransactionTypeDebit {
		if entry.Amount.GreaterThan(balance) {
			return nil, domain.ErrInsufficientFunds
		}
		balance = balance.Sub(entry.Amount)
	} else {
		balance = balance.Add(entry.Amount)
	}
	l.balances[entry.UserID] = balance

	l.nextID++
	tx := &domain.WalletTransaction{
		ID:        l.nextID,
		UserID:    entry.UserID,
		Type:      entry.Type,
		Amount:    entry.Amount,
		Balance:   balance,
		Currency:  entry.Currency,
		Details:   entry.Details,
		CreatedAt: time.Now().UTC(),
		Meta:      copyMeta(entry.Meta),
	}
	l.txs = append(l.txs, tx)
	return cloneTx(tx), nil
}

func (l *inMemoryLedger) GetByID(_ context.Context, id int64) (*domain.WalletTransaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, tx := range l.txs {
		if tx.ID == id {
			return cloneTx(tx), nil
		}
	}
	return nil, nil
}

func (l *inMemoryLedger) FindByReference(_ context.Context, reference string) (*domain.WalletTransaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, tx := range l.txs {
		if tx.ExternalReference() == reference {
			return cloneTx(tx), nil
		}
	}
	return nil, nil
}

func (l *inMemoryLedger) SetMeta(_ context.Context, transactionID int64, meta map[string]string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, tx := range l.txs {
		if tx.ID == transactionID {
			if tx.Meta == nil {
				tx.Meta = make(map[string]string)
			}
			for k, v := range meta {
				tx.Meta[k] = v
			}
			return nil
		}
	}
	return fmt.Errorf("transaction %d not found", transactionID)
}

func (l *inMemoryLedger) List(_ context.Context, userID int64, page, perPage int) ([]domain.WalletTransaction, int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var rows []domain.WalletTransaction
	for i := len(l.txs) - 1; i >= 0; i-- {
		if l.txs[i].UserID == userID {
			rows = append(rows, *cloneTx(l.txs[i]))
		}
	}
	total := int64(len(rows))
	start := (page - 1) * perPage
	if start >= len(rows) {
		return []domain.WalletTransaction{}, total, nil
	}
	end := start + perPage
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end], total, nil
}

// transactions returns a snapshot of every row for userID.
func (l *inMemoryLedger) transactions(userID int64) []domain.WalletTransaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.WalletTransaction
	for _, tx := range l.txs {
		if tx.UserID == userID {
			out = append(out, *cloneTx(tx))
		}
	}
	return out
}

func (l *inMemoryLedger) countByReference(reference string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, tx := range l.txs {
		if tx.ExternalReference() == reference {
			n++
		}
	}
	return n
}

func copyMeta(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneTx(tx *domain.WalletTransaction) *domain.WalletTransaction {
	c := *tx
	c.Meta = copyMeta(tx.Meta)
	return &c
}

// --- In-Memory Customer Repo ---

type inMemoryCustomerRepo struct {
	mu        sync.RWMutex
	nextID    int64
	customers map[int64]*domain.Customer
}

func newInMemoryCustomerRepo() *inMemoryCustomerRepo {
	return &inMemoryCustomerRepo{customers: make(map[int64]*domain.Customer)}
}

func (r *inMemoryCustomerRepo) Create(_ context.Context, c *domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.customers {
		if existing.Email == c.Email {
			return fmt.Errorf("email already exists")
		}
	}
	r.nextID++
	c.ID = r.nextID
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	stored := *c
	r.customers[c.ID] = &stored
	return nil
}

func (r *inMemoryCustomerRepo) GetByID(_ context.Context, id int64) (*domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.customers[id]
	if !ok {
		return nil, nil
	}
	out := *c
	return &out, nil
}

func (r *inMemoryCustomerRepo) GetByEmail(_ context.Context, email string) (*domain.Customer, error) {
	return r.find(func(c *domain.Customer) bool { return c.Email == email }), nil
}

func (r *inMemoryCustomerRepo) GetByPhone(_ context.Context, phone string) (*domain.Customer, error) {
	return r.find(func(c *domain.Customer) bool { return c.Phone == phone }), nil
}

func (r *inMemoryCustomerRepo) find(match func(*domain.Customer) bool) *domain.Customer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.customers {
		if match(c) {
			out := *c
			return &out
		}
	}
	return nil
}

// --- In-Memory Balance Cache ---

type inMemoryBalanceCache struct {
	mu      sync.Mutex
	entries map[int64]*domain.BalanceCache
}

func newInMemoryBalanceCache() *inMemoryBalanceCache {
	return &inMemoryBalanceCache{entries: make(map[int64]*domain.BalanceCache)}
}

func (r *inMemoryBalanceCache) Get(_ context.Context, userID int64) (*domain.BalanceCache, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[userID]
	if !ok {
		return nil, nil
	}
	out := *e
	return &out, nil
}

func (r *inMemoryBalanceCache) Set(_ context.Context, userID int64, balance decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[userID] = &domain.BalanceCache{UserID: userID, Balance: balance, UpdatedAt: time.Now().UTC()}
	return nil
}

// --- In-Memory Order Repo ---

type inMemoryOrderRepo struct {
	mu     sync.RWMutex
	orders map[int64]*domain.Order
}

func newInMemoryOrderRepo() *inMemoryOrderRepo {
	return &inMemoryOrderRepo{orders: make(map[int64]*domain.Order)}
}

func (r *inMemoryOrderRepo) put(o *domain.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *o
	r.orders[o.ID] = &stored
}

func (r *inMemoryOrderRepo) GetByID(_ context.Context, id int64) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	out := *o
	return &out, nil
}

func (r *inMemoryOrderRepo) Update(_ context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.orders[o.ID]
	if !ok {
		return fmt.Errorf("order not found")
	}
	stored := *o
	// Refund accounting is owned by ReserveRefund/ReleaseRefund.
	stored.RefundedTotal = current.RefundedTotal
	stored.RefundCount = current.RefundCount
	stored.UpdatedAt = time.Now().UTC()
	r.orders[o.ID] = &stored
	return nil
}

func (r *inMemoryOrderRepo) ReserveRefund(_ context.Context, id int64, amount decimal.Decimal) (*domain.Order, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, false, fmt.Errorf("order not found")
	}
	if o.RefundedTotal.Add(amount).GreaterThan(o.Total) {
		return nil, false, nil
	}
	o.RefundedTotal = o.RefundedTotal.Add(amount)
	o.RefundCount++
	out := *o
	return &out, true, nil
}

func (r *inMemoryOrderRepo) ReleaseRefund(_ context.Context, id int64, amount decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order not found")
	}
	o.RefundedTotal = decimal.Max(o.RefundedTotal.Sub(amount), decimal.Zero)
	return nil
}

// --- In-Memory Storefront ---

type inMemoryStorefront struct {
	mu    sync.Mutex
	notes map[int64][]string
	stock map[int64]int
}

func newInMemoryStorefront() *inMemoryStorefront {
	return &inMemoryStorefront{notes: make(map[int64][]string), stock: make(map[int64]int)}
}

func (s *inMemoryStorefront) ReduceStock(_ context.Context, orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stock[orderID]++
	return nil
}

func (s *inMemoryStorefront) EmptyCart(context.Context, int64) error { return nil }

func (s *inMemoryStorefront) AddOrderNote(_ context.Context, orderID int64, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes[orderID] = append(s.notes[orderID], note)
	return nil
}

// --- In-Memory Credential Repo ---

type inMemoryCredentialRepo struct {
	mu     sync.Mutex
	stored *ports.StoredCredentials
}

func (r *inMemoryCredentialRepo) Get(context.Context) (*ports.StoredCredentials, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stored == nil {
		return nil, nil
	}
	out := *r.stored
	return &out, nil
}

func (r *inMemoryCredentialRepo) Save(_ context.Context, creds *ports.StoredCredentials) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *creds
	r.stored = &stored
	return nil
}

// --- In-Memory Sync Outbox ---

type inMemorySyncJobRepo struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*domain.SyncJob
}

func newInMemorySyncJobRepo() *inMemorySyncJobRepo {
	return &inMemorySyncJobRepo{jobs: make(map[uuid.UUID]*domain.SyncJob)}
}

func (r *inMemorySyncJobRepo) Enqueue(_ context.Context, job *domain.SyncJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *job
	r.jobs[job.ID] = &stored
	return nil
}

func (r *inMemorySyncJobRepo) ClaimDue(_ context.Context, limit int, lease time.Duration) ([]domain.SyncJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	var due []*domain.SyncJob
	for _, j := range r.jobs {
		if j.Status == domain.SyncJobPending && !j.NextRunAt.After(now) {
			due = append(due, j)
		}
	}
	sort.Slice(due, func(a, b int) bool { return due[a].CreatedAt.Before(due[b].CreatedAt) })
	if len(due) > limit {
		due = due[:limit]
	}

	out := make([]domain.SyncJob, 0, len(due))
	for _, j := range due {
		j.NextRunAt = now.Add(lease)
		out = append(out, *j)
	}
	return out, nil
}

func (r *inMemorySyncJobRepo) MarkDone(_ context.Context, id uuid.UUID, attempt int) error {
	return r.update(id, func(j *domain.SyncJob) {
		j.Status = domain.SyncJobDone
		j.Attempt = attempt
	})
}

func (r *inMemorySyncJobRepo) Reschedule(_ context.Context, id uuid.UUID, attempt int, nextRunAt time.Time, lastErr string) error {
	return r.update(id, func(j *domain.SyncJob) {
		j.Attempt = attempt
		j.NextRunAt = nextRunAt
		j.LastError = &lastErr
	})
}

func (r *inMemorySyncJobRepo) MarkFailed(_ context.Context, id uuid.UUID, attempt int, lastErr string) error {
	return r.update(id, func(j *domain.SyncJob) {
		j.Status = domain.SyncJobFailed
		j.Attempt = attempt
		j.LastError = &lastErr
	})
}

func (r *inMemorySyncJobRepo) update(id uuid.UUID, fn func(*domain.SyncJob)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return fmt.Errorf("sync job %s not found", id)
	}
	fn(j)
	j.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *inMemorySyncJobRepo) countByStatus(status domain.SyncJobStatus) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, j := range r.jobs {
		if j.Status == status {
			n++
		}
	}
	return n
}

// --- In-Memory Audit Repo ---

type inMemoryAuditRepo struct {
	mu   sync.Mutex
	logs []*domain.AuditLog
}

func (r *inMemoryAuditRepo) Create(_ context.Context, log *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, log)
	return nil
}
