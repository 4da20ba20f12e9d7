package mocks

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/spareledger/internal/domain"
	"github.com/iho/spareledger/internal/usecase"
)

// MockCredentialRepository is a mock implementation of CredentialRepository.
type MockCredentialRepository struct {
	mu          sync.RWMutex
	credentials map[string]*domain.Credential

	CreateFunc       func(ctx context.Context, tx usecase.Tx, credential *domain.Credential) error
	GetByIDFunc      func(ctx context.Context, id string) (*domain.Credential, error)
	ListFunc         func(ctx context.Context) ([]*domain.Credential, error)
	UpdateCursorFunc func(ctx context.Context, tx usecase.Tx, id, cursor string, updatedAt time.Time) error
	DeleteFunc       func(ctx context.Context, tx usecase.Tx, id string) error
}

func NewMockCredentialRepository(seed ...*domain.Credential) *MockCredentialRepository {
	m := &MockCredentialRepository{credentials: make(map[string]*domain.Credential)}
	for _, c := range seed {
		m.credentials[c.ID] = c
	}
	return m
}

func (m *MockCredentialRepository) Create(ctx context.Context, tx usecase.Tx, credential *domain.Credential) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, credential)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credentials[credential.ID] = credential
	return nil
}

func (m *MockCredentialRepository) GetByID(ctx context.Context, id string) (*domain.Credential, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.credentials[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, domain.ErrCredentialNotFound
}

func (m *MockCredentialRepository) List(ctx context.Context) ([]*domain.Credential, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	creds := make([]*domain.Credential, 0, len(m.credentials))
	for _, c := range m.credentials {
		cp := *c
		creds = append(creds, &cp)
	}
	sort.Slice(creds, func(i, j int) bool { return creds[i].ID < creds[j].ID })
	return creds, nil
}

func (m *MockCredentialRepository) UpdateCursor(ctx context.Context, tx usecase.Tx, id, cursor string, updatedAt time.Time) error {
	if m.UpdateCursorFunc != nil {
		return m.UpdateCursorFunc(ctx, tx, id, cursor, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.credentials[id]
	if !ok {
		return domain.ErrCredentialNotFound
	}
	c.Cursor = &cursor
	c.UpdatedAt = updatedAt
	return nil
}

func (m *MockCredentialRepository) Delete(ctx context.Context, tx usecase.Tx, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, tx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.credentials, id)
	return nil
}

// Cursor returns the stored cursor for id, or "" when unset.
func (m *MockCredentialRepository) Cursor(id string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.credentials[id]; ok {
		return c.CursorValue()
	}
	return ""
}

// MockAccountRepository is a mock implementation of AccountRepository.
type MockAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account

	CreateFunc             func(ctx context.Context, account *domain.Account) error
	UpsertByProviderIDFunc func(ctx context.Context, tx usecase.Tx, account *domain.Account) error
	GetByIDFunc            func(ctx context.Context, id string) (*domain.Account, error)
	ListFunc               func(ctx context.Context, filter domain.AccountFilter) ([]*domain.Account, error)
	ListByCredentialFunc   func(ctx context.Context, credentialID string) ([]*domain.Account, error)
	UpdateBalanceFunc      func(ctx context.Context, tx usecase.Tx, id string, balance decimal.Decimal, updatedAt time.Time) error
	DeleteFunc             func(ctx context.Context, tx usecase.Tx, id string) error
}

func NewMockAccountRepository(seed ...*domain.Account) *MockAccountRepository {
	m := &MockAccountRepository{accounts: make(map[string]*domain.Account)}
	for _, a := range seed {
		m.accounts[a.ID] = a
	}
	return m
}

func (m *MockAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account
	return nil
}

func (m *MockAccountRepository) UpsertByProviderID(ctx context.Context, tx usecase.Tx, account *domain.Account) error {
	if m.UpsertByProviderIDFunc != nil {
		return m.UpsertByProviderIDFunc(ctx, tx, account)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if existing.ProviderAccountID != nil && account.ProviderAccountID != nil &&
			*existing.ProviderAccountID == *account.ProviderAccountID {
			account.ID = existing.ID
			break
		}
	}
	m.accounts[account.ID] = account
	return nil
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if acc, ok := m.accounts[id]; ok {
		return acc, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) List(ctx context.Context, filter domain.AccountFilter) ([]*domain.Account, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return m.collect(filter.Matches), nil
}

func (m *MockAccountRepository) ListByCredential(ctx context.Context, credentialID string) ([]*domain.Account, error) {
	if m.ListByCredentialFunc != nil {
		return m.ListByCredentialFunc(ctx, credentialID)
	}
	return m.collect(func(a *domain.Account) bool {
		return a.CredentialID != nil && *a.CredentialID == credentialID
	}), nil
}

func (m *MockAccountRepository) UpdateBalance(ctx context.Context, tx usecase.Tx, id string, balance decimal.Decimal, updatedAt time.Time) error {
	if m.UpdateBalanceFunc != nil {
		return m.UpdateBalanceFunc(ctx, tx, id, balance, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc, ok := m.accounts[id]; ok {
		acc.Balance = balance
		acc.UpdatedAt = updatedAt
	}
	return nil
}

func (m *MockAccountRepository) Delete(ctx context.Context, tx usecase.Tx, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, tx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.accounts, id)
	return nil
}

func (m *MockAccountRepository) collect(keep func(*domain.Account) bool) []*domain.Account {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var accounts []*domain.Account
	for _, acc := range m.accounts {
		if keep(acc) {
			accounts = append(accounts, acc)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts
}

// MockTransactionRepository is an in-memory TransactionRepository that keeps insertion order.
type MockTransactionRepository struct {
	mu    sync.RWMutex
	txns  map[string]*domain.Transaction
	order []string

	UpsertFunc               func(ctx context.Context, tx usecase.Tx, txn *domain.Transaction) (bool, error)
	CreateFunc               func(ctx context.Context, txn *domain.Transaction) error
	ListUncategorizedFunc    func(ctx context.Context) ([]*domain.Transaction, error)
	ApplyClassificationFunc  func(ctx context.Context, tx usecase.Tx, c domain.Classification, updatedAt time.Time) (bool, error)
	SignedSumsFunc           func(ctx context.Context, accountIDs []string) (map[string]decimal.Decimal, error)
	ListSubscriptionsFunc    func(ctx context.Context, filter domain.AccountFilter) ([]*domain.Transaction, error)
	ClaimPendingRoundUpsFunc func(ctx context.Context, tx usecase.Tx) ([]*domain.Transaction, error)
	MarkRoundUpsAppliedFunc  func(ctx context.Context, tx usecase.Tx, ids []string) error
}

func NewMockTransactionRepository(seed ...*domain.Transaction) *MockTransactionRepository {
	m := &MockTransactionRepository{txns: make(map[string]*domain.Transaction)}
	for _, t := range seed {
		m.insert(t)
	}
	return m
}

func (m *MockTransactionRepository) insert(t *domain.Transaction) {
	cp := *t
	m.txns[t.ID] = &cp
	m.order = append(m.order, t.ID)
}

func (m *MockTransactionRepository) Upsert(ctx context.Context, tx usecase.Tx, txn *domain.Transaction) (bool, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, tx, txn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.txns[txn.ID]; ok {
		existing.Amount = txn.Amount
		existing.Date = txn.Date
		existing.Description = txn.Description
		existing.Category = txn.Category
		existing.Kind = txn.Kind
		return false, nil
	}
	m.insert(txn)
	return true, nil
}

func (m *MockTransactionRepository) Create(ctx context.Context, txn *domain.Transaction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, txn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insert(txn)
	return nil
}

func (m *MockTransactionRepository) ListUncategorized(ctx context.Context) ([]*domain.Transaction, error) {
	if m.ListUncategorizedFunc != nil {
		return m.ListUncategorizedFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var pending []*domain.Transaction
	for _, id := range m.order {
		if t := m.txns[id]; t.AICategory == nil {
			cp := *t
			pending = append(pending, &cp)
		}
	}
	return pending, nil
}

func (m *MockTransactionRepository) ApplyClassification(ctx context.Context, tx usecase.Tx, c domain.Classification, updatedAt time.Time) (bool, error) {
	if m.ApplyClassificationFunc != nil {
		return m.ApplyClassificationFunc(ctx, tx, c, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[c.ID]
	if !ok {
		return false, nil
	}
	category, isSub := c.Category, c.IsSubscription
	t.Description = c.CleanName
	t.AICategory = &category
	t.IsSubscription = &isSub
	t.UpdatedAt = updatedAt
	return true, nil
}

func (m *MockTransactionRepository) SignedSums(ctx context.Context, accountIDs []string) (map[string]decimal.Decimal, error) {
	if m.SignedSumsFunc != nil {
		return m.SignedSumsFunc(ctx, accountIDs)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	sums := make(map[string]decimal.Decimal, len(accountIDs))
	wanted := make(map[string]bool, len(accountIDs))
	for _, id := range accountIDs {
		wanted[id] = true
		sums[id] = decimal.Zero
	}
	for _, id := range m.order {
		t := m.txns[id]
		if wanted[t.AccountID] {
			sums[t.AccountID] = sums[t.AccountID].Add(t.Signed())
		}
	}
	return sums, nil
}

func (m *MockTransactionRepository) ListSubscriptions(ctx context.Context, filter domain.AccountFilter) ([]*domain.Transaction, error) {
	if m.ListSubscriptionsFunc != nil {
		return m.ListSubscriptionsFunc(ctx, filter)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var subs []*domain.Transaction
	for i := len(m.order) - 1; i >= 0; i-- {
		t := m.txns[m.order[i]]
		if filter.AccountID != "" && t.AccountID != filter.AccountID {
			continue
		}
		if t.Kind == domain.TransactionKindExpense && t.IsSubscription != nil && *t.IsSubscription {
			subs = append(subs, t)
		}
	}
	return subs, nil
}

func (m *MockTransactionRepository) ClaimPendingRoundUps(ctx context.Context, tx usecase.Tx) ([]*domain.Transaction, error) {
	if m.ClaimPendingRoundUpsFunc != nil {
		return m.ClaimPendingRoundUpsFunc(ctx, tx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var pending []*domain.Transaction
	for _, id := range m.order {
		if t := m.txns[id]; t.RoundUpPending {
			cp := *t
			pending = append(pending, &cp)
		}
	}
	return pending, nil
}

func (m *MockTransactionRepository) MarkRoundUpsApplied(ctx context.Context, tx usecase.Tx, ids []string) error {
	if m.MarkRoundUpsAppliedFunc != nil {
		return m.MarkRoundUpsAppliedFunc(ctx, tx, ids)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if t, ok := m.txns[id]; ok {
			t.RoundUpPending = false
		}
	}
	return nil
}

// Pending returns the number of transactions still owing a round-up.
func (m *MockTransactionRepository) Pending() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, t := range m.txns {
		if t.RoundUpPending {
			n++
		}
	}
	return n
}

// Get returns a copy of the stored transaction.
func (m *MockTransactionRepository) Get(id string) (*domain.Transaction, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.txns[id]
	if !ok {
		return nil, false
	}
	cp := *t
	return &cp, true
}

// Count returns the number of stored transactions.
func (m *MockTransactionRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.txns)
}

// MockGoalRepository is a mock implementation of GoalRepository.
type MockGoalRepository struct {
	mu    sync.Mutex
	goals map[string]*domain.Goal

	ListRoundUpEnabledFunc func(ctx context.Context) ([]*domain.Goal, error)
	IncrementFunc          func(ctx context.Context, tx usecase.Tx, id string, amount decimal.Decimal) error
}

func NewMockGoalRepository(seed ...*domain.Goal) *MockGoalRepository {
	m := &MockGoalRepository{goals: make(map[string]*domain.Goal)}
	for _, g := range seed {
		m.goals[g.ID] = g
	}
	return m
}

func (m *MockGoalRepository) ListRoundUpEnabled(ctx context.Context) ([]*domain.Goal, error) {
	if m.ListRoundUpEnabledFunc != nil {
		return m.ListRoundUpEnabledFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var goals []*domain.Goal
	for _, g := range m.goals {
		if g.RoundUpEnabled {
			cp := *g
			goals = append(goals, &cp)
		}
	}
	sort.Slice(goals, func(i, j int) bool { return goals[i].ID < goals[j].ID })
	return goals, nil
}

func (m *MockGoalRepository) Increment(ctx context.Context, tx usecase.Tx, id string, amount decimal.Decimal) error {
	if m.IncrementFunc != nil {
		return m.IncrementFunc(ctx, tx, id, amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.goals[id]; ok {
		g.CurrentAmount = g.CurrentAmount.Add(amount)
	}
	return nil
}

// Current returns the goal's current amount.
func (m *MockGoalRepository) Current(id string) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.goals[id]; ok {
		return g.CurrentAmount
	}
	return decimal.Zero
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Tx, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Tx, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockTx{}, nil
}

// MockTx is a mock implementation of Tx.
type MockTx struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (m *MockTx) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	return nil
}

func (m *MockTx) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	return nil
}

// MockRetrier runs the operation once.
type MockRetrier struct {
	RetryFunc func(ctx context.Context, fn func() error) error
}

func (m *MockRetrier) Retry(ctx context.Context, fn func() error) error {
	if m.RetryFunc != nil {
		return m.RetryFunc(ctx, fn)
	}
	return fn()
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return "mock-id-" + strconv.Itoa(m.counter)
}

// MockIdempotencyStore is a mock implementation of IdempotencyStore.
type MockIdempotencyStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	CheckAndSetFunc func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	UpdateFunc      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
	ReleaseFunc     func(ctx context.Context, key string) error
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{
		data: make(map[string][]byte),
	}
}

func (m *MockIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if m.CheckAndSetFunc != nil {
		return m.CheckAndSetFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.data[key]; ok {
		return true, existing, nil
	}
	if response != nil {
		m.data[key] = response
	} else {
		m.data[key] = []byte("processing")
	}
	return false, nil, nil
}

func (m *MockIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = response
	return nil
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
