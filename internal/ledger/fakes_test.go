package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"nooveria/internal/event"
	"nooveria/internal/transaction"
	"nooveria/internal/usage"
	"nooveria/internal/user"
	"nooveria/internal/wallet"
)

// fakeWallets keeps wallets in memory. Database transactions are driven by
// sqlmock, so writes here are not rolled back.
type fakeWallets struct {
	mu       sync.Mutex
	byRef    map[wallet.Ref]*wallet.Wallet
	nextID   int64
	gets     int
	lockReqs [][]wallet.Ref
	lockErr  error
	applied  int
	// stale overrides the balance Get reports, as if a concurrent charge
	// landed between the unlocked read and the lock.
	stale    map[wallet.Ref]decimal.Decimal
}

func newFakeWallets() *fakeWallets {
	return &fakeWallets{byRef: map[wallet.Ref]*wallet.Wallet{}, nextID: 1}
}

func normalize(ref wallet.Ref) wallet.Ref {
	if ref.Kind == wallet.KindCommunal {
		ref.Owner = uuid.Nil
	}
	return ref
}

func (f *fakeWallets) put(ref wallet.Ref, balance int64) *wallet.Wallet {
	f.mu.Lock()
	defer f.mu.Unlock()

	ref = normalize(ref)
	w := &wallet.Wallet{ID: f.nextID, Kind: ref.Kind, Balance: decimal.NewFromInt(balance)}
	if ref.Kind == wallet.KindPersonal {
		w.UserID = uuid.NullUUID{UUID: ref.Owner, Valid: true}
	}
	f.nextID++
	f.byRef[ref] = w
	return w
}

func (f *fakeWallets) balance(ref wallet.Ref) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byRef[normalize(ref)].Balance
}

func (f *fakeWallets) Get(ctx context.Context, owner uuid.UUID, kind wallet.Kind) (*wallet.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.gets++
	ref := normalize(wallet.Ref{Owner: owner, Kind: kind})
	w, ok := f.byRef[ref]
	if !ok {
		return nil, wallet.ErrWalletNotFound
	}
	cp := *w
	if b, ok := f.stale[ref]; ok {
		cp.Balance = b
	}
	return &cp, nil
}

func (f *fakeWallets) LockForUpdate(ctx context.Context, tx sqlx.ExtContext, refs ...wallet.Ref) (map[wallet.Ref]*wallet.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lockReqs = append(f.lockReqs, refs)
	if f.lockErr != nil {
		return nil, f.lockErr
	}

	locked := map[wallet.Ref]*wallet.Wallet{}
	for _, ref := range refs {
		ref = normalize(ref)
		if w, ok := f.byRef[ref]; ok {
			cp := *w
			locked[ref] = &cp
		}
	}
	return locked, nil
}

func (f *fakeWallets) ApplyDelta(ctx context.Context, tx sqlx.ExtContext, w *wallet.Wallet, delta decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := w.Balance.Add(delta)
	if next.IsNegative() {
		return wallet.ErrNegativeBalance
	}
	for _, stored := range f.byRef {
		if stored.ID == w.ID {
			stored.Balance = next
			w.Balance = next
			f.applied++
			return nil
		}
	}
	return wallet.ErrWalletNotFound
}

func (f *fakeWallets) CreatePersonal(ctx context.Context, tx sqlx.ExtContext, owner uuid.UUID) (*wallet.Wallet, error) {
	if _, err := f.Get(ctx, owner, wallet.KindPersonal); err == nil {
		return nil, wallet.ErrWalletExists
	}
	w := f.put(wallet.Personal(owner), 0)
	cp := *w
	return &cp, nil
}

func (f *fakeWallets) CreateCommunal(ctx context.Context, tx sqlx.ExtContext) (*wallet.Wallet, error) {
	if _, err := f.Get(ctx, uuid.Nil, wallet.KindCommunal); err == nil {
		return nil, wallet.ErrWalletExists
	}
	w := f.put(wallet.Communal(), 0)
	cp := *w
	return &cp, nil
}

func (f *fakeWallets) total() decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()

	sum := decimal.Zero
	for _, w := range f.byRef {
		sum = sum.Add(w.Balance)
	}
	return sum
}

type fakeTxLog struct {
	mu       sync.Mutex
	appended []*transaction.Transaction
	err      error
}

func (f *fakeTxLog) Append(ctx context.Context, tx sqlx.ExtContext, t *transaction.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	t.ID = int64(len(f.appended) + 100)
	f.appended = append(f.appended, t)
	return nil
}

func (f *fakeTxLog) Get(ctx context.Context, id int64) (*transaction.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, t := range f.appended {
		if t.ID == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, transaction.ErrTransactionNotFound
}

func (f *fakeTxLog) ListByWallet(ctx context.Context, walletID int64, limit, offset int) ([]transaction.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []transaction.Transaction
	for _, t := range f.appended {
		if (t.FromWalletID != nil && *t.FromWalletID == walletID) || (t.ToWalletID != nil && *t.ToWalletID == walletID) {
			out = append(out, *t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

type fakeUsage struct {
	records []usage.Record
	err     error
}

func (f *fakeUsage) Record(ctx context.Context, tx sqlx.ExtContext, userID uuid.UUID, counts usage.Counts, transactionID int64) (*usage.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, r := range f.records {
		if r.TransactionID == transactionID {
			return nil, &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"}
		}
	}
	rec := usage.Record{
		ID:               int64(len(f.records) + 1),
		UserID:           userID,
		PromptTokens:     counts.PromptTokens,
		CompletionTokens: counts.CompletionTokens,
		TotalTokens:      counts.TotalTokens,
		TransactionID:    transactionID,
	}
	f.records = append(f.records, rec)
	return &rec, nil
}

func (f *fakeUsage) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]usage.Record, error) {
	var out []usage.Record
	for _, r := range f.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeEvents struct {
	events []*event.Event
	err    error
}

func (f *fakeEvents) Append(ctx context.Context, tx sqlx.ExtContext, e *event.Event) error {
	if f.err != nil {
		return f.err
	}
	e.ID = uuid.New()
	f.events = append(f.events, e)
	return nil
}

func (f *fakeEvents) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]event.Event, error) {
	var out []event.Event
	for i := len(f.events) - 1; i >= 0; i-- {
		if f.events[i].UserID == userID {
			out = append(out, *f.events[i])
		}
	}
	return out, nil
}

type fakeUsers struct {
	users map[uuid.UUID]*user.User
	err   error
}

func (f *fakeUsers) FindByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) Upsert(ctx context.Context, tx sqlx.ExtContext, id uuid.UUID, role string) (*user.User, error) {
	u := &user.User{ID: id, Role: role}
	f.users[id] = u
	return u, nil
}

type mockQuota struct{ mock.Mock }

func (m *mockQuota) Get(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockQuota) Increment(ctx context.Context, userID string, amount int64) (int64, error) {
	args := m.Called(ctx, userID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockQuota) Reserve(ctx context.Context, userID string, amount, limit int64) (bool, int64, error) {
	args := m.Called(ctx, userID, amount, limit)
	return args.Bool(0), args.Get(1).(int64), args.Error(2)
}

func (m *mockQuota) Release(ctx context.Context, userID string, amount int64) error {
	return m.Called(ctx, userID, amount).Error(0)
}

type mockCache struct{ mock.Mock }

func (m *mockCache) Get(ctx context.Context, userID string, dst interface{}) bool {
	args := m.Called(ctx, userID, dst)
	if args.Bool(0) {
		if s, ok := args.Get(1).(Summary); ok {
			*dst.(*Summary) = s
		}
	}
	return args.Bool(0)
}

func (m *mockCache) Set(ctx context.Context, userID string, summary interface{}) {
	m.Called(ctx, userID, summary)
}

func (m *mockCache) Invalidate(ctx context.Context, userID string) {
	m.Called(ctx, userID)
}
