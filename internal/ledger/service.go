package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"nooveria/internal/config"
	"nooveria/internal/db"
	"nooveria/internal/event"
	"nooveria/internal/logger"
	"nooveria/internal/metrics"
	"nooveria/internal/transaction"
	"nooveria/internal/usage"
	"nooveria/internal/user"
	"nooveria/internal/wallet"
)

// QuotaCounter tracks communal usage per user within the rolling window.
type QuotaCounter interface {
	Get(ctx context.Context, userID string) (int64, error)
	Increment(ctx context.Context, userID string, amount int64) (int64, error)
	Reserve(ctx context.Context, userID string, amount, limit int64) (bool, int64, error)
	Release(ctx context.Context, userID string, amount int64) error
}

// WalletCache is best-effort and never reports failures.
type WalletCache interface {
	Get(ctx context.Context, userID string, dst interface{}) bool
	Set(ctx context.Context, userID string, summary interface{})
	Invalidate(ctx context.Context, userID string)
}

type Deps struct {
	DB           *sqlx.DB
	Wallets      wallet.Store
	Transactions transaction.Log
	Usage        usage.Recorder
	Events       event.Log
	Users        user.Store
	Quota        QuotaCounter
	Cache        WalletCache
	Roles        config.Roles
	QuotaMode    string
	LockTimeout  time.Duration
}

type Service struct {
	db           *sqlx.DB
	wallets      wallet.Store
	transactions transaction.Log
	usage        usage.Recorder
	events       event.Log
	users        user.Store
	quota        QuotaCounter
	cache        WalletCache
	roles        config.Roles
	quotaMode    string
	lockTimeout  time.Duration
}

func New(d Deps) *Service {
	roles := d.Roles
	if roles == nil {
		roles = config.DefaultRoles()
	}
	mode := d.QuotaMode
	if mode == "" {
		mode = config.QuotaModeReserve
	}
	return &Service{
		db:           d.DB,
		wallets:      d.Wallets,
		transactions: d.Transactions,
		usage:        d.Usage,
		events:       d.Events,
		users:        d.Users,
		quota:        d.Quota,
		cache:        d.Cache,
		roles:        roles,
		quotaMode:    mode,
		lockTimeout:  d.LockTimeout,
	}
}

var (
	// errRejected rolls back a unit of work that ended in a business rejection.
	errRejected = errors.New("charge rejected")
	// errQuotaPending rolls back a unit of work that reached the communal
	// wallet before the quota was consulted.
	errQuotaPending = errors.New("communal quota not decided")
)

type quotaDecision struct {
	decided  bool
	allowed  bool
	reserved bool
}

// Charge debits exactly one wallet: the personal wallet when it covers the
// amount, otherwise the communal wallet if the caller prefers it and the
// user's daily communal quota allows. Business rejections come back as an
// Outcome; the error is reserved for invalid input and infrastructure faults.
func (s *Service) Charge(ctx context.Context, req ChargeRequest) (Outcome, error) {
	start := time.Now()

	if req.Tokens <= 0 {
		return Outcome{}, ErrInvalidAmount
	}
	if req.Tokens > MaxTokens {
		return Outcome{}, ErrAmountTooLarge
	}
	if req.Usage != nil {
		if err := req.Usage.Validate(); err != nil {
			return Outcome{}, errors.Join(ErrValidation, err)
		}
	}
	userID, err := parseUserID(req.UserID)
	if err != nil {
		return Outcome{}, err
	}

	u, err := s.findUser(ctx, userID)
	if err != nil {
		return Outcome{}, err
	}
	role := s.roles.Get(u.Role)

	personal, err := s.wallets.Get(ctx, userID, wallet.KindPersonal)
	if err != nil {
		return Outcome{}, storeErr("read personal wallet", err)
	}

	key := userID.String()
	amount := decimal.NewFromInt(req.Tokens)

	// The unlocked balance only decides whether the quota is consulted up
	// front; the locked re-check inside the unit of work is authoritative.
	var quota quotaDecision
	if req.PreferCommunal && personal.Balance.LessThan(amount) {
		quota = s.decideQuota(ctx, key, req.Tokens, role.DailyCommunalLimitTokens)
	}

	outcome, err := s.chargeOnce(ctx, userID, req, amount, quota)
	if errors.Is(err, errQuotaPending) {
		// The personal wallet was drained between the read and the lock.
		quota = s.decideQuota(ctx, key, req.Tokens, role.DailyCommunalLimitTokens)
		outcome, err = s.chargeOnce(ctx, userID, req, amount, quota)
	}

	// Redis follow-ups run after the locks are gone and survive caller cancellation.
	after := context.WithoutCancel(ctx)

	switch {
	case errors.Is(err, errRejected):
		s.releaseQuota(after, key, req.Tokens, quota)
		metrics.RecordCharge("none", string(outcome.Rejected.Reason), time.Since(start).Seconds())
		logger.Info("charge rejected",
			"user_id", key, "tokens", req.Tokens, "prefer_communal", req.PreferCommunal,
			"reason", outcome.Rejected.Reason)
		return outcome, nil

	case err != nil:
		s.releaseQuota(after, key, req.Tokens, quota)
		metrics.RecordCharge("none", "error", time.Since(start).Seconds())
		err = storeErr("charge", err)
		logger.Error("charge failed", "user_id", key, "tokens", req.Tokens, "error", err)
		return Outcome{}, err
	}

	charged := outcome.Charged
	if charged.Source == SourceCommunal {
		if !quota.reserved {
			if _, qerr := s.quota.Increment(after, key, req.Tokens); qerr != nil {
				logger.Warn("quota increment failed", "user_id", key, "tokens", req.Tokens, "error", qerr)
			}
		}
	} else {
		s.releaseQuota(after, key, req.Tokens, quota)
	}
	s.cache.Invalidate(after, key)

	metrics.RecordCharge(string(charged.Source), "charged", time.Since(start).Seconds())
	metrics.RecordTokensCharged(string(charged.Source), float64(req.Tokens))
	logger.Debug("charge committed",
		"user_id", key, "source", charged.Source, "tokens", req.Tokens, "transaction_id", charged.TransactionID)

	return outcome, nil
}

// chargeOnce runs one unit of work: lock, pick the source wallet, debit and
// record. A rejection rolls back through errRejected.
func (s *Service) chargeOnce(ctx context.Context, userID uuid.UUID, req ChargeRequest, amount decimal.Decimal, quota quotaDecision) (Outcome, error) {
	var outcome Outcome
	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := db.SetLockTimeout(ctx, tx, s.lockTimeout.Milliseconds()); err != nil {
			return err
		}

		refs := []wallet.Ref{wallet.Personal(userID)}
		if req.PreferCommunal {
			refs = append(refs, wallet.Communal())
		}
		locked, err := s.wallets.LockForUpdate(ctx, tx, refs...)
		if err != nil {
			return err
		}

		personal := locked[wallet.Personal(userID)]
		if personal == nil {
			return wallet.ErrWalletNotFound
		}

		var (
			from   *wallet.Wallet
			source Source
			kind   transaction.Kind
			meta   transaction.Meta
		)
		switch {
		case personal.Balance.GreaterThanOrEqual(amount):
			from, source, kind = personal, SourcePersonal, transaction.KindUsage
			meta = transaction.Meta{"source": string(SourcePersonal)}
		case !req.PreferCommunal:
			outcome.Rejected = &Rejected{Reason: ReasonInsufficientFunds}
		default:
			communal := locked[wallet.Communal()]
			switch {
			case communal == nil:
				outcome.Rejected = &Rejected{Reason: ReasonInsufficientFunds}
			case !quota.decided:
				return errQuotaPending
			case !quota.allowed:
				outcome.Rejected = &Rejected{Reason: ReasonQuotaExceeded}
			case communal.Balance.LessThan(amount):
				outcome.Rejected = &Rejected{Reason: ReasonInsufficientFunds}
			default:
				from, source, kind = communal, SourceCommunal, transaction.KindCommunalWithdraw
				meta = transaction.Meta{"source": string(SourceCommunal), "user_id": userID.String()}
			}
		}
		if outcome.Rejected != nil {
			return errRejected
		}

		if err := s.wallets.ApplyDelta(ctx, tx, from, amount.Neg()); err != nil {
			return err
		}
		txn := &transaction.Transaction{
			FromWalletID: &from.ID,
			Amount:       amount,
			Kind:         kind,
			Meta:         meta,
		}
		if err := s.transactions.Append(ctx, tx, txn); err != nil {
			return err
		}

		charged := &Charged{Source: source, Amount: amount, TransactionID: txn.ID}
		if req.Usage != nil {
			rec, err := s.usage.Record(ctx, tx, userID, *req.Usage, txn.ID)
			if err != nil {
				return err
			}
			charged.UsageRecordID = &rec.ID
		}

		ev := event.Expense(userID, amount, source == SourceCommunal, req.Correlation)
		ev.TransactionID = &txn.ID
		if err := s.events.Append(ctx, tx, ev); err != nil {
			return err
		}

		outcome.Charged = charged
		return nil
	})
	return outcome, err
}

// decideQuota runs before any wallet lock is taken. In reserve mode the
// tokens are held against the limit until the charge settles. Quota backend
// faults fail open.
func (s *Service) decideQuota(ctx context.Context, key string, tokens, limit int64) quotaDecision {
	if s.quotaMode == config.QuotaModeCheck {
		used, err := s.quota.Get(ctx, key)
		if err != nil {
			logger.Warn("quota read failed", "user_id", key, "error", err)
			used = 0
		}
		return quotaDecision{decided: true, allowed: used+tokens <= limit}
	}

	granted, _, err := s.quota.Reserve(ctx, key, tokens, limit)
	if err != nil {
		logger.Warn("quota reserve failed", "user_id", key, "error", err)
		return quotaDecision{decided: true, allowed: tokens <= limit}
	}
	return quotaDecision{decided: true, allowed: granted, reserved: granted}
}

func (s *Service) releaseQuota(ctx context.Context, key string, tokens int64, q quotaDecision) {
	if !q.reserved {
		return
	}
	if err := s.quota.Release(ctx, key, tokens); err != nil {
		logger.Warn("quota release failed", "user_id", key, "tokens", tokens, "error", err)
	}
}

// GetUserWallets reads balances through the cache.
func (s *Service) GetUserWallets(ctx context.Context, rawUserID string) (Summary, error) {
	userID, err := parseUserID(rawUserID)
	if err != nil {
		return Summary{}, err
	}
	key := userID.String()

	var summary Summary
	if s.cache.Get(ctx, key, &summary) {
		return summary, nil
	}

	personal, err := s.optionalWallet(ctx, userID, wallet.KindPersonal)
	if err != nil {
		return Summary{}, err
	}
	communal, err := s.optionalWallet(ctx, uuid.Nil, wallet.KindCommunal)
	if err != nil {
		return Summary{}, err
	}

	summary = Summary{
		Personal: Balance{Balance: personal},
		Communal: Balance{Balance: communal},
	}
	s.cache.Set(ctx, key, summary)
	return summary, nil
}

func (s *Service) optionalWallet(ctx context.Context, owner uuid.UUID, kind wallet.Kind) (decimal.Decimal, error) {
	w, err := s.wallets.Get(ctx, owner, kind)
	if errors.Is(err, wallet.ErrWalletNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, storeErr("read wallet", err)
	}
	return w.Balance, nil
}

// CommunalBalance reads the shared pool directly, bypassing the per-user cache.
func (s *Service) CommunalBalance(ctx context.Context) (decimal.Decimal, error) {
	w, err := s.wallets.Get(ctx, uuid.Nil, wallet.KindCommunal)
	if err != nil {
		return decimal.Zero, storeErr("read communal wallet", err)
	}
	return w.Balance, nil
}

// RecordUsage stores token counts for a charge that has already committed.
// Only the caller's own usage or communal_withdraw transactions qualify, and
// each transaction takes at most one record. Anything else reads as not found.
func (s *Service) RecordUsage(ctx context.Context, rawUserID string, counts usage.Counts, transactionID int64) (*usage.Record, error) {
	if err := counts.Validate(); err != nil {
		return nil, errors.Join(ErrValidation, err)
	}
	if transactionID <= 0 {
		return nil, ErrTransactionNotFound
	}
	userID, err := parseUserID(rawUserID)
	if err != nil {
		return nil, err
	}

	txn, err := s.transactions.Get(ctx, transactionID)
	if err != nil {
		if errors.Is(err, transaction.ErrTransactionNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, storeErr("read transaction", err)
	}
	owned, err := s.ownsCharge(ctx, userID, txn)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, ErrTransactionNotFound
	}

	rec, err := s.usage.Record(ctx, s.db, userID, counts, transactionID)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return nil, ErrUsageAlreadyRecorded
		case isForeignKeyViolation(err):
			return nil, ErrTransactionNotFound
		}
		return nil, storeErr("record usage", err)
	}
	return rec, nil
}

// ownsCharge reports whether txn is a charge made by userID.
func (s *Service) ownsCharge(ctx context.Context, userID uuid.UUID, txn *transaction.Transaction) (bool, error) {
	switch txn.Kind {
	case transaction.KindUsage:
		if txn.FromWalletID == nil {
			return false, nil
		}
		personal, err := s.wallets.Get(ctx, userID, wallet.KindPersonal)
		if errors.Is(err, wallet.ErrWalletNotFound) {
			return false, nil
		}
		if err != nil {
			return false, storeErr("read personal wallet", err)
		}
		return *txn.FromWalletID == personal.ID, nil
	case transaction.KindCommunalWithdraw:
		return txn.Meta["user_id"] == userID.String(), nil
	}
	return false, nil
}

func (s *Service) CommunalAllowance(ctx context.Context, rawUserID string) (Allowance, error) {
	userID, err := parseUserID(rawUserID)
	if err != nil {
		return Allowance{}, err
	}
	u, err := s.findUser(ctx, userID)
	if err != nil {
		return Allowance{}, err
	}
	role := s.roles.Get(u.Role)

	used, err := s.quota.Get(ctx, userID.String())
	if err != nil {
		logger.Warn("quota read failed", "user_id", userID.String(), "error", err)
		used = 0
	}

	remaining := role.DailyCommunalLimitTokens - used
	if remaining < 0 {
		remaining = 0
	}
	return Allowance{
		Role:             role.Name,
		Limit:            role.DailyCommunalLimitTokens,
		Used:             used,
		Remaining:        remaining,
		MaxRequestTokens: role.MaxRequestTokens,
	}, nil
}

// OpenAccount registers the user and creates the personal wallet funded with
// the role's starting balance. Calling it again returns the existing wallet.
func (s *Service) OpenAccount(ctx context.Context, rawUserID, roleName string) (*wallet.Wallet, bool, error) {
	userID, err := parseUserID(rawUserID)
	if err != nil {
		return nil, false, err
	}
	role := s.roles.Get(roleName)

	var created *wallet.Wallet
	err = db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := s.users.Upsert(ctx, tx, userID, role.Name); err != nil {
			return err
		}

		w, err := s.wallets.CreatePersonal(ctx, tx, userID)
		if errors.Is(err, wallet.ErrWalletExists) {
			return nil
		}
		if err != nil {
			return err
		}

		if role.DefaultBalance > 0 {
			amount := decimal.NewFromInt(role.DefaultBalance)
			txn, err := s.credit(ctx, tx, w, amount, transaction.KindTopUp,
				transaction.Meta{"source": "account_opening", "role": role.Name})
			if err != nil {
				return err
			}
			ev := event.TopUp(userID, amount, "Welcome balance")
			ev.TransactionID = &txn.ID
			if err := s.events.Append(ctx, tx, ev); err != nil {
				return err
			}
		}
		created = w
		return nil
	})
	if err != nil {
		return nil, false, storeErr("open account", err)
	}

	if created != nil {
		metrics.RecordTopUp(string(transaction.KindTopUp))
		logger.Info("account opened", "user_id", userID.String(), "role", role.Name, "balance", created.Balance.String())
		return created, true, nil
	}

	existing, err := s.wallets.Get(ctx, userID, wallet.KindPersonal)
	if err != nil {
		return nil, false, storeErr("read personal wallet", err)
	}
	return existing, false, nil
}

// EnsureCommunal creates the shared pool on first start.
func (s *Service) EnsureCommunal(ctx context.Context, initialBalance int64) (*wallet.Wallet, error) {
	var createdNow bool
	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		w, err := s.wallets.CreateCommunal(ctx, tx)
		if errors.Is(err, wallet.ErrWalletExists) {
			return nil
		}
		if err != nil {
			return err
		}
		createdNow = true

		if initialBalance <= 0 {
			return nil
		}
		_, err = s.credit(ctx, tx, w, decimal.NewFromInt(initialBalance), transaction.KindAdminAdjust,
			transaction.Meta{"source": "bootstrap"})
		return err
	})
	if err != nil {
		return nil, storeErr("create communal wallet", err)
	}

	w, err := s.wallets.Get(ctx, uuid.Nil, wallet.KindCommunal)
	if err != nil {
		return nil, storeErr("read communal wallet", err)
	}
	if createdNow {
		logger.Info("communal wallet created", "balance", w.Balance.String())
	}
	return w, nil
}

// TopUp credits a wallet. Personal credits also get a wallet event.
func (s *Service) TopUp(ctx context.Context, req TopUpRequest) (*transaction.Transaction, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if req.Amount.GreaterThan(decimal.NewFromInt(MaxTokens)) {
		return nil, ErrAmountTooLarge
	}
	if req.Kind == "" {
		req.Kind = transaction.KindTopUp
	}
	if req.Kind != transaction.KindTopUp && req.Kind != transaction.KindAdminAdjust {
		return nil, errors.Join(ErrValidation, errors.New("top-up kind must be topup or admin_adjust"))
	}
	if req.Target == "" {
		req.Target = wallet.KindPersonal
	}

	var (
		userID uuid.UUID
		ref    wallet.Ref
	)
	switch req.Target {
	case wallet.KindPersonal:
		id, err := parseUserID(req.UserID)
		if err != nil {
			return nil, err
		}
		if _, err := s.findUser(ctx, id); err != nil {
			return nil, err
		}
		userID, ref = id, wallet.Personal(id)
	case wallet.KindCommunal:
		ref = wallet.Communal()
	default:
		return nil, errors.Join(ErrValidation, errors.New("unknown wallet kind"))
	}

	var txn *transaction.Transaction
	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := db.SetLockTimeout(ctx, tx, s.lockTimeout.Milliseconds()); err != nil {
			return err
		}
		locked, err := s.wallets.LockForUpdate(ctx, tx, ref)
		if err != nil {
			return err
		}
		w := locked[ref]
		if w == nil {
			return wallet.ErrWalletNotFound
		}

		meta := transaction.Meta{"target": string(req.Target)}
		if req.Description != "" {
			meta["description"] = req.Description
		}
		txn, err = s.credit(ctx, tx, w, req.Amount, req.Kind, meta)
		if err != nil {
			return err
		}

		if req.Target == wallet.KindPersonal {
			ev := event.TopUp(userID, req.Amount, req.Description)
			ev.TransactionID = &txn.ID
			return s.events.Append(ctx, tx, ev)
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("top up", err)
	}

	if req.Target == wallet.KindPersonal {
		s.cache.Invalidate(context.WithoutCancel(ctx), userID.String())
	}
	metrics.RecordTopUp(string(req.Kind))
	logger.Info("wallet credited", "target", req.Target, "kind", req.Kind, "amount", req.Amount.String(), "transaction_id", txn.ID)
	return txn, nil
}

func (s *Service) ListEvents(ctx context.Context, rawUserID string, limit int) ([]event.Event, error) {
	userID, err := parseUserID(rawUserID)
	if err != nil {
		return nil, err
	}
	events, err := s.events.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, storeErr("list events", err)
	}
	return events, nil
}

// ListTransactions pages through the personal wallet's transactions.
func (s *Service) ListTransactions(ctx context.Context, rawUserID string, limit, offset int) ([]transaction.Transaction, error) {
	userID, err := parseUserID(rawUserID)
	if err != nil {
		return nil, err
	}
	w, err := s.wallets.Get(ctx, userID, wallet.KindPersonal)
	if err != nil {
		return nil, storeErr("read personal wallet", err)
	}
	txs, err := s.transactions.ListByWallet(ctx, w.ID, limit, offset)
	if err != nil {
		return nil, storeErr("list transactions", err)
	}
	return txs, nil
}

func (s *Service) ListUsage(ctx context.Context, rawUserID string, limit int) ([]usage.Record, error) {
	userID, err := parseUserID(rawUserID)
	if err != nil {
		return nil, err
	}
	records, err := s.usage.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, storeErr("list usage", err)
	}
	return records, nil
}

// Transfer between users is not offered by the ledger.
func (s *Service) Transfer(ctx context.Context, fromUserID, toUserID string, amount decimal.Decimal) error {
	return ErrNotImplemented
}

// credit adds amount to a wallet the caller created or locked in tx.
func (s *Service) credit(ctx context.Context, tx sqlx.ExtContext, w *wallet.Wallet, amount decimal.Decimal, kind transaction.Kind, meta transaction.Meta) (*transaction.Transaction, error) {
	if err := s.wallets.ApplyDelta(ctx, tx, w, amount); err != nil {
		return nil, err
	}
	txn := &transaction.Transaction{
		ToWalletID: &w.ID,
		Amount:     amount,
		Kind:       kind,
		Meta:       meta,
	}
	if err := s.transactions.Append(ctx, tx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *Service) findUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if errors.Is(err, user.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, storeErr("read user", err)
	}
	return u, nil
}

func parseUserID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, ErrInvalidUserID
	}
	return id, nil
}
