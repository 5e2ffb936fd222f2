package ledger

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	"nooveria/internal/wallet"
)

var (
	ErrValidation     = errors.New("invalid request")
	ErrInvalidUserID  = fmt.Errorf("%w: malformed user id", ErrValidation)
	ErrInvalidAmount  = fmt.Errorf("%w: token amount must be positive", ErrValidation)
	ErrAmountTooLarge = fmt.Errorf("%w: token amount exceeds %d", ErrValidation, MaxTokens)

	ErrUserNotFound        = errors.New("user not found")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrTransactionNotFound = errors.New("transaction not found")

	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrQuotaExceeded     = fmt.Errorf("%w: daily communal quota exceeded", ErrInsufficientFunds)

	ErrUsageAlreadyRecorded = errors.New("usage already recorded for this transaction")

	ErrConcurrency    = errors.New("wallet is busy, retry the request")
	ErrStorage        = errors.New("ledger storage failure")
	ErrNotImplemented = errors.New("not implemented")
)

// IsPaymentRequired reports a business rejection: the caller has to add funds
// or wait for the quota window to roll over.
func IsPaymentRequired(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}

func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrency)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrWalletNotFound) ||
		errors.Is(err, ErrTransactionNotFound)
}

// storeErr classifies a failure returned by one of the stores.
func storeErr(op string, err error) error {
	switch {
	case errors.Is(err, wallet.ErrWalletNotFound):
		return fmt.Errorf("%w: %s", ErrWalletNotFound, op)
	case wallet.IsConcurrencyError(err):
		return fmt.Errorf("%w: %s: %w", ErrConcurrency, op, err)
	default:
		return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
	}
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
