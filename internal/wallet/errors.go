package wallet

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrWalletNotFound  = errors.New("wallet not found")
	ErrWalletExists    = errors.New("wallet already exists")
	ErrNegativeBalance = errors.New("balance would become negative")
	ErrLockTimeout     = errors.New("wallet lock wait timed out")
)

const (
	codeLockNotAvailable     = "55P03"
	codeDeadlockDetected     = "40P01"
	codeSerializationFailure = "40001"
)

// IsConcurrencyError reports whether err is a lock timeout or a conflict the
// database resolved by aborting the transaction. Such errors are retryable.
func IsConcurrencyError(err error) bool {
	if errors.Is(err, ErrLockTimeout) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeLockNotAvailable, codeDeadlockDetected, codeSerializationFailure:
			return true
		}
	}
	return false
}
