package allocation

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// CapacityError reports a rejected allocation attempt.  It carries the
// full decision inputs so callers can reconstruct why the request was
// refused: the show's printed capacity, the tickets already allocated to
// other offers, and the count that was requested.
type CapacityError struct {
	ShowID    uint64 `json:"show_id"`
	Total     uint32 `json:"total"`
	Allocated uint32 `json:"allocated"`
	Requested uint32 `json:"requested"`
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("capacity exceeded for show %d: total=%d allocated=%d requested=%d",
		e.ShowID, e.Total, e.Allocated, e.Requested)
}

// Available returns the remaining capacity at the time of the decision.
func (e *CapacityError) Available() uint32 {
	return e.Total - e.Allocated
}

// ErrTxConflict is returned after the bounded retry loop exhausts its
// attempts against storage-level serialization conflicts.  Handlers
// translate this into HTTP 409; clients may retry the whole request.
var ErrTxConflict = errors.New("allocation transaction conflict")

// ErrInvalidOffer is returned when an offer request fails basic shape
// validation (empty name, non-positive price or ticket count).  This is
// distinct from CapacityError: a zero-quantity offer is a bad request, not
// a capacity decision.
var ErrInvalidOffer = errors.New("offer name, price and ticket count are required")

// MySQL/InnoDB error numbers that indicate a transient locking conflict
// rather than a real failure: ER_LOCK_DEADLOCK and ER_LOCK_WAIT_TIMEOUT.
const (
	mysqlErrDeadlock        = 1213
	mysqlErrLockWaitTimeout = 1205
)

// retryable reports whether the error is a storage-level serialization
// conflict worth repeating the full read-validate-write sequence for.
// Anything else, including infrastructure failures to begin or commit a
// transaction, is surfaced immediately.
func retryable(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlErrDeadlock || me.Number == mysqlErrLockWaitTimeout
	}
	return false
}
