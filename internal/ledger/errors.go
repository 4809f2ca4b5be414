package ledger

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// ErrConflict means the transaction lost a race with a concurrent write on
// the same header key or counter document. The caller may retry the call.
var ErrConflict = errors.New("ledger: transaction conflict")

// wrapTxnErr maps a failed transaction to the error taxonomy: transient
// transaction errors become ErrConflict, everything else surfaces as-is
// (a storage failure, not retried here).
func wrapTxnErr(err error) error {
	if err == nil {
		return nil
	}
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorLabel("TransientTransactionError") {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}
