package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"

	"insider-data/internal/model"
	"insider-data/internal/slogx"
)

// StorageError is a reconciliation failure caused by the store itself.
type StorageError struct {
	Op  string
	EID string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store %s eid=%s: %v", e.Op, e.EID, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageError reports whether err came from the persisted store.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// Result describes one reconciliation.
type Result[T Row] struct {
	Incoming int // distinct incoming rows
	Existing int // in-window rows already persisted
	Written  int // rows appended this time
	// Rows is the newly written rows followed by the in-window existing rows.
	Rows []T
	// Noop is set when nothing new was written.
	Noop bool
}

// Dedup drops rows whose hash was already seen in the batch; first occurrence wins.
func Dedup[T Row](rows []T) []T {
	return lo.UniqBy(rows, func(r T) string { return r.RowHash() })
}

// Reconcile appends to eid's partition the incoming rows whose hash is not
// yet persisted and returns them together with the persisted rows inside w.
// Incoming rows are compared against the whole partition so it never holds
// two rows with the same hash.
func Reconcile[T Row](ctx context.Context, ds *Dataset[T], eid string, w *model.Window, incoming []T) (Result[T], error) {
	return ReconcileBy(ctx, ds, eid, w, incoming, func(r T) string { return r.RowHash() })
}

// ReconcileBy is Reconcile with rows identified by key instead of their hash.
func ReconcileBy[T Row](ctx context.Context, ds *Dataset[T], eid string, w *model.Window, incoming []T, key func(T) string) (Result[T], error) {
	log := slogx.FromContext(ctx)
	incoming = lo.UniqBy(incoming, key)
	res := Result[T]{Incoming: len(incoming)}

	existing, err := ds.Read(eid)
	if err != nil {
		return res, &StorageError{Op: "read", EID: eid, Err: err}
	}
	known := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		known[key(r)] = struct{}{}
	}
	inWindow := lo.Filter(existing, func(r T, _ int) bool { return w.Contains(r.RowDate()) })
	fresh := lo.Filter(incoming, func(r T, _ int) bool {
		_, ok := known[key(r)]
		return !ok
	})
	res.Existing = len(inWindow)

	if len(fresh) > 0 {
		if _, err := ds.Append(eid, fresh); err != nil {
			return res, &StorageError{Op: "write", EID: eid, Err: err}
		}
	}
	res.Written = len(fresh)
	res.Noop = len(fresh) == 0
	res.Rows = append(fresh, inWindow...)

	log.Info("reconciled", "dataset", ds.Root(), "incoming", res.Incoming, "existing", res.Existing, "new", res.Written)
	return res, nil
}
