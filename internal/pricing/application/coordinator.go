package application

import (
	"context"
	"errors"

	"pricecompare/internal/common/logging"
	"pricecompare/internal/common/metrics"
	"pricecompare/internal/pricing/domain"
)

// DocumentWrite is one side of a two-document commit.
type DocumentWrite struct {
	// Name identifies the document in errors and logs, e.g. `item "4011"`.
	Name string
	// Save persists the mutated document.
	Save func(ctx context.Context) error
	// Revert restores the pre-mutation snapshot and persists it.
	Revert func(ctx context.Context) error
}

// DualWriteCoordinator commits a primary and a secondary document without a
// shared transaction. If the secondary save fails, the primary is restored
// with a single compensating write.
type DualWriteCoordinator struct {
	alerter domain.Alerter
}

// NewDualWriteCoordinator creates a coordinator that reports unrecoverable
// divergence to alerter.
func NewDualWriteCoordinator(alerter domain.Alerter) *DualWriteCoordinator {
	return &DualWriteCoordinator{alerter: alerter}
}

// Commit saves primary, then secondary. Outcomes:
//   - both saved: nil
//   - primary failed: *SaveError or *ConflictError, nothing changed
//   - secondary failed, primary restored: *SaveError or *ConflictError
//   - secondary failed, restore failed: *FatalInconsistencyError, operators alerted
//
// Once started, the commit runs to completion even if ctx is cancelled.
func (c *DualWriteCoordinator) Commit(ctx context.Context, primary, secondary DocumentWrite) error {
	ctx = context.WithoutCancel(ctx)

	if err := primary.Save(ctx); err != nil {
		return saveFailure(primary.Name, err)
	}

	saveErr := secondary.Save(ctx)
	if saveErr == nil {
		return nil
	}

	logging.WarnContext(ctx, "Secondary save failed, restoring primary",
		"primary", primary.Name,
		"secondary", secondary.Name,
		"error", saveErr,
	)

	if err := primary.Revert(ctx); err != nil {
		fatal := &domain.FatalInconsistencyError{
			Primary:         primary.Name,
			Secondary:       secondary.Name,
			SaveErr:         saveErr,
			CompensationErr: err,
		}
		metrics.RecordCompensation("failed")
		metrics.RecordFatalInconsistency()
		c.alerter.Alert(ctx, fatal)
		return fatal
	}

	metrics.RecordCompensation("restored")
	return saveFailure(secondary.Name, saveErr)
}

// CommitOne saves a single document. Used when only one mirror changed.
func (c *DualWriteCoordinator) CommitOne(ctx context.Context, doc DocumentWrite) error {
	if err := doc.Save(context.WithoutCancel(ctx)); err != nil {
		return saveFailure(doc.Name, err)
	}
	return nil
}

func saveFailure(document string, err error) error {
	saveErr := &domain.SaveError{Document: document, Err: err}
	if errors.Is(err, domain.ErrOptimisticLock) {
		return &domain.ConflictError{Document: document, Err: saveErr}
	}
	return saveErr
}
