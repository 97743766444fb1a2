package application

import (
	"context"

	"pricecompare/internal/common/logging"
	"pricecompare/internal/pricing/domain"
)

// LogAlerter reports fatal inconsistencies as error-level log records, which
// the log pipeline routes to the on-call channel.
type LogAlerter struct{}

func (LogAlerter) Alert(ctx context.Context, err *domain.FatalInconsistencyError) {
	logging.ErrorContext(ctx, "ALERT pricing mirrors diverged, manual repair required",
		"primary", err.Primary,
		"secondary", err.Secondary,
		"save_error", err.SaveErr,
		"compensation_error", err.CompensationErr,
	)
}
