package quota

import (
	"net/http"

	apperrors "github.com/odiabackend099/callwaiting/internal/pkg/errors"
)

// Err converts a denied decision into an AppError carrying the decision as
// details. Allowed decisions return nil. Trial and quota denials all map to
// 402 so clients can branch on a single status; unknown eligibility is 503.
func (d *Decision) Err() *apperrors.AppError {
	if d == nil {
		return apperrors.EligibilityUnknown(MessageEligibilityUnknown)
	}
	if d.Allowed {
		return nil
	}

	var appErr *apperrors.AppError
	switch d.Reason {
	case ReasonQuotaExceeded:
		appErr = apperrors.QuotaExceeded(d.Message)
	case ReasonTrialExpired:
		appErr = apperrors.TrialExpired(d.Message)
	case ReasonTrialExhausted:
		appErr = apperrors.TrialExhausted(d.Message)
		appErr.StatusCode = http.StatusPaymentRequired
	default:
		appErr = apperrors.EligibilityUnknown(MessageFor(d.Reason))
	}
	return appErr.WithDetails(d)
}
