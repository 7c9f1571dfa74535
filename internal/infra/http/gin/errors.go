package ginserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"depositrent/internal/app/handlers/reports"
	"depositrent/internal/app/middleware"
	"depositrent/internal/app/policies"
	authsvc "depositrent/internal/app/services/auth"
	"depositrent/internal/app/uow"
	domainauth "depositrent/internal/domain/auth"
	"depositrent/internal/domain/availability"
	domainbooking "depositrent/internal/domain/booking"
	domaindeposits "depositrent/internal/domain/deposits"
	domainpricing "depositrent/internal/domain/pricing"
	"depositrent/internal/domain/shared/daterange"
	domainuser "depositrent/internal/domain/user"
	"depositrent/internal/infra/validation"
)

type errorBody struct {
	Error  string                  `json:"error"`
	Fields []validation.FieldError `json:"fields,omitempty"`
}

var statusByError = []struct {
	status int
	errs   []error
}{
	{http.StatusBadRequest, []error{
		errBadRequest,
		validation.ErrInvalidInput,
		daterange.ErrInvalidRange,
		domaindeposits.ErrInvalidName,
		domaindeposits.ErrInvalidArea,
		domaindeposits.ErrInvalidSize,
		domaindeposits.ErrInvalidLabel,
		domaindeposits.ErrInvalidDiscount,
		domaindeposits.ErrPromotionID,
		domaindeposits.ErrPromotionRequired,
		domainbooking.ErrSameDay,
		domainbooking.ErrStartInPast,
		domainbooking.ErrEmptyRejectionMessage,
		domainbooking.ErrInvalidAmount,
		domainpricing.ErrInvalidSize,
		reports.ErrUnknownFormat,
		authsvc.ErrPasswordTooShort,
		domainuser.ErrEmailRequired,
		domainuser.ErrNameRequired,
	}},
	{http.StatusUnauthorized, []error{
		policies.ErrUnauthenticated,
		authsvc.ErrInvalidCredentials,
		authsvc.ErrSessionExpired,
		domainauth.ErrSessionNotFound,
		domainauth.ErrTokenRequired,
	}},
	{http.StatusForbidden, []error{
		policies.ErrForbidden,
	}},
	{http.StatusNotFound, []error{
		domaindeposits.ErrDepositNotFound,
		domaindeposits.ErrPromotionNotAttached,
		domainbooking.ErrBookingNotFound,
		domainuser.ErrNotFound,
	}},
	{http.StatusConflict, []error{
		domaindeposits.ErrDepositExists,
		domaindeposits.ErrPromotionAlreadyAttached,
		domainbooking.ErrDepositUnavailable,
		domainbooking.ErrBookingAlreadyFinalized,
		availability.ErrPeriodAlreadyBooked,
		availability.ErrPeriodNotBooked,
		domainuser.ErrEmailAlreadyUsed,
		middleware.ErrLockUnavailable,
		uow.ErrConcurrentUpdate,
	}},
	{http.StatusServiceUnavailable, []error{
		reports.ErrUploaderRequired,
	}},
}

var errBadRequest = errors.New("invalid request")

func statusFor(err error) int {
	for _, group := range statusByError {
		for _, target := range group.errs {
			if errors.Is(err, target) {
				return group.status
			}
		}
	}
	return http.StatusInternalServerError
}

// respondError writes err with its mapped status. Unmapped errors are logged
// and hidden behind a generic message.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	_ = c.Error(err)
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		}
		c.JSON(status, errorBody{Error: "internal error"})
		return
	}
	body := errorBody{Error: err.Error()}
	var verr *validation.Error
	if errors.As(err, &verr) {
		body.Fields = verr.Fields
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	respondError(c, nil, fmt.Errorf("%w: %w", errBadRequest, err))
}
