package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/webtoz/internal/common"
	"github.com/dmitrijs2005/webtoz/internal/logging"
)

const msgInternal = "Internal server error"

// statusFor maps an error kind onto an HTTP status. Conflicts are reported
// as 400 like every other caller mistake.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrValidation),
		errors.Is(err, common.ErrEmailTaken),
		errors.Is(err, common.ErrInvalidID),
		errors.Is(err, common.ErrWrongPassword),
		errors.Is(err, common.ErrSelfDelete),
		errors.Is(err, common.ErrResetTokenInvalid):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidCredentials),
		errors.Is(err, common.ErrAccountDeactivated):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// messageFor returns the caller-facing text of err. Anything that did not
// come with one gets the status text; 500s never expose details.
func messageFor(err error, status int) string {
	if status == http.StatusInternalServerError {
		return msgInternal
	}
	var verr *common.ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	var cerr *common.Error
	if errors.As(err, &cerr) {
		return cerr.Message
	}
	return http.StatusText(status)
}

// writeError is the single translator from handler failures to the envelope.
func writeError(ctx context.Context, w http.ResponseWriter, logger logging.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error(ctx, "request failed", "error", err)
	}
	fail(w, status, messageFor(err, status))
}
