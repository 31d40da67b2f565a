package handler

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Krishna101010101010/Bio-pay/internal/devauth/service"
	flowdomain "github.com/Krishna101010101010/Bio-pay/internal/flow/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Reply{Success: false, Message: msg})
}

// mapError writes the response for a service error. Rejections the client is expected to
// handle (wrong OTP, policy denial) are 200 with success=false.
func (a *API) mapError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve  *flowdomain.ValidationError
		rl  *service.RateLimitError
		ver *service.VerificationError
		den *service.DeniedError
	)
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Reason)
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &rl):
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(rl.RetryAfter)))
		writeError(w, http.StatusTooManyRequests, rl.Error())
	case errors.As(err, &ver):
		writeJSON(w, http.StatusOK, Reply{Success: false, Message: ver.Message})
	case errors.As(err, &den):
		writeJSON(w, http.StatusOK, Reply{Success: false, Message: "Login failed: " + strings.Join(den.Reasons, "; ")})
	case errors.Is(err, service.ErrUserExists):
		writeError(w, http.StatusConflict, "Mobile number is already registered")
	case errors.Is(err, service.ErrSendFailed):
		a.log.ErrorContext(r.Context(), "otp delivery failed", "error", err)
		writeError(w, http.StatusBadGateway, "Could not send OTP. Please try again")
	case errors.Is(err, service.ErrDevOTPDisabled), errors.Is(err, service.ErrNoDevOTP):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		a.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func retryAfterSeconds(d time.Duration) int {
	return max(1, int(math.Ceil(d.Seconds())))
}
