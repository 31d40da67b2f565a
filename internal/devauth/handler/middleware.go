package handler

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/Krishna101010101010/Bio-pay/internal/audit"
	flowdomain "github.com/Krishna101010101010/Bio-pay/internal/flow/domain"
	"github.com/Krishna101010101010/Bio-pay/internal/security"
	"github.com/Krishna101010101010/Bio-pay/internal/telemetry"
)

// EventSource is the telemetry source of http_request events.
const EventSource = "devauth.http"

// clientIP stores the caller address (set by middleware.RealIP when proxied) for the audit logger.
func clientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		if ip != "" {
			r = r.WithContext(audit.WithClientIP(r.Context(), ip))
		}
		next.ServeHTTP(w, r)
	})
}

type subjectKey struct{}

// subject carries the masked mobile number of the request body back to requestTelemetry.
type subject struct {
	mu     sync.Mutex
	mobile string
}

func setSubject(r *http.Request, mobile string) {
	s, ok := r.Context().Value(subjectKey{}).(*subject)
	if !ok {
		return
	}
	s.mu.Lock()
	s.mobile = flowdomain.MaskMobile(strings.TrimSpace(mobile))
	s.mu.Unlock()
}

// requestTelemetry emits one http_request event per call once the response is written.
func (a *API) requestTelemetry(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.emitter == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		subj := &subject{}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), subjectKey{}, subj)))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := audit.ParseRoute(r.URL.Path)
		ev := telemetry.NewFlowEvent(telemetry.EventHTTPRequest, EventSource)
		subj.mu.Lock()
		ev.Mobile = subj.mobile
		subj.mu.Unlock()
		ev.Outcome = "success"
		if status >= http.StatusBadRequest {
			ev.Outcome = "failure"
		}
		ev.Metadata, _ = json.Marshal(map[string]any{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     status,
			"durationMs": time.Since(start).Milliseconds(),
			"action":     route.Action,
			"resource":   route.Resource,
			"requestId":  middleware.GetReqID(r.Context()),
		})
		telemetry.EmitAsync(a.emitter, r.Context(), ev)
	})
}

type claimsKey struct{}

func claimsFromContext(ctx context.Context) (*security.AccessClaims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*security.AccessClaims)
	return c, ok && c != nil
}

// requireAccessToken rejects requests without a valid "Authorization: Bearer <token>" header.
func (a *API) requireAccessToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("Authorization")
		const prefix = "bearer "
		if len(raw) <= len(prefix) || !strings.EqualFold(raw[:len(prefix)], prefix) {
			writeError(w, http.StatusUnauthorized, "missing or invalid authorization")
			return
		}
		claims, err := a.tokens.ValidateAccess(strings.TrimSpace(raw[len(prefix):]))
		if err != nil {
			a.log.DebugContext(r.Context(), "access token rejected", "error", err)
			writeError(w, http.StatusUnauthorized, "missing or invalid authorization")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}
