package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Krishna101010101010/Bio-pay/internal/devauth/service"
)

// Reply is the JSON body of every /api/auth response.
type Reply struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message,omitempty"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	UserID    string     `json:"userId,omitempty"`
}

type mobileRequest struct {
	Mobile string `json:"mobile"`
}

type verifyRequest struct {
	Mobile string `json:"mobile"`
	OTP    string `json:"otp"`
}

type loginRequest struct {
	Mobile      string `json:"mobile"`
	Fingerprint bool   `json:"fingerprint"`
}

type registerRequest struct {
	Name        string `json:"name"`
	Mobile      string `json:"mobile"`
	UserType    string `json:"userType"`
	Fingerprint bool   `json:"fingerprint"`
}

var errBadBody = errors.New("request body must be a JSON object")

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, errBadBody.Error())
		return false
	}
	return true
}

// ResendOTP handles POST /api/auth/resend-otp.
func (a *API) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req mobileRequest
	if !decode(w, r, &req) {
		return
	}
	setSubject(r, req.Mobile)
	expiresAt, err := a.svc.ResendOTP(r.Context(), req.Mobile)
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Reply{Success: true, Message: service.MsgOTPSent, ExpiresAt: &expiresAt})
}

// VerifyOTP handles POST /api/auth/verify-otp.
func (a *API) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !decode(w, r, &req) {
		return
	}
	setSubject(r, req.Mobile)
	if err := a.svc.VerifyOTP(r.Context(), req.Mobile, req.OTP); err != nil {
		a.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Reply{Success: true, Message: service.MsgOTPVerified})
}

// Login handles POST /api/auth/login.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	setSubject(r, req.Mobile)
	res, err := a.svc.Login(r.Context(), req.Mobile, req.Fingerprint)
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Reply{
		Success:   true,
		Message:   service.MsgLoginSuccess,
		Token:     res.Token,
		ExpiresAt: &res.ExpiresAt,
		UserID:    res.UserID,
	})
}

// Register handles POST /api/auth/register.
func (a *API) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	setSubject(r, req.Mobile)
	id, err := a.svc.Register(r.Context(), service.RegisterInput{
		Name:        req.Name,
		Mobile:      req.Mobile,
		UserType:    req.UserType,
		Fingerprint: req.Fingerprint,
	})
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, Reply{Success: true, Message: service.MsgRegistered, UserID: id})
}

type meResponse struct {
	UserID    string    `json:"userId"`
	Mobile    string    `json:"mobile"`
	UserType  string    `json:"userType"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Me handles GET /api/auth/me and echoes the claims of the bearer token.
func (a *API) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing or invalid authorization")
		return
	}
	resp := meResponse{UserID: claims.Subject, Mobile: claims.Mobile, UserType: claims.UserType}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time
	}
	writeJSON(w, http.StatusOK, resp)
}

// DevOTP handles GET /dev/otp/{mobile}. Mounted only in dev OTP mode.
func (a *API) DevOTP(w http.ResponseWriter, r *http.Request) {
	otp, err := a.svc.DevOTP(r.Context(), chi.URLParam(r, "mobile"))
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"otp": otp})
}

// Health handles GET /health.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	if a.health != nil {
		if err := a.health.Check(r.Context()); err != nil {
			a.log.WarnContext(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
