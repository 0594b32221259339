package handler

import (
	"encoding/json"
	"net/http"
	"net/netip"

	"clubsite/internal/contact/model"
	"clubsite/internal/contact/service"
	"clubsite/internal/metrics"
	"clubsite/pkg/logger"
	"clubsite/pkg/respond"
)

const maxBodyBytes = 64 << 10

type ContactHandler struct {
	Service *service.ContactService

	// TrustedProxies may set X-Forwarded-For; see clientIP.
	TrustedProxies []netip.Prefix
	limiter        *ipLimiter
}

// NewContactHandler limits each client address to perMinute submissions.
// A non-positive value disables the limit.
func NewContactHandler(svc *service.ContactService, perMinute int, trustedProxies ...netip.Prefix) *ContactHandler {
	return &ContactHandler{Service: svc, TrustedProxies: trustedProxies, limiter: newIPLimiter(perMinute)}
}

func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respond.MethodNotAllowed(w, r, http.MethodPost)
		return
	}
	ip := clientIP(r, h.TrustedProxies)
	if !h.limiter.Allow(ip) {
		logger.Sugar.Warnf("Handler: contact rate limit hit for %s", ip)
		metrics.ContactSubmissions.WithLabelValues("rate_limited").Inc()
		respond.JSON(w, http.StatusTooManyRequests, map[string]string{
			"error": "Too many submissions. Please try again later.",
			"code":  "rate_limited",
		})
		return
	}

	var req model.Submission
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respond.BadRequest(w, "Invalid request body")
		return
	}
	msg, err := h.Service.Submit(r.Context(), req)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, model.SubmitResponse{Success: true, Message: msg})
}

// TestEmail reports mailer health for administrators.
func (h *ContactHandler) TestEmail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respond.MethodNotAllowed(w, r, http.MethodGet)
		return
	}
	respond.JSON(w, http.StatusOK, h.Service.Diagnose(r.Context()))
}
