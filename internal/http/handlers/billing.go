package handlers

import (
	"encoding/json"
	"io"
	"net/http"
)

type checkoutRequest struct {
	OwnerID     string `json:"owner_id"`
	RedirectURL string `json:"redirect_url"`
}

// CheckoutSession creates a subscription checkout session, unless the
// owner is already subscribed.
func (a *App) CheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.OwnerID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "owner_id is required")
		return
	}
	if req.RedirectURL == "" {
		req.RedirectURL = "/success"
	}

	result, err := a.Billing.CreateCheckout(r.Context(), req.OwnerID, req.RedirectURL)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, result)
}

// maxWebhookBody bounds the raw payload read for signature verification.
const maxWebhookBody = 1 << 20

// BillingWebhook ingests payment-provider events. The raw body is read for
// signature verification; nothing in it is trusted until the signature
// checks out.
func (a *App) BillingWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "unreadable payload")
		return
	}

	if err := a.Billing.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"message": "webhook received"})
}

// VerifySubscription is the synchronous activation path used by the
// post-checkout redirect.
func (a *App) VerifySubscription(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	ownerID := r.URL.Query().Get("owner_id")
	if sessionID == "" || ownerID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "session_id and owner_id are required")
		return
	}

	active, err := a.Billing.VerifyAndActivate(r.Context(), sessionID, ownerID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"message": "subscription verified", "active": active})
}
