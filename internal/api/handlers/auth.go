package handlers

import (
	"fmt"
	"net/http"

	"stock-lot-tracker/internal/api/response"
	"stock-lot-tracker/internal/broker/kite"
)

// AuthHandler drives the Zerodha Kite login flow: redirect out to the
// broker's login page, then exchange the request token on callback.
type AuthHandler struct {
	session *kite.SessionManager
	client  kite.Client
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(session *kite.SessionManager, client kite.Client) *AuthHandler {
	return &AuthHandler{
		session: session,
		client:  client,
	}
}

// Login redirects the browser to the Kite login page.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.client.LoginURL(), http.StatusFound)
}

// Callback handles the broker's redirect after a successful Kite login.
// Kite appends request_token to the registered redirect URL; we exchange
// it for an access token and persist it for later restarts.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	requestToken := r.URL.Query().Get("request_token")
	if requestToken == "" {
		response.RespondError(w, http.StatusBadRequest, "missing request_token", nil)
		return
	}

	session, err := h.session.Login(r.Context(), requestToken)
	if err != nil {
		respondServiceError(w, err, "Failed to complete Zerodha login")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<html><body><h3>Zerodha connected as %s.</h3><p>You can close this window.</p></body></html>", session.UserName)
}
