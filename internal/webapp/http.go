package webapp

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/k9ert/rbac-poc/internal/kratos"
)

// Handler is the browser-facing side of the gateway: dashboard, the
// login-flow bridge and the logout bridge. It holds no state of its own;
// flow state lives in the provider and in the flow query parameter.
type Handler struct {
	client   *kratos.Client
	provider string
	logger   *log.Logger
}

func NewHandler(client *kratos.Client, provider string, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{client: client, provider: provider, logger: logger}
}

// GET /
// An unreachable provider degrades to the welcome page here; only the API
// distinguishes outage from "not signed in".
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	sess, err := h.client.CheckSession(r.Context(), r.Header.Get("Cookie"))
	if err != nil {
		if errors.Is(err, kratos.ErrProviderUnavailable) {
			h.logger.Printf("[webapp] whoami: %v", err)
		}
		render(w, h.logger, http.StatusOK, "welcome.html", nil)
		return
	}

	pretty := sess.Raw
	var buf json.RawMessage
	if err := json.Unmarshal(sess.Raw, &buf); err == nil {
		if b, err := json.MarshalIndent(buf, "", "  "); err == nil {
			pretty = b
		}
	}
	render(w, h.logger, http.StatusOK, "dashboard.html", dashboardData{
		Email:       sess.Identity.Traits.Email,
		FirstName:   sess.Identity.Traits.FirstName,
		LastName:    sess.Identity.Traits.LastName,
		Picture:     sess.Identity.Traits.Picture,
		IdentityID:  sess.Identity.ID,
		SessionID:   sess.ID,
		SessionJSON: string(pretty),
	})
}

// GET /login
//
// No flow id: ask the provider for a fresh flow and send the browser to
// the returned target.
// With a flow id: fetch the descriptor and render the form. A gone flow
// (expired or already used) restarts the cycle with a clean redirect to
// /login, never an error page.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	flowID := r.URL.Query().Get("flow")

	if flowID == "" {
		target, err := h.client.BeginLoginFlow(r.Context())
		if err != nil {
			h.logger.Printf("[webapp] begin login flow: %v", err)
			http.Error(w, "Error initiating login flow", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}

	flow, err := h.client.FetchLoginFlow(r.Context(), flowID, r.Header.Get("Cookie"))
	if err != nil {
		if errors.Is(err, kratos.ErrFlowGone) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		h.logger.Printf("[webapp] fetch login flow %s: %v", flowID, err)
		http.Error(w, "Error loading login flow", http.StatusInternalServerError)
		return
	}

	providerNode, ok := flow.UI.ProviderNode(h.provider)
	if !ok {
		h.logger.Printf("[webapp] flow %s has no %q provider node", flowID, h.provider)
		http.Error(w, h.provider+" sign-in is not configured properly", http.StatusInternalServerError)
		return
	}
	csrfNode, ok := flow.UI.CSRFNode()
	if !ok {
		h.logger.Printf("[webapp] flow %s has no csrf token node", flowID)
		http.Error(w, "Error loading login flow", http.StatusInternalServerError)
		return
	}

	csrfValue, _ := csrfNode.Attributes.StringValue()
	providerValue, _ := providerNode.Attributes.StringValue()
	// Exactly two hidden fields: this flow supports a single external
	// provider and nothing else from the descriptor is rendered.
	render(w, h.logger, http.StatusOK, "login.html", loginFormData{
		Action: flow.UI.Action,
		Method: flow.UI.Method,
		Fields: []hiddenField{
			{Name: csrfNode.Attributes.Name, Value: csrfValue},
			{Name: providerNode.Attributes.Name, Value: providerValue},
		},
	})
}

// GET /logout
// Single step: the provider clears the session on its side of the
// redirect, so there is nothing to render.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	target, err := h.client.BeginLogoutFlow(r.Context(), r.Header.Get("Cookie"))
	if err != nil {
		h.logger.Printf("[webapp] begin logout flow: %v", err)
		http.Error(w, "Error initiating logout flow", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
