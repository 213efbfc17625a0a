package session

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/k9ert/rbac-poc/internal/kratos"
	"github.com/k9ert/rbac-poc/internal/telemetry"
)

// Validator turns an inbound cookie into a trust decision. Validation is
// synchronous per request: results are never cached, because the provider
// can revoke a session between any two requests.
type Validator struct {
	client  *kratos.Client
	metrics *telemetry.Metrics
	logger  *log.Logger
}

func NewValidator(client *kratos.Client, metrics *telemetry.Metrics, logger *log.Logger) *Validator {
	if logger == nil {
		logger = log.Default()
	}
	return &Validator{client: client, metrics: metrics, logger: logger}
}

// RequireAPI gates a protected handler. An absent cookie header is an
// empty string, not an error; the provider decides what it means.
func (v *Validator) RequireAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := v.client.CheckSession(r.Context(), r.Header.Get("Cookie"))
		if err != nil {
			if errors.Is(err, kratos.ErrProviderUnavailable) {
				v.logger.Printf("[session] provider unavailable: %v", err)
				if v.metrics != nil {
					v.metrics.IncProviderError()
				}
				writeJSON(w, http.StatusServiceUnavailable, map[string]any{
					"error":   "Provider unavailable",
					"message": "Identity provider could not be reached",
				})
				return
			}
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"error":   "Unauthorized",
				"message": "Valid Kratos session required",
				"details": "Please authenticate via the web app first",
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(withSessionContext(r.Context(), sess)))
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
