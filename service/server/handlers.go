package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/brojonat/blinkpay/service/config"
	"github.com/brojonat/blinkpay/service/links"
	"github.com/brojonat/blinkpay/service/temporal"
	solanago "github.com/gagliardetto/solana-go"
)

const (
	maxRequestBodySize = 1 << 20 // 1MB
	maxSignatureLength = 100     // base58 signatures are at most 88 chars
)

// flexAmount accepts a JSON number or a numeric string. A string that does not
// parse becomes NaN so that validation rejects it as a non-positive amount.
type flexAmount float64

func (a *flexAmount) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*a = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		str = strings.TrimSpace(str)
		if str == "" {
			*a = 0
			return nil
		}
		f, err := strconv.ParseFloat(str, 64)
		if err != nil {
			*a = flexAmount(math.NaN())
			return nil
		}
		*a = flexAmount(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*a = flexAmount(f)
	return nil
}

type createLinkRequest struct {
	Recipient string     `json:"recipient"`
	Token     string     `json:"token"`
	Amount    flexAmount `json:"amount"`
	Memo      string     `json:"memo"`
}

type createLinkResponse struct {
	Link         string `json:"link"`
	ID           string `json:"id"`
	ActionURL    string `json:"action_url"`
	SolanaPayURL string `json:"solana_pay_url,omitempty"`
	QRCode       string `json:"qr_code,omitempty"`
}

// handleCreateLink returns a handler that stores a new payment link.
// POST /api/create-link
func handleCreateLink(svc *links.Service, cfg *config.Config, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req createLinkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.DebugContext(r.Context(), "failed to decode create-link request", "error", err)
			if strings.Contains(err.Error(), "http: request body too large") {
				writeError(w, "request body too large: maximum size is 1MB", http.StatusBadRequest)
				return
			}
			writeError(w, "invalid request body: must be valid JSON", http.StatusBadRequest)
			return
		}

		created, err := svc.Create(r.Context(), links.CreateParams{
			Recipient: req.Recipient,
			Token:     req.Token,
			Amount:    float64(req.Amount),
			Memo:      req.Memo,
			BaseURL:   baseURL(cfg, r),
		})
		if err != nil {
			writeServiceError(w, r, err, logger)
			return
		}

		resp := createLinkResponse{
			Link:      created.Link,
			ID:        created.ID,
			ActionURL: created.ActionURL,
		}
		if share, err := newShareLinks(created.ActionURL, created.Record, cfg.USDCMintAddress); err != nil {
			logger.WarnContext(r.Context(), "failed to build share links", "link_id", created.ID, "error", err)
		} else {
			resp.SolanaPayURL = share.SolanaPayURL
			resp.QRCode = share.QRCode
		}

		writeJSON(w, resp, http.StatusOK)
	})
}

// handleActionsJSON serves the Actions rules file mapping pages to action endpoints.
// GET /actions.json
func handleActionsJSON() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"rules": []map[string]string{
				{"pathPattern": "/p/*", "apiPath": "/p/*/action.json"},
			},
		}, http.StatusOK)
	})
}

// handleGetAction returns the display payload for a link.
// GET /p/{id}/action.json
func handleGetAction(svc *links.Service, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		action, err := svc.Describe(r.Context(), r.PathValue("id"))
		if err != nil {
			writeServiceError(w, r, err, logger)
			return
		}
		writeJSON(w, action, http.StatusOK)
	})
}

type buildTransactionRequest struct {
	Account string `json:"account"`
}

type buildTransactionResponse struct {
	Transaction string `json:"transaction"`
	Message     string `json:"message,omitempty"`
}

// handleBuildTransaction returns an unsigned transaction paying the link.
// POST /p/{id}/action.json
func handleBuildTransaction(svc *links.Service, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req buildTransactionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.DebugContext(r.Context(), "failed to decode transaction request", "error", err)
			writeError(w, "Invalid request", http.StatusBadRequest)
			return
		}

		built, err := svc.BuildTransaction(r.Context(), r.PathValue("id"), req.Account)
		if err != nil {
			writeServiceError(w, r, err, logger)
			return
		}

		writeJSON(w, buildTransactionResponse{
			Transaction: built.Transaction,
			Message:     built.Message,
		}, http.StatusOK)
	})
}

type startConfirmationRequest struct {
	Signature string `json:"signature"`
}

type startConfirmationResponse struct {
	WorkflowID string `json:"workflow_id"`
	StatusURL  string `json:"status_url"`
}

// handleStartConfirmation starts a confirmation workflow for a submitted payment.
// POST /p/{id}/confirm
func handleStartConfirmation(svc *links.Service, confirmer temporal.Confirmer, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		id := r.PathValue("id")

		var req startConfirmationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, "invalid request body: must be valid JSON", http.StatusBadRequest)
			return
		}
		if err := validateSignature(req.Signature); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		rec, err := svc.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, err, logger)
			return
		}
		expected, err := svc.ExpectedPayment(rec)
		if err != nil {
			logger.ErrorContext(r.Context(), "stored link cannot be paid", "link_id", id, "error", err)
			writeError(w, "payment link cannot be confirmed", http.StatusUnprocessableEntity)
			return
		}

		workflowID, err := confirmer.StartConfirmation(r.Context(), id, req.Signature, expected)
		if err != nil {
			logger.ErrorContext(r.Context(), "failed to start confirmation",
				"link_id", id,
				"signature", req.Signature,
				"error", err,
			)
			writeError(w, "failed to start confirmation", http.StatusInternalServerError)
			return
		}

		writeJSON(w, startConfirmationResponse{
			WorkflowID: workflowID,
			StatusURL:  "/api/v1/confirmations/" + workflowID,
		}, http.StatusAccepted)
	})
}

// handleGetConfirmation reports the state of a confirmation workflow.
// GET /api/v1/confirmations/{workflow_id}
func handleGetConfirmation(confirmer temporal.Confirmer, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		workflowID := r.PathValue("workflow_id")

		status, err := confirmer.GetConfirmation(r.Context(), workflowID)
		if errors.Is(err, temporal.ErrConfirmationNotFound) {
			writeError(w, "confirmation not found", http.StatusNotFound)
			return
		}
		if err != nil {
			logger.ErrorContext(r.Context(), "failed to get confirmation", "workflow_id", workflowID, "error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, status, http.StatusOK)
	})
}

// handleGetSignatureStatus queries the chain directly for a signature.
// GET /api/v1/signatures/{signature}
func handleGetSignatureStatus(chain temporal.SignatureChecker, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.PathValue("signature")
		if err := validateSignature(raw); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		sig, _ := solanago.SignatureFromBase58(raw)

		status, err := chain.SignatureStatus(r.Context(), sig)
		if err != nil {
			logger.ErrorContext(r.Context(), "failed to get signature status", "signature", raw, "error", err)
			writeError(w, "failed to get signature status", http.StatusInternalServerError)
			return
		}

		writeJSON(w, map[string]interface{}{
			"signature":           raw,
			"found":               status.Found,
			"slot":                status.Slot,
			"confirmation_status": status.ConfirmationStatus,
			"confirmed":           status.Confirmed(),
			"failed":              status.Failed(),
			"error":               status.Err,
		}, http.StatusOK)
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// writeServiceError maps a links.Service error onto a status code. Internal
// details are logged, never returned.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	var verr *links.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, verr.Msg, http.StatusBadRequest)
	case errors.Is(err, links.ErrNotFound):
		writeError(w, "Payment link not found", http.StatusNotFound)
	case errors.Is(err, links.ErrUnsupportedToken):
		writeError(w, "Token not supported", http.StatusBadRequest)
	case errors.Is(err, links.ErrInsufficientBalance):
		writeError(w, "Insufficient balance", http.StatusBadRequest)
	case errors.Is(err, links.ErrBadRequest):
		logger.DebugContext(r.Context(), "bad request", "path", r.URL.Path, "error", err)
		writeError(w, "Invalid request", http.StatusBadRequest)
	default:
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// validateSignature checks that s is a base58-encoded transaction signature.
func validateSignature(s string) error {
	if s == "" {
		return errors.New("signature is required")
	}
	if len(s) > maxSignatureLength {
		return errors.New("signature too long")
	}
	if _, err := solanago.SignatureFromBase58(s); err != nil {
		return errors.New("invalid signature format")
	}
	return nil
}

// baseURL returns the configured site URL, or the origin of the request.
func baseURL(cfg *config.Config, r *http.Request) string {
	if cfg.SiteURL != "" {
		return strings.TrimRight(cfg.SiteURL, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	host := r.Host
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		host = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return scheme + "://" + host
}
