package server

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/brojonat/blinkpay/service/config"
	"github.com/brojonat/blinkpay/service/links"
)

//go:embed templates/*.html
var templatesFS embed.FS

// TemplateRenderer holds parsed HTML templates
type TemplateRenderer struct {
	templates *template.Template
	logger    *slog.Logger
}

// NewTemplateRenderer creates a new template renderer from embedded files
func NewTemplateRenderer(logger *slog.Logger) (*TemplateRenderer, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &TemplateRenderer{
		templates: tmpl,
		logger:    logger,
	}, nil
}

// Render renders a template with the given data
func (tr *TemplateRenderer) Render(w http.ResponseWriter, name string, data interface{}) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return tr.templates.ExecuteTemplate(w, name, data)
}

// RenderStatus renders a template with a non-200 status code.
func (tr *TemplateRenderer) RenderStatus(w http.ResponseWriter, status int, name string, data interface{}) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	return tr.templates.ExecuteTemplate(w, name, data)
}

// handleIndexPage serves the create-link form.
func handleIndexPage(renderer *TemplateRenderer, cfg *config.Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := map[string]interface{}{
			"IconURL": cfg.ActionIconURL,
			"Cluster": cfg.SolanaCluster,
		}
		if err := renderer.Render(w, "index.html", data); err != nil {
			renderer.logger.Error("failed to render template", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	})
}

type paymentPageData struct {
	ID            string
	Title         string
	Description   string
	Amount        string
	Token         string
	Memo          string
	Recipient     string
	PageURL       string
	ActionURL     string
	ActionURI     template.URL
	SolanaPayURL  template.URL
	QRCode        string
	IconURL       string
	Confirmations bool // poll the confirmation workflow instead of the signature endpoint
	Stream        bool
}

// handlePaymentPage serves the human-facing page for a link. It carries the
// solana:action meta tag so that Action-aware clients can unfurl it.
func handlePaymentPage(svc *links.Service, renderer *TemplateRenderer, cfg *config.Config, confirmations, stream bool, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		rec, err := svc.Get(r.Context(), id)
		if errors.Is(err, links.ErrNotFound) {
			if err := renderer.RenderStatus(w, http.StatusNotFound, "not_found.html", map[string]string{"ID": id}); err != nil {
				logger.Error("failed to render template", "error", err)
			}
			return
		}
		if err != nil {
			logger.ErrorContext(r.Context(), "failed to load link", "link_id", id, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		base := baseURL(cfg, r)
		amount := links.FormatAmount(rec.Amount)
		data := paymentPageData{
			ID:            id,
			Title:         fmt.Sprintf("Pay %s %s - BlinkPay", amount, rec.Token),
			Description:   fmt.Sprintf("Payment request for %s %s", amount, rec.Token),
			Amount:        amount,
			Token:         string(rec.Token),
			Memo:          rec.Memo,
			Recipient:     rec.Recipient,
			PageURL:       base + links.PagePath(id),
			ActionURL:     base + links.ActionPath(id),
			IconURL:       cfg.ActionIconURL,
			Confirmations: confirmations,
			Stream:        stream,
		}
		if rec.Memo != "" {
			data.Description = rec.Memo
		}

		share, err := newShareLinks(data.ActionURL, rec, cfg.USDCMintAddress)
		if err != nil {
			logger.WarnContext(r.Context(), "failed to build share links", "link_id", id, "error", err)
			data.ActionURI = template.URL("solana-action:" + data.ActionURL)
		} else {
			data.ActionURI = template.URL(share.ActionURI)
			data.SolanaPayURL = template.URL(share.SolanaPayURL)
			data.QRCode = share.QRCode
		}

		if err := renderer.Render(w, "pay.html", data); err != nil {
			logger.Error("failed to render template", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	})
}
