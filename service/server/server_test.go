package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/brojonat/blinkpay/service/config"
	"github.com/brojonat/blinkpay/service/links"
	natspkg "github.com/brojonat/blinkpay/service/nats"
	"github.com/brojonat/blinkpay/service/solana"
	"github.com/brojonat/blinkpay/service/temporal"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testRecipient = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
	testPayer     = "DRpbCBMxVnDK7maPM5tGv6MvB3v1sRMC86PZ8okm21hy"
	testSiteURL   = "https://blinkpay.example"
)

type fakeSignatureChecker struct {
	status *solana.SignatureStatus
	err    error
}

func (f *fakeSignatureChecker) SignatureStatus(ctx context.Context, sig solanago.Signature) (*solana.SignatureStatus, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.status, nil
}

type testServer struct {
	handler   http.Handler
	store     *links.MemoryStore
	chain     *links.MockChain
	sigs      *fakeSignatureChecker
	confirmer *temporal.MockConfirmer
	publisher *natspkg.MockPublisher
}

type serverOption func(*config.Config, *serverSetup)

type serverSetup struct {
	withConfirmer bool
}

func withoutConfirmer() serverOption {
	return func(_ *config.Config, s *serverSetup) { s.withConfirmer = false }
}

func withSiteURL(u string) serverOption {
	return func(c *config.Config, _ *serverSetup) { c.SiteURL = u }
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := &config.Config{
		SiteURL:         testSiteURL,
		SolanaRPCURL:    config.DefaultRPCURL,
		SolanaCluster:   "devnet",
		USDCMintAddress: config.DefaultUSDCMint,
		ActionIconURL:   config.DefaultIconURL,
		StoreBackend:    config.StoreBackendMemory,
	}
	setup := &serverSetup{withConfirmer: true}
	for _, opt := range opts {
		opt(cfg, setup)
	}

	var blockhash solanago.Hash
	blockhash[0] = 0x42

	ts := &testServer{
		store:     links.NewMemoryStore(),
		chain:     links.NewMockChain(blockhash),
		sigs:      &fakeSignatureChecker{status: &solana.SignatureStatus{Found: true, Slot: 9, ConfirmationStatus: "confirmed"}},
		publisher: natspkg.NewMockPublisher(),
	}

	svc := links.NewService(ts.store, ts.chain, links.Options{
		SiteURL:  cfg.SiteURL,
		IconURL:  cfg.ActionIconURL,
		USDCMint: solanago.MustPublicKeyFromBase58(cfg.USDCMintAddress),
	}, ts.publisher, nil, logger)

	var confirmer temporal.Confirmer
	if setup.withConfirmer {
		ts.confirmer = temporal.NewMockConfirmer()
		confirmer = ts.confirmer
	}

	s := New(cfg.ServerAddr, cfg, svc, ts.sigs, confirmer, nil, logger)
	require.NoError(t, s.WithTemplates())
	ts.handler = s.Handler()
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func (ts *testServer) putLink(t *testing.T, id string, rec links.Record) {
	t.Helper()
	require.NoError(t, ts.store.Set(context.Background(), id, &rec))
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func testSignature() string {
	var sig solanago.Signature
	for i := range sig {
		sig[i] = byte(200 - i)
	}
	return sig.String()
}

func TestCreateLink(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/create-link",
		`{"recipient":"`+testRecipient+`","token":"SOL","amount":0.5,"memo":"coffee"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody(t, w)
	id, _ := body["id"].(string)
	require.Len(t, id, 8)
	assert.Equal(t, testSiteURL+"/p/"+id, body["link"])
	assert.Equal(t, testSiteURL+"/p/"+id+"/action.json", body["action_url"])
	assert.NotEmpty(t, body["qr_code"])
	assert.True(t, strings.HasPrefix(body["solana_pay_url"].(string), "solana:"+testRecipient+"?"))

	rec, err := ts.store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, &links.Record{Recipient: testRecipient, Token: links.TokenSOL, Amount: 0.5, Memo: "coffee"}, rec)
}

func TestCreateLink_NumericStringAmount(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/create-link",
		`{"recipient":"`+testRecipient+`","token":"USDC","amount":"12.25"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	id := decodeBody(t, w)["id"].(string)
	rec, err := ts.store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 12.25, rec.Amount)
	assert.Equal(t, links.TokenUSDC, rec.Token)
}

func TestCreateLink_UsesRequestOriginWithoutSiteURL(t *testing.T) {
	ts := newTestServer(t, withSiteURL(""))

	req := httptest.NewRequest(http.MethodPost, "/api/create-link",
		strings.NewReader(`{"recipient":"`+testRecipient+`","token":"SOL","amount":1}`))
	req.Host = "pay.local:3000"
	req.Header.Set("X-Forwarded-Proto", "https")
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.True(t, strings.HasPrefix(body["link"].(string), "https://pay.local:3000/p/"), body["link"])
}

func TestCreateLink_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"malformed JSON", `{"recipient":`, "invalid request body"},
		{"missing recipient", `{"token":"SOL","amount":1}`, "Missing required fields"},
		{"missing token", `{"recipient":"` + testRecipient + `","amount":1}`, "Missing required fields"},
		{"missing amount", `{"recipient":"` + testRecipient + `","token":"SOL"}`, "Missing required fields"},
		{"zero amount", `{"recipient":"` + testRecipient + `","token":"SOL","amount":0}`, "Missing required fields"},
		{"negative amount", `{"recipient":"` + testRecipient + `","token":"SOL","amount":-2}`, "Amount must be a positive number"},
		{"non-numeric amount", `{"recipient":"` + testRecipient + `","token":"SOL","amount":"lots"}`, "Amount must be a positive number"},
		{"unsupported token", `{"recipient":"` + testRecipient + `","token":"BTC","amount":1}`, "Token not supported"},
		{"lowercase token", `{"recipient":"` + testRecipient + `","token":"sol","amount":1}`, "Token not supported"},
		{"invalid recipient", `{"recipient":"not-a-key","token":"SOL","amount":1}`, "Invalid recipient address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)

			w := ts.do(t, http.MethodPost, "/api/create-link", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, decodeBody(t, w)["error"], tt.wantErr)
			assert.Zero(t, ts.store.Len(), "rejected link must not be persisted")
		})
	}
}

func TestCreateLink_BodyTooLarge(t *testing.T) {
	ts := newTestServer(t)

	body := `{"recipient":"` + strings.Repeat("A", 2<<20) + `"}`
	w := ts.do(t, http.MethodPost, "/api/create-link", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "request body too large")
}

func TestGetAction(t *testing.T) {
	ts := newTestServer(t)
	ts.putLink(t, "ab12cd34", links.Record{Recipient: testRecipient, Token: links.TokenSOL, Amount: 0.5})

	w := ts.do(t, http.MethodGet, "/p/ab12cd34/action.json", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, config.DefaultIconURL, body["icon"])
	assert.Equal(t, "BlinkPay: Pay 0.5 SOL", body["title"])
	assert.Equal(t, "You are about to pay 0.5 SOL to "+testRecipient+". Memo: No memo", body["description"])
	assert.Equal(t, "Pay Now", body["label"])

	assert.Equal(t, ActionVersion, w.Header().Get("X-Action-Version"))
	assert.Equal(t, "solana:EtWTRABZaYq6iMfeYKouRu166VU2xqa1", w.Header().Get("X-Blockchain-Ids"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestGetAction_NotFound(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/p/missing1/action.json", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Payment link not found", decodeBody(t, w)["error"])
}

func TestActionPreflight(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodOptions, "/p/ab12cd34/action.json", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestActionsJSON(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/actions.json", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"rules":[{"pathPattern":"/p/*","apiPath":"/p/*/action.json"}]}`, w.Body.String())
}

func TestBuildTransaction_SOL(t *testing.T) {
	ts := newTestServer(t)
	ts.putLink(t, "ab12cd34", links.Record{Recipient: testRecipient, Token: links.TokenSOL, Amount: 0.5})

	w := ts.do(t, http.MethodPost, "/p/ab12cd34/action.json", `{"account":"`+testPayer+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody(t, w)
	assert.Equal(t, "Pay 0.5 SOL to "+testRecipient, body["message"])

	tx, err := solana.DecodeTransaction(body["transaction"].(string))
	require.NoError(t, err)
	assert.Len(t, tx.Message.Instructions, 1)
	assert.Equal(t, testPayer, tx.Message.AccountKeys[0].String())
	assert.Len(t, ts.publisher.GetEventsOfType(natspkg.EventTransactionBuilt, "ab12cd34"), 1)
}

func TestBuildTransaction_Rejected(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		body       string
		wantStatus int
		wantErr    string
	}{
		{"unknown link", "missing1", `{"account":"` + testPayer + `"}`, http.StatusBadRequest, "Invalid request"},
		{"missing account", "ab12cd34", `{}`, http.StatusBadRequest, "Invalid request"},
		{"malformed account", "ab12cd34", `{"account":"xyz"}`, http.StatusBadRequest, "Invalid request"},
		{"malformed JSON", "ab12cd34", `{"account":`, http.StatusBadRequest, "Invalid request"},
		{"unsupported token", "btc00001", `{"account":"` + testPayer + `"}`, http.StatusBadRequest, "Token not supported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.putLink(t, "ab12cd34", links.Record{Recipient: testRecipient, Token: links.TokenSOL, Amount: 1})
			ts.putLink(t, "btc00001", links.Record{Recipient: testRecipient, Token: "BTC", Amount: 1})

			w := ts.do(t, http.MethodPost, "/p/"+tt.id+"/action.json", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantErr, decodeBody(t, w)["error"])
			assert.Zero(t, ts.chain.Calls(), "chain must not be called")
		})
	}
}

func TestBuildTransaction_ChainFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.putLink(t, "ab12cd34", links.Record{Recipient: testRecipient, Token: links.TokenUSDC, Amount: 1})
	ts.chain.SetError(errors.New("rpc unavailable"))

	w := ts.do(t, http.MethodPost, "/p/ab12cd34/action.json", `{"account":"`+testPayer+`"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal Server Error", decodeBody(t, w)["error"])
	assert.NotContains(t, w.Body.String(), "rpc unavailable")
}

func TestPaymentPage(t *testing.T) {
	ts := newTestServer(t)
	ts.putLink(t, "ab12cd34", links.Record{Recipient: testRecipient, Token: links.TokenUSDC, Amount: 25, Memo: "Invoice 7"})

	w := ts.do(t, http.MethodGet, "/p/ab12cd34", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")

	html := w.Body.String()
	actionURL := testSiteURL + "/p/ab12cd34/action.json"
	assert.Contains(t, html, `<meta name="solana:action" content="`+actionURL+`">`)
	assert.Contains(t, html, `href="solana-action:`+actionURL+`"`)
	assert.Contains(t, html, `<meta property="og:title" content="Pay 25 USDC">`)
	assert.Contains(t, html, "Invoice 7")
	assert.Contains(t, html, testRecipient)
	assert.Contains(t, html, "data:image/png;base64,")
}

func TestPaymentPage_LoadsActionOnOpen(t *testing.T) {
	ts := newTestServer(t)
	ts.putLink(t, "ab12cd34", links.Record{Recipient: testRecipient, Token: links.TokenSOL, Amount: 2})

	w := ts.do(t, http.MethodGet, "/p/ab12cd34", "")
	require.Equal(t, http.StatusOK, w.Code)

	html := w.Body.String()
	assert.Contains(t, html, `id="description"`)
	assert.Contains(t, html, "fetch(actionPath)")
	assert.Contains(t, html, "loadAction();")

	assert.Contains(t, html, "'/p/' + linkId + '/action.json'")

	w = ts.do(t, http.MethodGet, "/p/ab12cd34/action.json", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Pay Now", decodeBody(t, w)["label"])
}

func TestPaymentPage_NotFound(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/p/missing1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Link not found")
}

func TestIndexPage(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `id="create-form"`)

	w = ts.do(t, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConfirmation(t *testing.T) {
	ts := newTestServer(t)
	ts.putLink(t, "ab12cd34", links.Record{Recipient: testRecipient, Token: links.TokenSOL, Amount: 1})
	sig := testSignature()

	w := ts.do(t, http.MethodPost, "/p/ab12cd34/confirm", `{"signature":"`+sig+`"}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	body := decodeBody(t, w)
	workflowID := temporal.ConfirmationWorkflowID("ab12cd34", sig)
	assert.Equal(t, workflowID, body["workflow_id"])
	assert.Equal(t, "/api/v1/confirmations/"+workflowID, body["status_url"])

	w = ts.do(t, http.MethodGet, "/api/v1/confirmations/"+workflowID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, temporal.StateRunning, decodeBody(t, w)["state"])

	ts.confirmer.SetResult(workflowID, temporal.StatusConfirmed, "finalized")
	w = ts.do(t, http.MethodGet, "/api/v1/confirmations/"+workflowID, "")
	require.Equal(t, http.StatusOK, w.Code)
	status := decodeBody(t, w)
	assert.Equal(t, temporal.StatusConfirmed, status["state"])
	assert.Equal(t, "finalized", status["confirmation_status"])
}

func TestConfirmation_PassesExpectedPayment(t *testing.T) {
	ts := newTestServer(t)
	ts.putLink(t, "ab12cd34", links.Record{Recipient: testRecipient, Token: links.TokenSOL, Amount: 0.25})
	sig := testSignature()

	w := ts.do(t, http.MethodPost, "/p/ab12cd34/confirm", `{"signature":"`+sig+`"}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	expected := ts.confirmer.Expected(temporal.ConfirmationWorkflowID("ab12cd34", sig))
	require.NotNil(t, expected)
	assert.Equal(t, links.TokenSOL, expected.Token)
	assert.Equal(t, testRecipient, expected.Destination)
	assert.Equal(t, uint64(250_000_000), expected.Amount)
}

func TestConfirmation_UnpayableStoredLink(t *testing.T) {
	ts := newTestServer(t)
	ts.putLink(t, "ab12cd34", links.Record{Recipient: "not-a-key", Token: links.TokenSOL, Amount: 1})

	w := ts.do(t, http.MethodPost, "/p/ab12cd34/confirm", `{"signature":"`+testSignature()+`"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Zero(t, ts.confirmer.Count())
}

func TestConfirmation_Rejected(t *testing.T) {
	ts := newTestServer(t)
	ts.putLink(t, "ab12cd34", links.Record{Recipient: testRecipient, Token: links.TokenSOL, Amount: 1})

	w := ts.do(t, http.MethodPost, "/p/ab12cd34/confirm", `{"signature":"bogus!"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/p/missing1/confirm", `{"signature":"`+testSignature()+`"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/confirmations/confirm-nope-nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	ts.confirmer.SetStartError(errors.New("temporal down"))
	w = ts.do(t, http.MethodPost, "/p/ab12cd34/confirm", `{"signature":"`+testSignature()+`"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Zero(t, ts.confirmer.Count())
}

func TestConfirmation_DisabledWithoutTemporal(t *testing.T) {
	ts := newTestServer(t, withoutConfirmer())
	ts.putLink(t, "ab12cd34", links.Record{Recipient: testRecipient, Token: links.TokenSOL, Amount: 1})

	w := ts.do(t, http.MethodPost, "/p/ab12cd34/confirm", `{"signature":"`+testSignature()+`"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSignatureStatus(t *testing.T) {
	ts := newTestServer(t)
	sig := testSignature()

	w := ts.do(t, http.MethodGet, "/api/v1/signatures/"+sig, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["confirmed"])
	assert.Equal(t, false, body["failed"])
	assert.Equal(t, "confirmed", body["confirmation_status"])

	w = ts.do(t, http.MethodGet, "/api/v1/signatures/bogus!", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ts.sigs.err = errors.New("rpc down")
	w = ts.do(t, http.MethodGet, "/api/v1/signatures/"+sig, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

type fakeEventSource struct {
	events []*natspkg.LinkEvent
	err    error
	linkID string
}

func (f *fakeEventSource) Subscribe(ctx context.Context, linkID string) (<-chan *natspkg.LinkEvent, error) {
	f.linkID = linkID
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan *natspkg.LinkEvent, len(f.events))
	for _, e := range f.events {
		ch <- e
	}
	close(ch)
	return ch, nil
}

func TestStreamLinkEvents(t *testing.T) {
	event := natspkg.NewLinkEvent(natspkg.EventLinkPaymentConfirmed, "ab12cd34", testRecipient, "SOL", 1)
	event.Signature = "sig1"
	source := &fakeEventSource{events: []*natspkg.LinkEvent{event}}

	mux := http.NewServeMux()
	mux.Handle("GET /api/v1/stream/links/{id}", handleStreamLinkEvents(source, slog.New(slog.NewTextHandler(io.Discard, nil))))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/stream/links/ab12cd34", nil))

	assert.Equal(t, "ab12cd34", source.linkID)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "event: connected\ndata: {\"link_id\":\"ab12cd34\"}")
	assert.Contains(t, body, "event: link\ndata: ")
	assert.Contains(t, body, `"type":"link.payment_confirmed"`)
	assert.Contains(t, body, `"signature":"sig1"`)
}

func TestStreamLinkEvents_SubscribeError(t *testing.T) {
	source := &fakeEventSource{err: errors.New("nats down")}

	mux := http.NewServeMux()
	mux.Handle("GET /api/v1/stream/links/{id}", handleStreamLinkEvents(source, slog.New(slog.NewTextHandler(io.Discard, nil))))

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/stream/links/ab12cd34", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestStreamLinkEvents_RejectsMalformedIDs(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{name: "full wildcard", path: "/api/v1/stream/links/%3E"},
		{name: "token wildcard", path: "/api/v1/stream/links/*"},
		{name: "dotted", path: "/api/v1/stream/links/ab12.d34"},
		{name: "uppercase", path: "/api/v1/stream/links/AB12CD34"},
		{name: "too long", path: "/api/v1/stream/links/ab12cd345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &fakeEventSource{}
			mux := http.NewServeMux()
			mux.Handle("GET /api/v1/stream/links/{id}", handleStreamLinkEvents(source, slog.New(slog.NewTextHandler(io.Discard, nil))))

			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.Empty(t, source.linkID, "must not subscribe")
		})
	}
}

func TestSSEPublisher_SubscribeRejectsWildcards(t *testing.T) {
	p := &SSEPublisher{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, id := range []string{">", "*", "ab.cd.ef", ""} {
		_, err := p.Subscribe(context.Background(), id)
		assert.Error(t, err, "id %q", id)
	}
}

func TestBuildSolanaPayURL(t *testing.T) {
	sol := buildSolanaPayURL(&links.Record{Recipient: testRecipient, Token: links.TokenSOL, Amount: 0.25}, config.DefaultUSDCMint)
	assert.Equal(t, "solana:"+testRecipient+"?amount=0.25&label=BlinkPay", sol)

	usdc := buildSolanaPayURL(&links.Record{Recipient: testRecipient, Token: links.TokenUSDC, Amount: 10, Memo: "rent"}, config.DefaultUSDCMint)
	assert.Contains(t, usdc, "spl-token="+config.DefaultUSDCMint)
	assert.Contains(t, usdc, "message=rent")
	assert.Contains(t, usdc, "amount=10")
}
