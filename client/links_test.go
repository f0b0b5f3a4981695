package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_CreateLink(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/create-link", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req CreateLinkRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "SOL", req.Token)
		assert.Equal(t, 0.5, req.Amount)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(CreatedLink{
			ID:        "ab12cd34",
			Link:      "https://pay.example/p/ab12cd34",
			ActionURL: "https://pay.example/p/ab12cd34/action.json",
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, nil)
	created, err := c.CreateLink(context.Background(), CreateLinkRequest{
		Recipient: "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM",
		Token:     "SOL",
		Amount:    0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, "ab12cd34", created.ID)
	assert.Equal(t, "https://pay.example/p/ab12cd34", created.Link)
}

func TestClient_CreateLink_ValidationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "Amount must be greater than 0"})
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, nil)
	_, err := c.CreateLink(context.Background(), CreateLinkRequest{Token: "SOL"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Amount must be greater than 0", apiErr.Message)
}

func TestClient_GetAction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/p/ab12cd34/action.json", r.URL.Path)
		json.NewEncoder(w).Encode(Action{
			Title: "Pay 0.5 SOL",
			Label: "Pay 0.5 SOL",
		})
	}))
	defer server.Close()

	c := NewClient(server.URL+"/", nil, nil)
	action, err := c.GetAction(context.Background(), "ab12cd34")
	require.NoError(t, err)
	assert.Equal(t, "Pay 0.5 SOL", action.Title)
}

func TestClient_GetAction_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "Payment link not found"})
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, nil)
	_, err := c.GetAction(context.Background(), "missing")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Contains(t, err.Error(), "Payment link not found")
}

func TestClient_BuildTransaction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/p/ab12cd34/action.json", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "payer", body["account"])

		json.NewEncoder(w).Encode(Transaction{Transaction: "AQAB", Message: "Pay 0.5 SOL"})
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, nil)
	tx, err := c.BuildTransaction(context.Background(), "ab12cd34", "payer")
	require.NoError(t, err)
	assert.Equal(t, "AQAB", tx.Transaction)
	assert.Equal(t, "Pay 0.5 SOL", tx.Message)
}

func TestClient_StartConfirmation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/p/ab12cd34/confirm", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "sig", body["signature"])

		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(ConfirmationStarted{
			WorkflowID: "confirm-ab12cd34-sig",
			StatusURL:  "/api/v1/confirmations/confirm-ab12cd34-sig",
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, nil)
	started, err := c.StartConfirmation(context.Background(), "ab12cd34", "sig")
	require.NoError(t, err)
	assert.Equal(t, "confirm-ab12cd34-sig", started.WorkflowID)
}

func TestClient_StartConfirmation_UnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("404 page not found"))
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, nil)
	_, err := c.StartConfirmation(context.Background(), "ab12cd34", "sig")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "404 page not found", apiErr.Message)
}

func TestClient_AwaitConfirmation(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/confirmations/confirm-ab12cd34-sig", r.URL.Path)

		state := "running"
		if calls.Add(1) >= 3 {
			state = "confirmed"
		}
		json.NewEncoder(w).Encode(Confirmation{
			WorkflowID: "confirm-ab12cd34-sig",
			LinkID:     "ab12cd34",
			State:      state,
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, nil)
	conf, err := c.AwaitConfirmation(context.Background(), "confirm-ab12cd34-sig", 10*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, conf.Done())
	assert.True(t, conf.Confirmed())
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_AwaitConfirmation_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Confirmation{State: "running"})
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewClient(server.URL, nil, nil)
	_, err := c.AwaitConfirmation(ctx, "confirm-ab12cd34-sig", 10*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_GetSignatureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/signatures/sig", r.URL.Path)
		json.NewEncoder(w).Encode(SignatureStatus{
			Signature:          "sig",
			Found:              true,
			Slot:               42,
			ConfirmationStatus: "finalized",
			Confirmed:          true,
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, nil)
	status, err := c.GetSignatureStatus(context.Background(), "sig")
	require.NoError(t, err)
	assert.True(t, status.Confirmed)
	assert.Equal(t, uint64(42), status.Slot)
}

func TestClient_Health(t *testing.T) {
	healthy := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("OK"))
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, nil)
	require.NoError(t, c.Health(context.Background()))

	healthy = false
	err := c.Health(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}
