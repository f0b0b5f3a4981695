package temporal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/brojonat/blinkpay/service/links"
	"github.com/brojonat/blinkpay/service/metrics"
	natspkg "github.com/brojonat/blinkpay/service/nats"
	"github.com/brojonat/blinkpay/service/solana"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
)

type fakeSignatureChecker struct {
	status       *solana.SignatureStatus
	err          error
	calls        int
	transactions map[solanago.Signature]*solanago.Transaction
	txErr        error
}

func (f *fakeSignatureChecker) Transaction(ctx context.Context, sig solanago.Signature) (*solanago.Transaction, error) {
	if f.txErr != nil {
		return nil, f.txErr
	}
	tx, ok := f.transactions[sig]
	if !ok {
		return nil, solana.ErrTransactionNotFound
	}
	return tx, nil
}

func (f *fakeSignatureChecker) SignatureStatus(ctx context.Context, sig solanago.Signature) (*solana.SignatureStatus, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	s := *f.status
	s.Signature = sig.String()
	return &s, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func validSignature() string {
	var sig solanago.Signature
	for i := range sig {
		sig[i] = byte(i + 1)
	}
	return sig.String()
}

func TestCheckSignatureStatus(t *testing.T) {
	chainErr := "custom program error: 0x1"

	tests := []struct {
		name          string
		status        *solana.SignatureStatus
		wantErrType   string
		wantStatus    string
		wantFailed    bool
		wantRetryable bool
	}{
		{
			name:       "confirmed",
			status:     &solana.SignatureStatus{Found: true, Slot: 10, ConfirmationStatus: "confirmed"},
			wantStatus: "confirmed",
		},
		{
			name:       "finalized",
			status:     &solana.SignatureStatus{Found: true, Slot: 11, ConfirmationStatus: "finalized"},
			wantStatus: "finalized",
		},
		{
			name:       "failed on chain",
			status:     &solana.SignatureStatus{Found: true, Slot: 12, ConfirmationStatus: "confirmed", Err: &chainErr},
			wantStatus: "confirmed",
			wantFailed: true,
		},
		{
			name:          "only processed",
			status:        &solana.SignatureStatus{Found: true, Slot: 13, ConfirmationStatus: "processed"},
			wantErrType:   ErrTypeNotConfirmed,
			wantRetryable: true,
		},
		{
			name:          "not found yet",
			status:        &solana.SignatureStatus{Found: false},
			wantErrType:   ErrTypeNotConfirmed,
			wantRetryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := &fakeSignatureChecker{status: tt.status}
			a := NewActivities(chain, nil, nil, nil, testLogger())

			result, err := a.CheckSignatureStatus(context.Background(), CheckSignatureStatusInput{Signature: validSignature()})

			if tt.wantErrType != "" {
				require.Error(t, err)
				var appErr *temporal.ApplicationError
				require.True(t, errors.As(err, &appErr))
				assert.Equal(t, tt.wantErrType, appErr.Type())
				assert.Equal(t, tt.wantRetryable, !appErr.NonRetryable())
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, result.ConfirmationStatus)
			assert.Equal(t, tt.status.Slot, result.Slot)
			if tt.wantFailed {
				require.NotNil(t, result.Err)
				assert.Equal(t, chainErr, *result.Err)
			} else {
				assert.Nil(t, result.Err)
			}
		})
	}
}

func TestCheckSignatureStatus_InvalidSignatureIsNonRetryable(t *testing.T) {
	chain := &fakeSignatureChecker{status: &solana.SignatureStatus{}}
	a := NewActivities(chain, nil, nil, nil, testLogger())

	_, err := a.CheckSignatureStatus(context.Background(), CheckSignatureStatusInput{Signature: "not-a-signature"})
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, ErrTypeInvalidSignature, appErr.Type())
	assert.True(t, appErr.NonRetryable())
	assert.Zero(t, chain.calls, "chain must not be queried for a malformed signature")
}

func TestCheckSignatureStatus_ChainErrorIsRetryable(t *testing.T) {
	chain := &fakeSignatureChecker{err: errors.New("rpc timeout")}
	a := NewActivities(chain, nil, nil, nil, testLogger())

	_, err := a.CheckSignatureStatus(context.Background(), CheckSignatureStatusInput{Signature: validSignature()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rpc timeout")

	var appErr *temporal.ApplicationError
	assert.False(t, errors.As(err, &appErr))
}

func TestCheckSignatureStatus_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	chain := &fakeSignatureChecker{status: &solana.SignatureStatus{Found: true, ConfirmationStatus: "confirmed"}}
	a := NewActivities(chain, nil, nil, m, testLogger())

	_, err := a.CheckSignatureStatus(context.Background(), CheckSignatureStatusInput{Signature: validSignature()})
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "blinkpay_confirmations_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPublishPaymentConfirmed(t *testing.T) {
	ctx := context.Background()
	store := links.NewMemoryStore()
	require.NoError(t, store.Set(ctx, "ab12cd34", &links.Record{
		Recipient: "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
		Token:     links.TokenUSDC,
		Amount:    3.5,
	}))
	publisher := natspkg.NewMockPublisher()
	a := NewActivities(&fakeSignatureChecker{}, store, publisher, nil, testLogger())

	err := a.PublishPaymentConfirmed(ctx, PublishPaymentConfirmedInput{
		LinkID:    "ab12cd34",
		Signature: "sig123",
		Slot:      77,
	})
	require.NoError(t, err)

	events := publisher.GetEventsOfType(natspkg.EventLinkPaymentConfirmed, "ab12cd34")
	require.Len(t, events, 1)
	assert.Equal(t, "sig123", events[0].Signature)
	assert.Equal(t, "USDC", events[0].Token)
	assert.Equal(t, 3.5, events[0].Amount)
	assert.Equal(t, "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin", events[0].Recipient)
}

func TestPublishPaymentConfirmed_MissingLinkStillPublishes(t *testing.T) {
	publisher := natspkg.NewMockPublisher()
	a := NewActivities(&fakeSignatureChecker{}, links.NewMemoryStore(), publisher, nil, testLogger())

	err := a.PublishPaymentConfirmed(context.Background(), PublishPaymentConfirmedInput{LinkID: "gone0000", Signature: "sig"})
	require.NoError(t, err)
	assert.Equal(t, 1, publisher.GetPublishedEventCount())
}

func TestPublishPaymentConfirmed_PublishError(t *testing.T) {
	publisher := natspkg.NewMockPublisher()
	publisher.SetPublishError(errors.New("nats down"))
	a := NewActivities(&fakeSignatureChecker{}, nil, publisher, nil, testLogger())

	err := a.PublishPaymentConfirmed(context.Background(), PublishPaymentConfirmedInput{LinkID: "ab12cd34", Signature: "sig"})
	assert.ErrorContains(t, err, "nats down")
}

func TestPublishPaymentConfirmed_NoPublisher(t *testing.T) {
	a := NewActivities(&fakeSignatureChecker{}, nil, nil, nil, testLogger())
	assert.NoError(t, a.PublishPaymentConfirmed(context.Background(), PublishPaymentConfirmedInput{LinkID: "x"}))
}

func verifyFixture(t *testing.T, to solanago.PublicKey, lamports uint64) (*fakeSignatureChecker, string, links.ExpectedPayment) {
	t.Helper()
	payer := solanago.NewWallet().PublicKey()
	tx, err := solana.BuildSOLTransfer(payer, to, lamports, solanago.Hash{3})
	require.NoError(t, err)

	sigStr := validSignature()
	sig := solanago.MustSignatureFromBase58(sigStr)
	chain := &fakeSignatureChecker{transactions: map[solanago.Signature]*solanago.Transaction{sig: tx}}

	expected, err := links.NewExpectedPayment(&links.Record{
		Recipient: testRecipient,
		Token:     links.TokenSOL,
		Amount:    0.5,
	}, solanago.PublicKey{})
	require.NoError(t, err)
	return chain, sigStr, *expected
}

func TestVerifyPayment_MatchingTransfer(t *testing.T) {
	chain, sig, expected := verifyFixture(t, solanago.MustPublicKeyFromBase58(testRecipient), 500_000_000)
	a := NewActivities(chain, nil, nil, nil, testLogger())

	err := a.VerifyPayment(context.Background(), VerifyPaymentInput{Signature: sig, Expected: expected})
	assert.NoError(t, err)
}

func TestVerifyPayment_ConfirmedButUnrelatedTransaction(t *testing.T) {
	stranger := solanago.NewWallet().PublicKey()
	chain, sig, expected := verifyFixture(t, stranger, 500_000_000)
	a := NewActivities(chain, nil, nil, nil, testLogger())

	err := a.VerifyPayment(context.Background(), VerifyPaymentInput{Signature: sig, Expected: expected})
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, ErrTypePaymentMismatch, appErr.Type())
	assert.True(t, appErr.NonRetryable())
	assert.Contains(t, appErr.Message(), "does not pay the link")
}

func TestVerifyPayment_Underpayment(t *testing.T) {
	chain, sig, expected := verifyFixture(t, solanago.MustPublicKeyFromBase58(testRecipient), 1_000)
	a := NewActivities(chain, nil, nil, nil, testLogger())

	err := a.VerifyPayment(context.Background(), VerifyPaymentInput{Signature: sig, Expected: expected})

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, ErrTypePaymentMismatch, appErr.Type())
}

func TestVerifyPayment_FetchErrorIsRetryable(t *testing.T) {
	chain, sig, expected := verifyFixture(t, solanago.MustPublicKeyFromBase58(testRecipient), 500_000_000)
	chain.txErr = errors.New("rpc timeout")
	a := NewActivities(chain, nil, nil, nil, testLogger())

	err := a.VerifyPayment(context.Background(), VerifyPaymentInput{Signature: sig, Expected: expected})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rpc timeout")

	var appErr *temporal.ApplicationError
	assert.False(t, errors.As(err, &appErr))
}

func TestVerifyPayment_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	chain, sig, expected := verifyFixture(t, solanago.NewWallet().PublicKey(), 500_000_000)
	a := NewActivities(chain, nil, nil, m, testLogger())

	require.Error(t, a.VerifyPayment(context.Background(), VerifyPaymentInput{Signature: sig, Expected: expected}))

	want := `
# HELP blinkpay_confirmations_total Total number of payment confirmation checks by outcome
# TYPE blinkpay_confirmations_total counter
blinkpay_confirmations_total{status="mismatch"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(want), "blinkpay_confirmations_total"))
}
