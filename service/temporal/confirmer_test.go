package temporal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Confirmer = (*Client)(nil)
	_ Confirmer = (*MockConfirmer)(nil)
)

func TestConfirmationWorkflowID_RoundTrip(t *testing.T) {
	id := ConfirmationWorkflowID(testLinkID, testSignature)
	assert.Equal(t, "confirm-"+testLinkID+"-"+testSignature, id)

	linkID, sig, ok := ParseConfirmationWorkflowID(id)
	require.True(t, ok)
	assert.Equal(t, testLinkID, linkID)
	assert.Equal(t, testSignature, sig)
}

func TestParseConfirmationWorkflowID_Invalid(t *testing.T) {
	for _, id := range []string{
		"",
		"poll-wallet-abc",
		"confirm-",
		"confirm-onlylink",
		"confirm--sig",
		"confirm-link-",
	} {
		t.Run(id, func(t *testing.T) {
			_, _, ok := ParseConfirmationWorkflowID(id)
			assert.False(t, ok)
		})
	}
}

func TestConfirmationStatus_Done(t *testing.T) {
	assert.False(t, (&ConfirmationStatus{State: StateRunning}).Done())
	assert.True(t, (&ConfirmationStatus{State: StatusConfirmed}).Done())
	assert.True(t, (&ConfirmationStatus{State: StatusFailed}).Done())
	assert.True(t, (&ConfirmationStatus{State: StatusMismatch}).Done())
	assert.True(t, (&ConfirmationStatus{State: StateError}).Done())
}

func TestMockConfirmer(t *testing.T) {
	ctx := context.Background()
	m := NewMockConfirmer()

	id, err := m.StartConfirmation(ctx, testLinkID, testSignature, testExpected)
	require.NoError(t, err)

	again, err := m.StartConfirmation(ctx, testLinkID, testSignature, testExpected)
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Equal(t, 1, m.Count())
	assert.Equal(t, testExpected, m.Expected(id))

	status, err := m.GetConfirmation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StateRunning, status.State)

	m.SetResult(id, StatusConfirmed, "finalized")
	status, err = m.GetConfirmation(ctx, id)
	require.NoError(t, err)
	assert.True(t, status.Done())
	assert.Equal(t, "finalized", status.ConfirmationStatus)

	_, err = m.GetConfirmation(ctx, "confirm-nope-nope")
	assert.ErrorIs(t, err, ErrConfirmationNotFound)

	m.SetStartError(errors.New("temporal down"))
	_, err = m.StartConfirmation(ctx, "other", testSignature, testExpected)
	assert.Error(t, err)
}
