package temporal

import (
	"context"
	"sync"

	"github.com/brojonat/blinkpay/service/links"
)

// MockConfirmer is an in-memory Confirmer for testing. Started workflows stay
// "running" until SetResult is called.
type MockConfirmer struct {
	mu       sync.Mutex
	statuses map[string]*ConfirmationStatus
	expected map[string]*links.ExpectedPayment
	startErr error
	getErr   error
}

// NewMockConfirmer creates a new MockConfirmer.
func NewMockConfirmer() *MockConfirmer {
	return &MockConfirmer{
		statuses: make(map[string]*ConfirmationStatus),
		expected: make(map[string]*links.ExpectedPayment),
	}
}

// StartConfirmation records a running workflow.
func (m *MockConfirmer) StartConfirmation(ctx context.Context, linkID, signature string, expected *links.ExpectedPayment) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.startErr != nil {
		return "", m.startErr
	}

	id := ConfirmationWorkflowID(linkID, signature)
	if _, ok := m.statuses[id]; !ok {
		m.statuses[id] = &ConfirmationStatus{
			WorkflowID: id,
			LinkID:     linkID,
			Signature:  signature,
			State:      StateRunning,
		}
		m.expected[id] = expected
	}
	return id, nil
}

// Expected returns the payment a workflow was started with.
func (m *MockConfirmer) Expected(workflowID string) *links.ExpectedPayment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expected[workflowID]
}

// GetConfirmation returns the recorded status or ErrConfirmationNotFound.
func (m *MockConfirmer) GetConfirmation(ctx context.Context, workflowID string) (*ConfirmationStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return nil, m.getErr
	}

	status, ok := m.statuses[workflowID]
	if !ok {
		return nil, ErrConfirmationNotFound
	}
	cp := *status
	return &cp, nil
}

// SetResult moves a workflow to a terminal state.
func (m *MockConfirmer) SetResult(workflowID, state, confirmationStatus string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if status, ok := m.statuses[workflowID]; ok {
		status.State = state
		status.ConfirmationStatus = confirmationStatus
	}
}

// SetStartError configures StartConfirmation to fail.
func (m *MockConfirmer) SetStartError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startErr = err
}

// SetGetError configures GetConfirmation to fail.
func (m *MockConfirmer) SetGetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = err
}

// Count returns the number of distinct workflows started.
func (m *MockConfirmer) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.statuses)
}
