package links

import (
	"context"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// MockChain is an in-memory Chain for testing. Accounts are absent unless
// added with AddAccount.
type MockChain struct {
	mu        sync.Mutex
	blockhash solana.Hash
	accounts  map[solana.PublicKey]bool
	balances  map[solana.PublicKey]uint64
	err       error
	calls     int
}

// NewMockChain creates a mock chain that hands out blockhash.
func NewMockChain(blockhash solana.Hash) *MockChain {
	return &MockChain{
		blockhash: blockhash,
		accounts:  make(map[solana.PublicKey]bool),
		balances:  make(map[solana.PublicKey]uint64),
	}
}

func (m *MockChain) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return solana.Hash{}, m.err
	}
	return m.blockhash, nil
}

func (m *MockChain) AccountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return false, m.err
	}
	return m.accounts[account], nil
}

func (m *MockChain) Balance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return 0, m.err
	}
	return m.balances[account], nil
}

func (m *MockChain) TokenBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	return m.Balance(ctx, account)
}

// AddAccount marks account as existing on chain.
func (m *MockChain) AddAccount(account solana.PublicKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account] = true
}

// SetBalance sets the lamport or token balance reported for account.
func (m *MockChain) SetBalance(account solana.PublicKey, amount uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[account] = amount
}

// SetError makes every call fail with err.
func (m *MockChain) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many chain reads were made.
func (m *MockChain) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
