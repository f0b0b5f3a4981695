package links

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/brojonat/blinkpay/service/metrics"
	"github.com/brojonat/blinkpay/service/nats"
	bpsolana "github.com/brojonat/blinkpay/service/solana"
	"github.com/gagliardetto/solana-go"
)

// Chain is the subset of chain reads the transaction builder needs.
type Chain interface {
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	// AccountExists returns (false, nil) for an account that is not on chain.
	AccountExists(ctx context.Context, account solana.PublicKey) (bool, error)
	Balance(ctx context.Context, account solana.PublicKey) (uint64, error)
	TokenBalance(ctx context.Context, account solana.PublicKey) (uint64, error)
}

// Options configures a Service.
type Options struct {
	// SiteURL is the default base for generated links.
	SiteURL  string
	IconURL  string
	USDCMint solana.PublicKey
	// StrictBalanceCheck refuses to build transactions the payer cannot fund.
	StrictBalanceCheck bool
}

// Service creates payment links and resolves them into display payloads and
// unsigned transactions.
type Service struct {
	store     Store
	chain     Chain
	opts      Options
	publisher nats.EventPublisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewService wires a Service. publisher and m may be nil.
func NewService(store Store, chain Chain, opts Options, publisher nats.EventPublisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		chain:     chain,
		opts:      opts,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

const (
	idLength   = 8
	idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// NewID returns a random 8-character lowercase base36 identifier.
func NewID() (string, error) {
	buf := make([]byte, idLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return string(buf), nil
}

// ValidID reports whether id has the shape NewID produces.
func ValidID(id string) bool {
	if len(id) != idLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if !strings.ContainsRune(idAlphabet, rune(id[i])) {
			return false
		}
	}
	return true
}

// Create validates a payment request, stores it under a fresh identifier and
// returns the shareable URLs. Identifiers are not checked for collisions.
func (s *Service) Create(ctx context.Context, params CreateParams) (*CreatedLink, error) {
	rec, err := s.validate(params)
	if err != nil {
		s.recordLinkCreated(params.Token, "invalid")
		return nil, err
	}

	id, err := NewID()
	if err != nil {
		s.recordLinkCreated(params.Token, "error")
		return nil, err
	}

	if err := s.store.Set(ctx, id, rec); err != nil {
		s.recordLinkCreated(params.Token, "error")
		return nil, fmt.Errorf("failed to store link: %w", err)
	}
	s.recordLinkCreated(params.Token, "success")

	base := strings.TrimRight(params.BaseURL, "/")
	if base == "" {
		base = strings.TrimRight(s.opts.SiteURL, "/")
	}

	s.logger.InfoContext(ctx, "payment link created",
		"link_id", id,
		"token", rec.Token,
		"amount", rec.Amount,
		"recipient", rec.Recipient,
	)
	s.publish(ctx, nats.NewLinkEvent(nats.EventLinkCreated, id, rec.Recipient, string(rec.Token), rec.Amount))

	return &CreatedLink{
		ID:        id,
		Link:      base + PagePath(id),
		ActionURL: base + ActionPath(id),
		Record:    rec,
	}, nil
}

func (s *Service) validate(params CreateParams) (*Record, error) {
	recipient := strings.TrimSpace(params.Recipient)
	if recipient == "" || params.Token == "" || params.Amount == 0 {
		return nil, &ValidationError{Msg: "Missing required fields"}
	}
	if _, err := solana.PublicKeyFromBase58(recipient); err != nil {
		return nil, &ValidationError{Field: "recipient", Msg: "Invalid recipient address"}
	}
	token, err := ParseToken(params.Token)
	if err != nil {
		return nil, &ValidationError{Field: "token", Msg: "Token not supported"}
	}
	if math.IsNaN(params.Amount) || math.IsInf(params.Amount, 0) || params.Amount <= 0 {
		return nil, &ValidationError{Field: "amount", Msg: "Amount must be a positive number"}
	}

	return &Record{
		Recipient: recipient,
		Token:     token,
		Amount:    params.Amount,
		Memo:      params.Memo,
	}, nil
}

// Get returns the stored record for id.
func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load link %s: %w", id, err)
	}
	return rec, nil
}

// Describe builds the Action display payload for a link. Stored data is
// interpolated as-is.
func (s *Service) Describe(ctx context.Context, id string) (*Action, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		s.recordActionResolved(err)
		return nil, err
	}
	s.recordActionResolved(nil)

	amount := FormatAmount(rec.Amount)
	memo := rec.Memo
	if memo == "" {
		memo = "No memo"
	}

	return &Action{
		Icon:        s.opts.IconURL,
		Title:       fmt.Sprintf("BlinkPay: Pay %s %s", amount, rec.Token),
		Description: fmt.Sprintf("You are about to pay %s %s to %s. Memo: %s", amount, rec.Token, rec.Recipient, memo),
		Label:       "Pay Now",
	}, nil
}

// BuildTransaction builds an unsigned transfer from account to the link's
// recipient. The returned transaction is fee-paid by account and carries no
// signatures. Nothing is persisted.
func (s *Service) BuildTransaction(ctx context.Context, id, account string) (*BuiltTransaction, error) {
	start := time.Now()

	rec, err := s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: payment link not found", ErrBadRequest)
	}
	if err != nil {
		return nil, err
	}

	account = strings.TrimSpace(account)
	if account == "" {
		return nil, fmt.Errorf("%w: missing account", ErrBadRequest)
	}
	payer, err := solana.PublicKeyFromBase58(account)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid account address", ErrBadRequest)
	}

	// Reject unsupported tokens before touching the chain.
	if _, err := ParseToken(string(rec.Token)); err != nil {
		s.recordTransactionBuilt("other", "unsupported", false, start)
		return nil, err
	}

	recipient, err := solana.PublicKeyFromBase58(rec.Recipient)
	if err != nil {
		return nil, fmt.Errorf("stored recipient %q is invalid: %w", rec.Recipient, err)
	}

	units, err := ToBaseUnits(rec.Amount, rec.Token)
	if err != nil {
		s.recordTransactionBuilt(rec.Token, "invalid", false, start)
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}

	var tx *solana.Transaction
	var accountCreated bool

	switch rec.Token {
	case TokenSOL:
		if err := s.checkSOLBalance(ctx, payer, units); err != nil {
			s.recordTransactionBuilt(rec.Token, "error", false, start)
			return nil, err
		}
		blockhash, err := s.chain.LatestBlockhash(ctx)
		if err != nil {
			s.recordTransactionBuilt(rec.Token, "error", false, start)
			return nil, err
		}
		tx, err = bpsolana.BuildSOLTransfer(payer, recipient, units, blockhash)
		if err != nil {
			s.recordTransactionBuilt(rec.Token, "error", false, start)
			return nil, err
		}

	case TokenUSDC:
		tx, accountCreated, err = s.buildUSDC(ctx, payer, recipient, units)
		if err != nil {
			s.recordTransactionBuilt(rec.Token, "error", false, start)
			return nil, err
		}
	}

	encoded, err := bpsolana.EncodeUnsigned(tx)
	if err != nil {
		s.recordTransactionBuilt(rec.Token, "error", accountCreated, start)
		return nil, err
	}
	s.recordTransactionBuilt(rec.Token, "success", accountCreated, start)

	s.logger.InfoContext(ctx, "built unsigned transaction",
		"link_id", id,
		"payer", payer.String(),
		"token", rec.Token,
		"base_units", units,
		"account_created", accountCreated,
	)

	event := nats.NewLinkEvent(nats.EventTransactionBuilt, id, rec.Recipient, string(rec.Token), rec.Amount)
	event.Payer = payer.String()
	s.publish(ctx, event)

	return &BuiltTransaction{
		Transaction:     encoded,
		Message:         fmt.Sprintf("Pay %s %s to %s", FormatAmount(rec.Amount), rec.Token, rec.Recipient),
		RecentBlockhash: tx.Message.RecentBlockhash.String(),
		Instructions:    len(tx.Message.Instructions),
		AccountCreated:  accountCreated,
	}, nil
}

func (s *Service) buildUSDC(ctx context.Context, payer, recipient solana.PublicKey, units uint64) (*solana.Transaction, bool, error) {
	mint := s.opts.USDCMint
	recipientATA, err := bpsolana.AssociatedTokenAddress(recipient, mint)
	if err != nil {
		return nil, false, err
	}

	if s.opts.StrictBalanceCheck {
		payerATA, err := bpsolana.AssociatedTokenAddress(payer, mint)
		if err != nil {
			return nil, false, err
		}
		balance, err := s.chain.TokenBalance(ctx, payerATA)
		if err != nil {
			return nil, false, err
		}
		if balance < units {
			return nil, false, fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, balance, units)
		}
	}

	exists, err := s.chain.AccountExists(ctx, recipientATA)
	if err != nil {
		return nil, false, err
	}

	blockhash, err := s.chain.LatestBlockhash(ctx)
	if err != nil {
		return nil, false, err
	}

	tx, err := bpsolana.BuildTokenTransfer(bpsolana.TokenTransferParams{
		Payer:                  payer,
		Recipient:              recipient,
		Mint:                   mint,
		Amount:                 units,
		CreateRecipientAccount: !exists,
		Blockhash:              blockhash,
	})
	if err != nil {
		return nil, false, err
	}
	return tx, !exists, nil
}

func (s *Service) checkSOLBalance(ctx context.Context, payer solana.PublicKey, lamports uint64) error {
	if !s.opts.StrictBalanceCheck {
		return nil
	}
	balance, err := s.chain.Balance(ctx, payer)
	if err != nil {
		return err
	}
	if balance < lamports {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, balance, lamports)
	}
	return nil
}

// publish is best effort; a failed publish never fails the request.
func (s *Service) publish(ctx context.Context, event *nats.LinkEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLinkEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish link event",
			"type", event.Type,
			"link_id", event.LinkID,
			"error", err,
		)
	}
}

func (s *Service) recordLinkCreated(token, status string) {
	if s.metrics == nil {
		return
	}
	// Keep label cardinality bounded for arbitrary client input.
	if _, err := ParseToken(token); err != nil {
		token = "other"
	}
	s.metrics.RecordLinkCreated(token, status)
}

func (s *Service) recordActionResolved(err error) {
	if s.metrics == nil {
		return
	}
	switch {
	case err == nil:
		s.metrics.RecordActionResolved("found")
	case errors.Is(err, ErrNotFound):
		s.metrics.RecordActionResolved("not_found")
	default:
		s.metrics.RecordActionResolved("error")
	}
}

func (s *Service) recordTransactionBuilt(token Token, status string, accountCreated bool, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordTransactionBuilt(string(token), status, accountCreated, time.Since(start).Seconds())
	}
}
