package links

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Token selects the transfer path for a payment.
type Token string

const (
	TokenSOL  Token = "SOL"
	TokenUSDC Token = "USDC"
)

// ParseToken is exact and case-sensitive.
func ParseToken(s string) (Token, error) {
	switch Token(s) {
	case TokenSOL, TokenUSDC:
		return Token(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedToken, s)
}

// Decimals returns the base-unit scale of the token.
func (t Token) Decimals() (int32, error) {
	switch t {
	case TokenSOL:
		return 9, nil
	case TokenUSDC:
		return 6, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedToken, string(t))
}

// Record is a stored payment request. It is never mutated after creation.
type Record struct {
	Recipient string  `json:"recipient"`
	Token     Token   `json:"token"`
	Amount    float64 `json:"amount"`
	Memo      string  `json:"memo,omitempty"`
}

// Action is the display payload served to Action-aware clients.
type Action struct {
	Icon        string `json:"icon"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Label       string `json:"label"`
}

// CreateParams is the input to Service.Create. Token is kept as a raw string so
// that a missing value can be told apart from an unsupported one.
type CreateParams struct {
	Recipient string
	Token     string
	Amount    float64
	Memo      string
	// BaseURL overrides the configured site URL, typically with the request origin.
	BaseURL string
}

// CreatedLink is returned by Service.Create.
type CreatedLink struct {
	ID        string  `json:"id"`
	Link      string  `json:"link"`
	ActionURL string  `json:"action_url"`
	Record    *Record `json:"-"`
}

// BuiltTransaction is an unsigned transaction ready for a wallet to sign.
type BuiltTransaction struct {
	Transaction     string `json:"transaction"`
	Message         string `json:"message"`
	RecentBlockhash string `json:"recent_blockhash"`
	Instructions    int    `json:"instructions"`
	// AccountCreated is set when the transaction creates the recipient's token account.
	AccountCreated bool `json:"account_created"`
}

// StoreKey returns the key a link is persisted under.
func StoreKey(id string) string {
	return "link:" + id
}

// PagePath and ActionPath are the URL paths of a link's human page and its action endpoint.
func PagePath(id string) string   { return "/p/" + id }
func ActionPath(id string) string { return "/p/" + id + "/action.json" }

// ToBaseUnits converts a whole-token amount into base units. Precision beyond
// the token's scale is truncated toward zero.
func ToBaseUnits(amount float64, token Token) (uint64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0, &ValidationError{Field: "amount", Msg: "amount must be a positive number"}
	}
	decimals, err := token.Decimals()
	if err != nil {
		return 0, err
	}

	units := decimal.NewFromFloat(amount).Shift(decimals).Truncate(0)
	n := units.BigInt()
	if !n.IsUint64() {
		return 0, &ValidationError{Field: "amount", Msg: "amount is too large"}
	}
	if n.Uint64() == 0 {
		return 0, &ValidationError{Field: "amount", Msg: fmt.Sprintf("amount is smaller than the smallest %s unit", token)}
	}
	return n.Uint64(), nil
}

// FormatAmount prints an amount the way a browser prints a number: shortest
// round-trip digits, with exponent notation only for very large or very small values.
func FormatAmount(amount float64) string {
	abs := math.Abs(amount)
	if abs != 0 && (abs >= 1e21 || abs < 1e-6) {
		s := strconv.FormatFloat(amount, 'e', -1, 64)
		mantissa, exp, _ := strings.Cut(s, "e")
		sign := exp[:1]
		digits := strings.TrimLeft(exp[1:], "0")
		return mantissa + "e" + sign + digits
	}
	return strconv.FormatFloat(amount, 'f', -1, 64)
}
