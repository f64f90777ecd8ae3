// Package payment is the boundary to the external payment provider. The core only needs a payment
// intent before checkout; confirmation arrives later as a transaction id.
package payment

import (
	"context"
	"math"
	"strconv"
	"strings"

	"classmaster/internal/qerrors"

	"github.com/google/uuid"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/pkg/errors"
)

// Intent describes a charge to prepare. Amount is in whole rupiah, the unit Midtrans charges in.
type Intent struct {
	OrderID string
	Amount  int64
	Email   string
	ClassID string
}

type Gateway interface {
	// CreateIntent prepares a charge and returns the client secret used by the frontend to complete it.
	CreateIntent(ctx context.Context, intent Intent) (string, error)
}

// ParsePrice validates a price taken from a JSON body and converts it to a chargeable amount. Missing
// and non-numeric prices are rejected, as are prices that round to zero or less or do not fit in an
// int64.
func ParsePrice(raw interface{}) (int64, error) {
	var price float64
	switch v := raw.(type) {
	case nil:
		return 0, qerrors.NewValidationError("price", "required")
	case float64:
		price = v
	case int:
		price = float64(v)
	case int64:
		price = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, qerrors.NewValidationError("price", "must be a number")
		}
		price = parsed
	default:
		return 0, qerrors.NewValidationError("price", "must be a number")
	}

	if math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, qerrors.NewValidationError("price", "must be a number")
	}

	amount := math.Round(price)
	if amount <= 0 {
		return 0, qerrors.NewValidationError("price", "must be greater than zero")
	}
	// float64(math.MaxInt64) rounds up to 2^63, which is already out of range.
	if amount >= float64(math.MaxInt64) {
		return 0, qerrors.NewValidationError("price", "is too large")
	}

	return int64(amount), nil
}

// NewIntent builds an Intent for an amount returned by ParsePrice, with a fresh order id.
func NewIntent(amount int64, email, classID string) Intent {
	return Intent{
		OrderID: "order-" + uuid.NewString(),
		Amount:  amount,
		Email:   email,
		ClassID: classID,
	}
}

// MidtransGateway creates Snap transactions; the Snap token is the client secret.
type MidtransGateway struct {
	client snap.Client
}

func NewMidtransGateway(serverKey string, production bool) *MidtransGateway {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}

	g := &MidtransGateway{}
	g.client.New(serverKey, env)
	return g
}

func (g *MidtransGateway) CreateIntent(ctx context.Context, intent Intent) (string, error) {
	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  intent.OrderID,
			GrossAmt: intent.Amount,
		},
		CreditCard: &snap.CreditCardDetails{Secure: true},
	}
	if intent.Email != "" {
		req.CustomerDetail = &midtrans.CustomerDetails{Email: intent.Email}
	}
	if intent.ClassID != "" {
		req.Items = &[]midtrans.ItemDetails{{
			ID:    intent.ClassID,
			Price: intent.Amount,
			Qty:   1,
			Name:  "Class enrollment",
		}}
	}

	resp, midErr := g.client.CreateTransaction(req)
	if midErr != nil {
		return "", errors.Wrap(midErr, "creating payment intent")
	}

	return resp.Token, nil
}
