package service

import (
	"context"
	"errors"
	"fmt"

	"tokenledger/internal/model"
	"tokenledger/pkg/idgen"
)

var ErrPackageNotFound = errors.New("package not found")

// TopupService opens pending top-up orders against the package catalogs.
// The order id it mints becomes the transaction's external id; the
// payment provider echoes it back in the webhook and the confirmation
// gateway settles on it.
type TopupService struct {
	ledger *LedgerService
}

func NewTopupService(ledger *LedgerService) *TopupService {
	return &TopupService{ledger: ledger}
}

// TopupOrder is a freshly created pending top-up.
type TopupOrder struct {
	OrderID     string             `json:"order_id"`
	Transaction *model.Transaction `json:"transaction"`
	PaymentLink string             `json:"payment_link,omitempty"`
}

// CreateCardOrder opens a pending card top-up for the named package.
func (s *TopupService) CreateCardOrder(ctx context.Context, accountID int64, packageCode string) (*TopupOrder, error) {
	pkg, ok := GetCardPackage(packageCode)
	if !ok {
		return nil, ErrPackageNotFound
	}

	orderID := idgen.NewOrderID()
	trans, err := s.ledger.CreatePendingTopup(ctx, accountID, pkg.Diamonds, model.MethodCard, orderID, map[string]interface{}{
		"package":   pkg.Code,
		"price_rub": pkg.PriceRub,
	})
	if err != nil {
		return nil, err
	}

	return &TopupOrder{
		OrderID:     orderID,
		Transaction: trans,
		PaymentLink: fmt.Sprintf("https://pay.example.com/checkout/%s", orderID),
	}, nil
}

// CreateStarsOrder opens a pending stars top-up for the named package.
func (s *TopupService) CreateStarsOrder(ctx context.Context, accountID int64, packageCode string) (*TopupOrder, error) {
	pkg, ok := GetStarsPackage(packageCode)
	if !ok {
		return nil, ErrPackageNotFound
	}

	orderID := idgen.NewStarsOrderID()
	trans, err := s.ledger.CreatePendingTopup(ctx, accountID, pkg.Diamonds, model.MethodStars, orderID, map[string]interface{}{
		"package": pkg.Code,
		"stars":   pkg.Stars,
	})
	if err != nil {
		return nil, err
	}

	return &TopupOrder{
		OrderID:     orderID,
		Transaction: trans,
	}, nil
}
