package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
)

// MaxAddressLen bounds the delivery address, which is echoed back in the
// confirmation flash cookie.
const MaxAddressLen = 500

// CheckoutService confirms purchases without persisting an order. The
// order_placed event is the only record that a purchase happened.
type CheckoutService struct {
	Products repo.ProductRepository
	Events   events.Publisher
}

type Confirmation struct {
	Product models.Product
	Address string
}

func (s *CheckoutService) Prepare(ctx context.Context, productID uint) (*models.Product, error) {
	return (&CatalogService{Products: s.Products}).GetProduct(ctx, productID)
}

func (s *CheckoutService) PlaceOrder(ctx context.Context, buyer Identity, productID uint, address string) (*Confirmation, error) {
	l := logging.FromContext(ctx).With("svc", "checkout.place_order", "user_id", buyer.UserID, "product_id", productID)

	p, err := s.Prepare(ctx, productID)
	if err != nil {
		return nil, err
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("%w: a delivery address is required", ErrValidation)
	}
	if utf8.RuneCountInString(address) > MaxAddressLen {
		return nil, fmt.Errorf("%w: delivery address must be at most %d characters", ErrValidation, MaxAddressLen)
	}

	publish(ctx, s.Events, userKey(buyer.UserID), events.Event{
		"type":      events.OrderPlaced,
		"userID":    buyer.UserID,
		"productID": p.ID,
		"name":      p.Name,
		"price":     p.Price,
		"address":   address,
	})
	l.Info("order_placed")
	return &Confirmation{Product: *p, Address: address}, nil
}
