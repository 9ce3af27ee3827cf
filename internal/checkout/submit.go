package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/mealdash/appcore/internal/api"
	"github.com/mealdash/appcore/pkg/logger"
)

// Validation failures caught before any network call is made.
var (
	ErrNoShippingAddress = errors.New("checkout: shipping address is required")
	ErrEmptySelection    = errors.New("checkout: no items selected")
)

// OrdersAPI is the API surface used for batched order creation. *api.Client
// satisfies it.
type OrdersAPI interface {
	CreateOrders(ctx context.Context, inputs []api.CreateOrderInput) ([]api.Order, error)
}

// Submitter turns resolved order groups into a single batched createOrders
// call, so a multi-restaurant checkout yields all its orders from one user
// action or none at all.
type Submitter struct {
	api OrdersAPI
}

// NewSubmitter creates a submitter over the given API.
func NewSubmitter(api OrdersAPI) *Submitter {
	return &Submitter{api: api}
}

// Submit validates the checkout, builds one CreateOrderInput per group, and
// issues the batch. Clearing the local cart selection after success stays
// with the caller; some flows intentionally retain unselected items.
func (s *Submitter) Submit(ctx context.Context, groups []OrderGroup, paymentMethod, shippingAddress string) ([]api.Order, error) {
	if shippingAddress == "" {
		return nil, ErrNoShippingAddress
	}
	if len(groups) == 0 {
		return nil, ErrEmptySelection
	}

	inputs := make([]api.CreateOrderInput, 0, len(groups))
	for _, g := range groups {
		if g.Unresolved() {
			return nil, &ResolutionError{Items: g.Items}
		}
		if len(g.Items) == 0 {
			continue
		}
		items := make([]api.OrderItemInput, 0, len(g.Items))
		for _, l := range g.Items {
			items = append(items, api.OrderItemInput{
				FoodID:   l.FoodID,
				Name:     l.Name,
				Price:    l.Price,
				Quantity: l.Quantity,
				Image:    l.Image,
			})
		}
		inputs = append(inputs, api.CreateOrderInput{
			RestaurantID:    g.RestaurantID,
			Items:           items,
			TotalAmount:     g.Total(),
			PaymentMethod:   paymentMethod,
			ShippingAddress: shippingAddress,
		})
	}
	if len(inputs) == 0 {
		return nil, ErrEmptySelection
	}

	orders, err := s.api.CreateOrders(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("submit %d order(s): %w", len(inputs), err)
	}
	logger.Infof("checkout: created %d order(s)", len(orders))
	return orders, nil
}
