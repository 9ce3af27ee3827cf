package checkout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mealdash/appcore/internal/api"
)

// fakeOrdersAPI records createOrders calls so tests can assert nothing was
// submitted on validation failures.
type fakeOrdersAPI struct {
	calls  int
	inputs []api.CreateOrderInput
	err    error
}

func (f *fakeOrdersAPI) CreateOrders(_ context.Context, inputs []api.CreateOrderInput) ([]api.Order, error) {
	f.calls++
	f.inputs = inputs
	if f.err != nil {
		return nil, f.err
	}
	orders := make([]api.Order, 0, len(inputs))
	for i, in := range inputs {
		orders = append(orders, api.Order{
			ID:           string(rune('a' + i)),
			RestaurantID: in.RestaurantID,
			TotalAmount:  in.TotalAmount,
			Status:       "pending",
		})
	}
	return orders, nil
}

func TestSubmit_MissingAddressRejectedBeforeNetwork(t *testing.T) {
	t.Parallel()

	backend := &fakeOrdersAPI{}
	s := NewSubmitter(backend)

	groups := GroupByRestaurant([]CartLine{line("f1", "r1", 10, 1)})
	_, err := s.Submit(context.Background(), groups, "cash", "")
	require.ErrorIs(t, err, ErrNoShippingAddress)
	require.Zero(t, backend.calls)
}

func TestSubmit_EmptySelectionRejectedBeforeNetwork(t *testing.T) {
	t.Parallel()

	backend := &fakeOrdersAPI{}
	s := NewSubmitter(backend)

	_, err := s.Submit(context.Background(), nil, "cash", "1 Main St")
	require.ErrorIs(t, err, ErrEmptySelection)
	require.Zero(t, backend.calls)
}

func TestSubmit_UnresolvedGroupBlocksWholeBatch(t *testing.T) {
	t.Parallel()

	backend := &fakeOrdersAPI{}
	s := NewSubmitter(backend)

	groups := GroupByRestaurant([]CartLine{
		line("f1", "r1", 10, 1),
		line("f2", "", 5, 1),
	})
	_, err := s.Submit(context.Background(), groups, "cash", "1 Main St")

	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	require.Zero(t, backend.calls)
}

func TestSubmit_OneOrderPerGroupInSingleBatch(t *testing.T) {
	t.Parallel()

	backend := &fakeOrdersAPI{}
	s := NewSubmitter(backend)

	groups := GroupByRestaurant([]CartLine{
		line("f1", "r1", 10, 2),
		line("f2", "r1", 5, 1),
		line("f3", "r2", 7, 3),
	})

	orders, err := s.Submit(context.Background(), groups, "card", "1 Main St")
	require.NoError(t, err)
	require.Equal(t, 1, backend.calls)
	require.Len(t, backend.inputs, 2)
	require.Len(t, orders, 2)

	first := backend.inputs[0]
	require.Equal(t, "r1", first.RestaurantID)
	require.Len(t, first.Items, 2)
	require.InDelta(t, 25.0, first.TotalAmount, 1e-9)
	require.Equal(t, "card", first.PaymentMethod)
	require.Equal(t, "1 Main St", first.ShippingAddress)

	second := backend.inputs[1]
	require.Equal(t, "r2", second.RestaurantID)
	require.InDelta(t, 21.0, second.TotalAmount, 1e-9)
}
