package checkout

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func line(foodID, restaurantID string, price float64, qty int) CartLine {
	return CartLine{FoodID: foodID, Name: "food-" + foodID, Price: price, Quantity: qty, RestaurantID: restaurantID}
}

func TestGroupByRestaurant_SplitsPerRestaurant(t *testing.T) {
	t.Parallel()

	lines := []CartLine{
		line("f1", "r1", 10, 2),
		line("f2", "r1", 5, 1),
		line("f3", "r2", 7, 1),
	}

	groups := GroupByRestaurant(lines)
	require.Len(t, groups, 2)
	require.Equal(t, "r1", groups[0].RestaurantID)
	require.Len(t, groups[0].Items, 2)
	require.Equal(t, "r2", groups[1].RestaurantID)
	require.Len(t, groups[1].Items, 1)
}

func TestGroupByRestaurant_PreservesEveryLine(t *testing.T) {
	t.Parallel()

	lines := []CartLine{
		line("f1", "r2", 1, 1),
		line("f2", "r1", 2, 1),
		line("f3", "r2", 3, 1),
		line("f4", "", 4, 1),
		line("f5", "r1", 5, 1),
	}

	groups := GroupByRestaurant(lines)
	total := 0
	for _, g := range groups {
		total += len(g.Items)
	}
	require.Equal(t, len(lines), total)

	// First-appearance order: r2, r1, then the sentinel bucket.
	require.Equal(t, "r2", groups[0].RestaurantID)
	require.Equal(t, "r1", groups[1].RestaurantID)
	require.True(t, groups[2].Unresolved())
}

func TestGroupByRestaurant_NormalizesWhitespaceIDs(t *testing.T) {
	t.Parallel()

	groups := GroupByRestaurant([]CartLine{
		line("f1", " r1 ", 1, 1),
		line("f2", "r1", 1, 1),
		line("f3", "   ", 1, 1),
	})
	require.Len(t, groups, 2)
	require.Equal(t, "r1", groups[0].RestaurantID)
	require.Len(t, groups[0].Items, 2)
	require.True(t, groups[1].Unresolved())
}

func TestResolveMissing_BackfillsFromLookup(t *testing.T) {
	t.Parallel()

	groups := GroupByRestaurant([]CartLine{line("f1", "", 9, 1)})

	resolved, err := ResolveMissing(context.Background(), groups, func(_ context.Context, foodID string) (string, error) {
		require.Equal(t, "f1", foodID)
		return "r3", nil
	})
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	require.Equal(t, "r3", resolved[0].RestaurantID)
	require.Len(t, resolved[0].Items, 1)
}

func TestResolveMissing_OneLookupPerFoodID(t *testing.T) {
	t.Parallel()

	// Three lines, two distinct unresolved food ids.
	groups := GroupByRestaurant([]CartLine{
		line("f1", "", 1, 1),
		line("f1", "", 1, 2),
		line("f2", "", 2, 1),
	})

	var calls atomic.Int32
	resolved, err := ResolveMissing(context.Background(), groups, func(_ context.Context, foodID string) (string, error) {
		calls.Add(1)
		return "r9", nil
	})
	require.NoError(t, err)
	require.EqualValues(t, 2, calls.Load())
	require.Len(t, resolved, 1)
	require.Len(t, resolved[0].Items, 3)
}

func TestResolveMissing_UnresolvableIsHardError(t *testing.T) {
	t.Parallel()

	groups := GroupByRestaurant([]CartLine{
		line("f1", "r1", 1, 1),
		line("f2", "", 2, 1),
	})

	_, err := ResolveMissing(context.Background(), groups, func(_ context.Context, _ string) (string, error) {
		return "", errors.New("not found")
	})
	require.Error(t, err)

	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	require.Len(t, resErr.Items, 1)
	require.Equal(t, "f2", resErr.Items[0].FoodID)
	require.Contains(t, resErr.Error(), "food-f2")
}

func TestResolveMissing_NoMissingIsNoop(t *testing.T) {
	t.Parallel()

	groups := GroupByRestaurant([]CartLine{line("f1", "r1", 1, 1)})
	resolved, err := ResolveMissing(context.Background(), groups, func(_ context.Context, _ string) (string, error) {
		t.Fatal("lookup must not be called")
		return "", nil
	})
	require.NoError(t, err)
	require.Equal(t, groups, resolved)
}

func TestGroupTotal_UsesPriceSnapshots(t *testing.T) {
	t.Parallel()

	g := OrderGroup{RestaurantID: "r1", Items: []CartLine{
		line("f1", "r1", 10.5, 2),
		line("f2", "r1", 3.25, 4),
	}}
	require.InDelta(t, 34.0, g.Total(), 1e-9)
}
