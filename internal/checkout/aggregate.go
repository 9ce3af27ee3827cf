package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/mealdash/appcore/pkg/logger"
)

// ResolutionError reports cart lines whose restaurant could not be
// determined. It blocks the checkout attempt and names the offending items so
// the user is told which ones cannot be ordered.
type ResolutionError struct {
	Items []CartLine
}

func (e *ResolutionError) Error() string {
	names := make([]string, 0, len(e.Items))
	for _, l := range e.Items {
		names = append(names, l.Name)
	}
	return fmt.Sprintf("checkout: restaurant unresolved for %d item(s): %s",
		len(e.Items), strings.Join(names, ", "))
}

// RestaurantLookup resolves a food id to its restaurant id. It is called at
// most once per distinct food id during resolution.
type RestaurantLookup func(ctx context.Context, foodID string) (string, error)

// GroupByRestaurant buckets lines by restaurant, preserving the original line
// order and the insertion order of each restaurant's first appearance. Lines
// without a restaurant id land in the sentinel group.
func GroupByRestaurant(lines []CartLine) []OrderGroup {
	index := make(map[string]int)
	groups := make([]OrderGroup, 0)
	for _, l := range lines {
		key := normalizeRestaurantID(l.RestaurantID)
		l.RestaurantID = key
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, OrderGroup{RestaurantID: key})
		}
		groups[i].Items = append(groups[i].Items, l)
	}
	return groups
}

// ResolveMissing back-fills restaurant ids for the sentinel group's lines via
// the lookup, one call per distinct food id, and regroups. If any line is
// still unresolved afterwards the whole attempt fails with a ResolutionError.
func ResolveMissing(ctx context.Context, groups []OrderGroup, lookup RestaurantLookup) ([]OrderGroup, error) {
	var unresolved []CartLine
	for _, g := range groups {
		if g.Unresolved() {
			unresolved = g.Items
		}
	}
	if len(unresolved) == 0 {
		return groups, nil
	}

	// Deduplicate before hitting the API: several lines may share a food id.
	resolved := make(map[string]string)
	for _, l := range unresolved {
		if _, seen := resolved[l.FoodID]; seen {
			continue
		}
		id, err := lookup(ctx, l.FoodID)
		if err != nil {
			logger.Warnf("checkout: restaurant lookup failed for food %s: %v", l.FoodID, err)
			id = ""
		}
		resolved[l.FoodID] = normalizeRestaurantID(id)
	}

	lines := Flatten(groups)
	for i := range lines {
		if normalizeRestaurantID(lines[i].RestaurantID) != "" {
			continue
		}
		lines[i].RestaurantID = resolved[lines[i].FoodID]
	}

	regrouped := GroupByRestaurant(lines)
	for _, g := range regrouped {
		if g.Unresolved() {
			return nil, &ResolutionError{Items: g.Items}
		}
	}
	return regrouped, nil
}

// Flatten returns the groups' lines in group order, preserving each group's
// internal order.
func Flatten(groups []OrderGroup) []CartLine {
	var lines []CartLine
	for _, g := range groups {
		lines = append(lines, g.Items...)
	}
	return lines
}
