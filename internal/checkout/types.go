package checkout

import "strings"

// CartLine is one selected item as captured at add-to-cart time. Price is a
// snapshot of what the user was shown. RestaurantID may be empty for lines
// carried over from a legacy selection; it must be resolved before submission.
type CartLine struct {
	FoodID       string  `json:"foodId"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	Quantity     int     `json:"quantity"`
	Image        string  `json:"image,omitempty"`
	RestaurantID string  `json:"restaurantId,omitempty"`
}

// Subtotal is the line's price snapshot times quantity. The displayed price
// is never re-fetched for this.
func (l CartLine) Subtotal() float64 {
	return l.Price * float64(l.Quantity)
}

// OrderGroup is the set of cart lines one restaurant must fulfill. A group
// with an empty RestaurantID is the unresolved bucket; submitting it is an
// error, never a silent drop.
type OrderGroup struct {
	RestaurantID string
	Items        []CartLine
}

// Unresolved reports whether this is the sentinel bucket of lines with no
// known restaurant.
func (g OrderGroup) Unresolved() bool { return g.RestaurantID == "" }

// Total sums the group's line subtotals.
func (g OrderGroup) Total() float64 {
	var total float64
	for _, l := range g.Items {
		total += l.Subtotal()
	}
	return total
}

// normalizeRestaurantID maps absent and whitespace-only ids onto the
// sentinel key.
func normalizeRestaurantID(id string) string {
	return strings.TrimSpace(id)
}
