package api

import "time"

// Message is a chat message as returned by the backend.
type Message struct {
	// ID is the server-assigned message id.
	ID string `json:"_id"`
	// OrderID is the order the conversation is bound to.
	OrderID string `json:"orderId"`
	// SenderID identifies the authoring user.
	SenderID string `json:"senderId"`
	// SenderName is the display name captured at send time.
	SenderName string `json:"senderName"`
	// Content is the message body.
	Content string `json:"content"`
	// MessageType distinguishes text from image/location payloads.
	MessageType string `json:"messageType"`
	// CreatedAt is the server persistence timestamp.
	CreatedAt time.Time `json:"createdAt"`
	// IsRead reports whether the recipient has read the message.
	IsRead bool `json:"isRead"`
}

// SendMessageInput is the sendMessage mutation input.
type SendMessageInput struct {
	OrderID     string `json:"orderId"`
	ReceiverID  string `json:"receiverId"`
	Content     string `json:"content"`
	MessageType string `json:"messageType"`
}

// Food is the subset of a food item needed to resolve its restaurant.
type Food struct {
	ID           string `json:"_id"`
	Name         string `json:"name"`
	RestaurantID string `json:"restaurantId"`
	Restaurant   *struct {
		ID string `json:"_id"`
	} `json:"restaurant"`
}

// ResolvedRestaurantID returns the restaurant id regardless of which field
// the backend populated, or "" when neither is set.
func (f Food) ResolvedRestaurantID() string {
	if f.RestaurantID != "" {
		return f.RestaurantID
	}
	if f.Restaurant != nil {
		return f.Restaurant.ID
	}
	return ""
}

// OrderItemInput is a single cart line inside a CreateOrderInput.
type OrderItemInput struct {
	FoodID   string  `json:"foodId"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Image    string  `json:"image,omitempty"`
}

// CreateOrderInput is one order in a batched createOrders mutation.
type CreateOrderInput struct {
	RestaurantID    string           `json:"restaurantId"`
	Items           []OrderItemInput `json:"items"`
	TotalAmount     float64          `json:"totalAmount"`
	PaymentMethod   string           `json:"paymentMethod"`
	ShippingAddress string           `json:"shippingAddress"`
}

// Order is a created order as returned by the backend.
type Order struct {
	ID           string  `json:"_id"`
	RestaurantID string  `json:"restaurantId"`
	TotalAmount  float64 `json:"totalAmount"`
	Status       string  `json:"status"`
}
