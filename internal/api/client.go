package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"resty.dev/v3"
)

const (
	// defaultTimeout is the per-request timeout used by the API client.
	defaultTimeout = 15 * time.Second
	// queryPath is the single query/mutation endpoint.
	queryPath = "/graphql"
)

// RequestError is a failed API call. The chat and checkout layers surface it
// as a retryable condition, never as a silent drop.
type RequestError struct {
	// Op is the API operation that failed (e.g. "messages", "createOrders").
	Op string
	// Status is the HTTP status code, 0 for transport failures.
	Status int
	// Err is the underlying cause.
	Err error
}

func (e *RequestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("api: %s failed with status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("api: %s failed: %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Client talks to the backend's query/mutation API.
type Client struct {
	http *resty.Client
}

// NewClient creates a client for the given base URL and bearer token.
func NewClient(baseURL, token string) *Client {
	httpc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(defaultTimeout)
	if token != "" {
		httpc.SetAuthToken(token)
	}
	return &Client{http: httpc}
}

// SetToken updates the bearer token used for subsequent requests.
func (c *Client) SetToken(token string) {
	c.http.SetAuthToken(token)
}

// Close releases the underlying HTTP resources.
func (c *Client) Close() error {
	return c.http.Close()
}

type operationRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type operationError struct {
	Message string `json:"message"`
}

type operationEnvelope struct {
	Data   json.RawMessage  `json:"data"`
	Errors []operationError `json:"errors,omitempty"`
}

// do posts one operation and decodes its data payload into out.
func (c *Client) do(ctx context.Context, op, query string, vars map[string]any, out any) error {
	env := &operationEnvelope{}
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(operationRequest{Query: query, Variables: vars}).
		SetResult(env).
		Post(queryPath)
	if err != nil {
		return &RequestError{Op: op, Err: err}
	}
	if res.IsError() {
		return &RequestError{Op: op, Status: res.StatusCode(), Err: fmt.Errorf("%s", res.String())}
	}
	if len(env.Errors) > 0 {
		return &RequestError{Op: op, Status: res.StatusCode(), Err: fmt.Errorf("%s", env.Errors[0].Message)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &RequestError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

const messagesQuery = `query Messages($orderId: ID!, $limit: Int!, $offset: Int!) {
  messages(orderId: $orderId, limit: $limit, offset: $offset) {
    _id orderId senderId senderName content messageType createdAt isRead
  }
}`

// Messages fetches one page of the durable message log for an order.
// The backend returns messages newest-first.
func (c *Client) Messages(ctx context.Context, orderID string, limit, offset int) ([]Message, error) {
	var out struct {
		Messages []Message `json:"messages"`
	}
	vars := map[string]any{"orderId": orderID, "limit": limit, "offset": offset}
	if err := c.do(ctx, "messages", messagesQuery, vars, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

const sendMessageMutation = `mutation SendMessage($orderId: ID!, $receiverId: ID!, $content: String!, $messageType: String!) {
  sendMessage(orderId: $orderId, receiverId: $receiverId, content: $content, messageType: $messageType) {
    _id orderId senderId senderName content messageType createdAt isRead
  }
}`

// SendMessage durably persists a message and returns the authoritative copy.
func (c *Client) SendMessage(ctx context.Context, in SendMessageInput) (Message, error) {
	var out struct {
		SendMessage Message `json:"sendMessage"`
	}
	vars := map[string]any{
		"orderId":     in.OrderID,
		"receiverId":  in.ReceiverID,
		"content":     in.Content,
		"messageType": in.MessageType,
	}
	if err := c.do(ctx, "sendMessage", sendMessageMutation, vars, &out); err != nil {
		return Message{}, err
	}
	return out.SendMessage, nil
}

const getFoodQuery = `query GetFood($id: ID!) {
  getFood(id: $id) {
    _id name restaurantId restaurant { _id }
  }
}`

// GetFood fetches a food item; used to backfill missing restaurant ids.
func (c *Client) GetFood(ctx context.Context, id string) (Food, error) {
	var out struct {
		GetFood Food `json:"getFood"`
	}
	if err := c.do(ctx, "getFood", getFoodQuery, map[string]any{"id": id}, &out); err != nil {
		return Food{}, err
	}
	return out.GetFood, nil
}

const createOrdersMutation = `mutation CreateOrders($inputs: [CreateOrderInput!]!) {
  createOrders(inputs: $inputs) {
    _id restaurantId totalAmount status
  }
}`

// CreateOrders submits the whole checkout batch as a single mutation so a
// multi-restaurant cart never ends up partially ordered on the client side.
func (c *Client) CreateOrders(ctx context.Context, inputs []CreateOrderInput) ([]Order, error) {
	var out struct {
		CreateOrders []Order `json:"createOrders"`
	}
	if err := c.do(ctx, "createOrders", createOrdersMutation, map[string]any{"inputs": inputs}, &out); err != nil {
		return nil, err
	}
	return out.CreateOrders, nil
}
