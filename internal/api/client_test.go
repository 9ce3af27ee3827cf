package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// serveOperation returns a backend stub that dispatches on the operation
// named in the posted query.
func serveOperation(t *testing.T, handlers map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/graphql", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req operationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		for op, body := range handlers {
			if strings.Contains(req.Query, op) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(body))
				return
			}
		}
		http.Error(w, "unknown operation", http.StatusBadRequest)
	}))
}

func TestMessages_DecodesNewestFirstPage(t *testing.T) {
	t.Parallel()

	srv := serveOperation(t, map[string]string{
		"messages": `{"data":{"messages":[
			{"_id":"m2","orderId":"o1","senderId":"u2","senderName":"Rider","content":"here","messageType":"text","createdAt":"2026-08-30T12:01:00Z","isRead":false},
			{"_id":"m1","orderId":"o1","senderId":"u1","senderName":"Alice","content":"hi","messageType":"text","createdAt":"2026-08-30T12:00:00Z","isRead":true}
		]}}`,
	})
	defer srv.Close()

	c := NewClient(srv.URL, "test-token")
	defer c.Close()

	msgs, err := c.Messages(context.Background(), "o1", 50, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "m2", msgs[0].ID)
	require.Equal(t, "o1", msgs[0].OrderID)
	require.True(t, msgs[1].IsRead)
	require.Equal(t, time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC), msgs[1].CreatedAt)
}

func TestSendMessage_ReturnsAuthoritativeCopy(t *testing.T) {
	t.Parallel()

	srv := serveOperation(t, map[string]string{
		"sendMessage": `{"data":{"sendMessage":{"_id":"m9","orderId":"o1","senderId":"u1","senderName":"Alice","content":"hello","messageType":"text","createdAt":"2026-08-30T12:02:00Z","isRead":false}}}`,
	})
	defer srv.Close()

	c := NewClient(srv.URL, "test-token")
	defer c.Close()

	m, err := c.SendMessage(context.Background(), SendMessageInput{
		OrderID: "o1", ReceiverID: "u2", Content: "hello", MessageType: "text",
	})
	require.NoError(t, err)
	require.Equal(t, "m9", m.ID)
	require.Equal(t, "hello", m.Content)
}

func TestGetFood_ResolvesNestedRestaurant(t *testing.T) {
	t.Parallel()

	srv := serveOperation(t, map[string]string{
		"getFood": `{"data":{"getFood":{"_id":"f1","name":"Pad Thai","restaurant":{"_id":"r7"}}}}`,
	})
	defer srv.Close()

	c := NewClient(srv.URL, "test-token")
	defer c.Close()

	food, err := c.GetFood(context.Background(), "f1")
	require.NoError(t, err)
	require.Equal(t, "r7", food.ResolvedRestaurantID())
}

func TestCreateOrders_SubmitsBatch(t *testing.T) {
	t.Parallel()

	srv := serveOperation(t, map[string]string{
		"createOrders": `{"data":{"createOrders":[
			{"_id":"o1","restaurantId":"r1","totalAmount":25,"status":"pending"},
			{"_id":"o2","restaurantId":"r2","totalAmount":21,"status":"pending"}
		]}}`,
	})
	defer srv.Close()

	c := NewClient(srv.URL, "test-token")
	defer c.Close()

	orders, err := c.CreateOrders(context.Background(), []CreateOrderInput{
		{RestaurantID: "r1", TotalAmount: 25},
		{RestaurantID: "r2", TotalAmount: 21},
	})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	require.Equal(t, "o2", orders[1].ID)
}

func TestDo_OperationErrorSurfacesAsRequestError(t *testing.T) {
	t.Parallel()

	srv := serveOperation(t, map[string]string{
		"messages": `{"data":null,"errors":[{"message":"order not found"}]}`,
	})
	defer srv.Close()

	c := NewClient(srv.URL, "test-token")
	defer c.Close()

	_, err := c.Messages(context.Background(), "missing", 50, 0)
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	require.Equal(t, "messages", reqErr.Op)
	require.Contains(t, reqErr.Error(), "order not found")
}

func TestDo_HTTPErrorSurfacesStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-token")
	defer c.Close()

	_, err := c.Messages(context.Background(), "o1", 50, 0)
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	require.Equal(t, http.StatusInternalServerError, reqErr.Status)
}
