package rabbitmq

import (
	"encoding/json"
	"testing"

	"tableside/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	body, err := Encode(domain.EventOrderStatusChanged, domain.OrderStatusChangedEvent{
		OrderID:     5,
		TableNumber: 3,
		Status:      domain.StatusReady,
	}, "req-9")
	require.NoError(t, err)

	var msg struct {
		Pattern string         `json:"pattern"`
		Data    map[string]any `json:"data"`
		ID      string         `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &msg))
	assert.Equal(t, "order.status_changed", msg.Pattern)
	assert.Equal(t, "req-9", msg.ID)
	assert.Equal(t, float64(5), msg.Data["orderId"])
	assert.Equal(t, "ready", msg.Data["status"])
}

func TestEncode_OmitsEmptyID(t *testing.T) {
	body, err := Encode("order.placed", map[string]int{"orderId": 1}, "")
	require.NoError(t, err)
	assert.NotContains(t, string(body), `"id"`)
}

func TestEncode_Unmarshalable(t *testing.T) {
	_, err := Encode("order.placed", make(chan int), "")
	assert.Error(t, err)
}
