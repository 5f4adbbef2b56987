package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"farmfi-backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	farmer7 = models.Identity{ID: 7, Role: models.RoleFarmer, Login: "9000000007"}
	farmer8 = models.Identity{ID: 8, Role: models.RoleFarmer, Login: "9000000008"}
	staff   = models.Identity{ID: 1, Role: models.RoleEmployee, Login: "ravi"}
)

func event(farmerID int) models.StatusEvent {
	return models.StatusEvent{Type: "status_changed", Entity: models.EntityField, ID: 3, FarmerID: farmerID, Status: models.StatusEmployeeVerified}
}

func TestPublishFiltersByOwner(t *testing.T) {
	h := NewHub(zap.NewNop())
	defer h.Close()

	own := h.Subscribe(farmer7)
	other := h.Subscribe(farmer8)
	emp := h.Subscribe(staff)

	h.Publish(event(7))

	assert.Len(t, own.C, 1)
	assert.Len(t, other.C, 0)
	assert.Len(t, emp.C, 1)
}

func TestPublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	h := NewHub(zap.NewNop())
	defer h.Close()
	s := h.Subscribe(staff)

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			h.Publish(event(7))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked")
	}
	assert.Len(t, s.C, subscriberBuffer)
}

func TestUnsubscribeAndClose(t *testing.T) {
	h := NewHub(zap.NewNop())
	s := h.Subscribe(farmer7)
	require.Equal(t, 1, h.Count())

	h.Unsubscribe(s)
	h.Unsubscribe(s)
	_, open := <-s.C
	assert.False(t, open)
	assert.Equal(t, 0, h.Count())

	s2 := h.Subscribe(staff)
	h.Close()
	_, open = <-s2.C
	assert.False(t, open)
	assert.Nil(t, h.Subscribe(staff))
}

func TestServeConnDeliversEvents(t *testing.T) {
	h := NewHub(zap.NewNop())
	defer h.Close()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.ServeConn(context.Background(), conn, farmer7)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return h.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	h.Publish(event(8)) // not ours
	h.Publish(event(7))

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got models.StatusEvent
	require.NoError(t, client.ReadJSON(&got))
	assert.Equal(t, 7, got.FarmerID)
	assert.Equal(t, models.StatusEmployeeVerified, got.Status)

	require.NoError(t, client.Close())
	require.Eventually(t, func() bool { return h.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}
