package chat

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFanout struct {
	mu       sync.Mutex
	published []struct {
		conversationID uuid.UUID
		payload        []byte
	}
	err error
}

func (f *fakeFanout) PublishToConversation(conversationID uuid.UUID, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, struct {
		conversationID uuid.UUID
		payload        []byte
	}{conversationID, payload})
	return nil
}

func (f *fakeFanout) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

func newTestHub(fanout CrossInstanceFanout) (*Hub, *logrus.Logger) {
	logger, _ := test.NewNullLogger()
	hub := NewHub(fanout, logger)
	go hub.Run()
	return hub, logger
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestHub_RegisterThenDeliverLocal(t *testing.T) {
	hub, _ := newTestHub(nil)
	convID := uuid.New()
	client := &Client{UserID: uuid.New(), Send: make(chan []byte, 4)}

	hub.Register(client, convID)
	waitFor(t, func() bool { return hub.ConnectionCount(convID) == 1 })

	hub.Publish(convID, []byte("hello"))

	select {
	case payload := <-client.Send:
		assert.Equal(t, []byte("hello"), payload)
	case <-time.After(time.Second):
		t.Fatal("expected delivery to registered client")
	}
}

func TestHub_Publish_ForwardsToFanout(t *testing.T) {
	fanout := &fakeFanout{}
	hub, _ := newTestHub(fanout)
	convID := uuid.New()

	hub.Publish(convID, []byte("payload"))
	waitFor(t, func() bool { return fanout.count() == 1 })
}

func TestHub_Unregister_ClosesSendChannel(t *testing.T) {
	hub, _ := newTestHub(nil)
	convID := uuid.New()
	client := &Client{UserID: uuid.New(), Send: make(chan []byte, 4)}

	hub.Register(client, convID)
	waitFor(t, func() bool { return hub.ConnectionCount(convID) == 1 })

	hub.Unregister(client, convID)
	waitFor(t, func() bool { return hub.ConnectionCount(convID) == 0 })

	_, ok := <-client.Send
	assert.False(t, ok, "Send channel must be closed on unregister")
}

func TestHub_DeliverFromFanout_ReachesLocalClients(t *testing.T) {
	hub, _ := newTestHub(nil)
	convID := uuid.New()
	client := &Client{UserID: uuid.New(), Send: make(chan []byte, 4)}

	hub.Register(client, convID)
	waitFor(t, func() bool { return hub.ConnectionCount(convID) == 1 })

	hub.DeliverFromFanout(convID, []byte("from-other-instance"))

	select {
	case payload := <-client.Send:
		assert.Equal(t, []byte("from-other-instance"), payload)
	case <-time.After(time.Second):
		t.Fatal("expected fanout delivery to reach local client")
	}
}

func TestHub_DeliverLocal_DropsSlowClientRatherThanBlocking(t *testing.T) {
	hub, _ := newTestHub(nil)
	convID := uuid.New()
	client := &Client{UserID: uuid.New(), Send: make(chan []byte)} // unbuffered, never drained

	hub.Register(client, convID)
	waitFor(t, func() bool { return hub.ConnectionCount(convID) == 1 })

	done := make(chan struct{})
	go func() {
		hub.Publish(convID, []byte("will be dropped"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish must not block on a slow client")
	}
}

func TestHub_ActiveConversationIDs(t *testing.T) {
	hub, _ := newTestHub(nil)
	convA, convB := uuid.New(), uuid.New()
	clientA := &Client{UserID: uuid.New(), Send: make(chan []byte, 1)}
	clientB := &Client{UserID: uuid.New(), Send: make(chan []byte, 1)}

	hub.Register(clientA, convA)
	hub.Register(clientB, convB)
	waitFor(t, func() bool { return len(hub.ActiveConversationIDs()) == 2 })

	ids := hub.ActiveConversationIDs()
	require.Len(t, ids, 2)
	assert.ElementsMatch(t, []uuid.UUID{convA, convB}, ids)
}
