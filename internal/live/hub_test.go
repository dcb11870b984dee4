package live

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.C():
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func assertEmpty(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case ev := <-sub.C():
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}

func TestPublish_RoutesByTopic(t *testing.T) {
	hub := NewHub()
	g1 := hub.Subscribe(GroupTopic("g1"))
	g2 := hub.Subscribe(GroupTopic("g2"))
	defer g1.Close()
	defer g2.Close()

	hub.Publish(Event{Type: EventExpenseRecorded, GroupID: "g1"}, GroupTopic("g1"))

	ev := receive(t, g1)
	assert.Equal(t, EventExpenseRecorded, ev.Type)
	assert.Equal(t, "g1", ev.GroupID)
	assertEmpty(t, g2)
}

func TestPublish_NeverBlocksAndCoalesces(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(UserTopic("u1"))
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Publish(Event{Type: EventMemberJoined}, UserTopic("u1"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}

	receive(t, sub)
	assertEmpty(t, sub)
}

func TestPublish_MultipleTopicsDeliverOnce(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(GroupTopic("g1"), UserTopic("u1"))
	defer sub.Close()

	hub.Publish(Event{Type: EventMemberJoined, GroupID: "g1", UserID: "u1"}, GroupTopic("g1"), UserTopic("u1"))

	receive(t, sub)
	assertEmpty(t, sub)
}

func TestClose(t *testing.T) {
	hub := NewHub()
	a := hub.Subscribe(GroupTopic("g1"))
	b := hub.Subscribe(GroupTopic("g1"))
	assert.Equal(t, 2, hub.Subscribers())

	a.Close()
	a.Close()
	assert.Equal(t, 1, hub.Subscribers())

	_, ok := <-a.C()
	assert.False(t, ok, "closed subscription channel should be closed")

	hub.Publish(Event{Type: EventExpenseRecorded}, GroupTopic("g1"))
	receive(t, b)

	b.Close()
	assert.Equal(t, 0, hub.Subscribers())
	assert.Empty(t, hub.topics)
}

func TestConcurrentSubscribePublish(t *testing.T) {
	hub := NewHub()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sub := hub.Subscribe(GroupTopic("g"))
			sub.Close()
		}()
		go func() {
			defer wg.Done()
			hub.Publish(Event{Type: EventExpenseRecorded}, GroupTopic("g"))
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, hub.Subscribers())
}
