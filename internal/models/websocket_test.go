package models

import (
	"encoding/json"
	"testing"
	"time"
)

func newTestClient() *Client {
	return &Client{Send: make(chan []byte, 8)}
}

func recvEvent(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case data := <-c.Send:
		var e Event
		if err := json.Unmarshal(data, &e); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		return e
	case <-time.After(time.Second):
		t.Fatal("expected an event, got none")
		return Event{}
	}
}

func expectNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data, ok := <-c.Send:
		if ok {
			t.Fatalf("expected no event, got %s", data)
		}
	default:
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never met")
}

func TestPublishReachesOnlySubscribers(t *testing.T) {
	hub := NewHub()
	subscribed := newTestClient()
	other := newTestClient()

	hub.Join(subscribed, UserChannel(42))
	hub.Join(other, UserChannel(99))

	hub.Publish(UserChannel(42), Event{Event: EventNotificationUpdate})

	e := recvEvent(t, subscribed)
	if e.Event != EventNotificationUpdate {
		t.Fatalf("unexpected event name: %s", e.Event)
	}
	expectNoEvent(t, other)
}

func TestLeaveStopsDelivery(t *testing.T) {
	hub := NewHub()
	client := newTestClient()

	hub.Join(client, ConversationChannel(7))
	hub.Leave(client, ConversationChannel(7))

	hub.Publish(ConversationChannel(7), Event{Event: EventReceiveMessage})
	expectNoEvent(t, client)

	if n := hub.Subscribers(ConversationChannel(7)); n != 0 {
		t.Fatalf("expected empty channel, have %d subscribers", n)
	}
}

func TestUnregisterRemovesFromAllChannels(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := newTestClient()
	hub.Register <- client
	waitFor(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return hub.Clients[client]
	})

	hub.Join(client, UserChannel(42))
	hub.Join(client, ConversationChannel(7))

	hub.Unregister <- client
	waitFor(t, func() bool { return hub.Subscribers(UserChannel(42)) == 0 })

	// A disconnected connection receives nothing, even when its old channel
	// is published to again.
	hub.Publish(UserChannel(42), Event{Event: EventNotificationUpdate})
	hub.Publish(ConversationChannel(7), Event{Event: EventReceiveMessage})

	if _, ok := <-client.Send; ok {
		t.Fatal("expected send channel to be closed with no pending events")
	}
	if hub.IsUserConnected(42) {
		t.Fatal("expected user 42 to be disconnected")
	}
}

func TestAdminImplicitlyJoinsBroadcastChannel(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	admin := newTestClient()
	admin.IsAdmin = true
	regular := newTestClient()

	hub.Register <- admin
	hub.Register <- regular
	waitFor(t, func() bool { return hub.Subscribers(AdminChannel) == 1 })

	hub.PublishToAdmins(Event{Event: EventAdminAnalyticsUpdated, Payload: AnalyticsSnapshot{UserCount: 3, TaskCount: 5}})

	e := recvEvent(t, admin)
	if e.Event != EventAdminAnalyticsUpdated {
		t.Fatalf("unexpected event name: %s", e.Event)
	}
	expectNoEvent(t, regular)
}

func TestSlowConsumerDoesNotBlockPublish(t *testing.T) {
	hub := NewHub()
	slow := &Client{Send: make(chan []byte)} // no buffer, nobody reading
	hub.Join(slow, UserChannel(1))

	done := make(chan struct{})
	go func() {
		hub.Publish(UserChannel(1), Event{Event: EventRequestsUpdate})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow consumer")
	}
}

func TestChannelNames(t *testing.T) {
	if got := UserChannel(42); got != "user:42" {
		t.Fatalf("unexpected user channel: %s", got)
	}
	if got := ConversationChannel(7); got != "conversation:7" {
		t.Fatalf("unexpected conversation channel: %s", got)
	}
}
