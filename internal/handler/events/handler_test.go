package events

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	storyservice "github.com/coauthor/backend/internal/service/story"
)

func TestHubFanoutIsScopedToStory(t *testing.T) {
	hub := NewHub()

	chA, cancelA := hub.subscribe("story-a")
	defer cancelA()
	chB, cancelB := hub.subscribe("story-b")
	defer cancelB()

	hub.Publish(storyservice.Event{Type: storyservice.EventStoryUpdated, StoryID: "story-a"})

	select {
	case ev := <-chA:
		if ev.StoryID != "story-a" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	default:
		t.Fatal("subscriber of story-a received nothing")
	}

	select {
	case ev := <-chB:
		t.Fatalf("subscriber of story-b received foreign event: %+v", ev)
	default:
	}
}

func TestHubPublishNeverBlocks(t *testing.T) {
	hub := NewHub()

	_, cancel := hub.subscribe("story-a")
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer*2; i++ {
			hub.Publish(storyservice.Event{Type: storyservice.EventStoryUpdated, StoryID: "story-a"})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
}

func TestCancelRemovesSubscriber(t *testing.T) {
	hub := NewHub()

	_, cancel := hub.subscribe("story-a")
	cancel()

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	if len(hub.subs) != 0 {
		t.Fatalf("expected empty hub, got %d story keys", len(hub.subs))
	}
}

func TestWebsocketFeedDeliversEvents(t *testing.T) {
	hub := NewHub()
	r := chi.NewRouter()
	NewHandler(hub).RegisterRoutes(r)

	srv := httptest.NewServer(r)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/stories/story-a"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// The handler registers its subscription after the upgrade completes, so
	// wait for it before publishing.
	deadline := time.Now().Add(2 * time.Second)
	for {
		hub.mu.RLock()
		n := len(hub.subs["story-a"])
		hub.mu.RUnlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("subscription never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Publish(storyservice.Event{
		Type:      storyservice.EventSegmentAppended,
		StoryID:   "story-a",
		MessageID: "msg-1",
		Timestamp: time.Now().UnixMilli(),
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var envelope struct {
		Type    string             `json:"type"`
		StoryID string             `json:"storyId"`
		Data    storyservice.Event `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Type != string(storyservice.EventSegmentAppended) {
		t.Fatalf("unexpected type %q", envelope.Type)
	}
	if envelope.Data.MessageID != "msg-1" {
		t.Fatalf("unexpected payload: %+v", envelope.Data)
	}
}
