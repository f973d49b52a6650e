package story

import "time"

// EventType labels a story lifecycle event on the feed.
type EventType string

const (
	EventGenerationStarted EventType = "generation_started"
	EventSegmentAppended   EventType = "segment_appended"
	EventRolledBack        EventType = "rolled_back"
	EventStoryUpdated      EventType = "story_updated"
)

// Event is pushed to feed subscribers whenever a story mutates.
type Event struct {
	Type      EventType `json:"type"`
	StoryID   string    `json:"storyId"`
	MessageID string    `json:"messageId,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// EventSink receives story events. Publish must not block.
type EventSink interface {
	Publish(Event)
}

type nopSink struct{}

func (nopSink) Publish(Event) {}

func (s *Service) publish(t EventType, storyID, messageID string) {
	s.events.Publish(Event{
		Type:      t,
		StoryID:   storyID,
		MessageID: messageID,
		Timestamp: time.Now().UnixMilli(),
	})
}
