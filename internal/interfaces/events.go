package interfaces

import "context"

// EventType identifies a pub/sub topic.
type EventType string

const (
	EventJobStarted   EventType = "job.started"
	EventJobProgress  EventType = "job.progress"
	EventJobFinished  EventType = "job.finished"
	EventDocumentNew  EventType = "document.new"
	EventEmbedStarted EventType = "embed.started"
	EventEmbedDone    EventType = "embed.done"
)

// Event is one published notification.
type Event struct {
	Type    EventType
	Payload map[string]interface{}
}

// EventHandler consumes published events.
type EventHandler func(ctx context.Context, event Event)

// EventService is the in-process pub/sub bus.
type EventService interface {
	Subscribe(eventType EventType, handler EventHandler)
	Publish(ctx context.Context, event Event)
	PublishSync(ctx context.Context, event Event)
}
