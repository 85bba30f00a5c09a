package models

import "time"

// EventKind identifies what happened to a source message.
type EventKind string

const (
	EventMessageNew     EventKind = "message.new"
	EventMessageEdited  EventKind = "message.edited"
	EventMessageDeleted EventKind = "message.deleted"
	EventCardAction     EventKind = "card.action"
)

// MessageEvent is the platform-neutral form of an inbound chat event.
// EventID is the platform's delivery id (dedup key); MessageID is the
// stable identity of the message itself (sync key).
type MessageEvent struct {
	Kind           EventKind
	EventID        string
	EventTimestamp time.Time
	MessageID      string
	ChannelID      string
	Text           string
	AuthorIsSelf   bool
}

// CardActionEvent is a button click on a confirmation card. TriggerID is
// the platform's delivery id for the click, deduplicated in the same
// recency set as message events.
type CardActionEvent struct {
	TriggerID string
	MessageID string
	ChannelID string
	// Value is the opaque payload attached to the clicked button.
	Value string
}
