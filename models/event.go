package models

import "time"

// ActionKind is the kind of an inbound connection action
type ActionKind string

// Inbound action kinds
const (
	ActionSubscribe   ActionKind = "subscribe"
	ActionUnsubscribe ActionKind = "unsubscribe"
	ActionChat        ActionKind = "chat"
)

// Action is one inbound message from a live connection
type Action struct {
	Action        ActionKind `json:"action" validate:"required,oneof=subscribe unsubscribe chat"`
	ChangeOrderID string     `json:"changeOrderId" validate:"required,max=64"`
	Message       string     `json:"message,omitempty" validate:"required_if=Action chat,max=4096"`
}

// EventType tags an outbound event
type EventType string

// Outbound event types
const (
	EventChat           EventType = "chat"
	EventStatusChange   EventType = "status_change"
	EventNewChangeOrder EventType = "new_change_order"
)

// Event is pushed to live connections. Fields beyond Type and ChangeOrderID
// are populated according to Type.
type Event struct {
	Type          EventType `json:"type"`
	ChangeOrderID string    `json:"changeOrderId"`

	// chat
	Author    string     `json:"author,omitempty"`
	Message   string     `json:"message,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`

	// status_change
	PreviousStatus Status `json:"previousStatus,omitempty"`
	Status         Status `json:"status,omitempty"`

	// new_change_order
	Description   string   `json:"description,omitempty"`
	EstimatedCost *float64 `json:"estimatedCost,omitempty"`
	CreatedBy     string   `json:"createdBy,omitempty"`
}

// NewChatEvent builds the event fanned out after a chat append
func NewChatEvent(changeOrderID string, msg ChatMessage) Event {
	ts := msg.Timestamp
	return Event{
		Type:          EventChat,
		ChangeOrderID: changeOrderID,
		Author:        msg.Author,
		Message:       msg.Text,
		Timestamp:     &ts,
	}
}

// NewStatusChangeEvent builds the event fanned out after an approval transition
func NewStatusChangeEvent(changeOrderID string, from, to Status) Event {
	return Event{
		Type:           EventStatusChange,
		ChangeOrderID:  changeOrderID,
		PreviousStatus: from,
		Status:         to,
	}
}

// NewChangeOrderEvent builds the global broadcast for a freshly submitted order
func NewChangeOrderEvent(order ChangeOrder) Event {
	cost := order.EstimatedCost
	return Event{
		Type:          EventNewChangeOrder,
		ChangeOrderID: order.ID,
		Status:        order.Status,
		Description:   order.Description,
		EstimatedCost: &cost,
		CreatedBy:     order.CreatedBy,
	}
}
