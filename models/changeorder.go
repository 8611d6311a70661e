package models

import "time"

// Status is the approval state of a change order
type Status string

// Approval states. FullyApproved is terminal.
const (
	StatusPending                  Status = "Pending"
	StatusApprovedByProjectManager Status = "ApprovedByProjectManager"
	StatusApprovedByRemodelManager Status = "ApprovedByRemodelManager"
	StatusFullyApproved            Status = "FullyApproved"
)

// ChangeOrder holds the structure for the changeorders collection in mongo
type ChangeOrder struct {
	ID            string        `json:"_id" bson:"_id,omitempty"`
	Description   string        `json:"description" bson:"description"`
	EstimatedCost float64       `json:"estimatedCost" bson:"estimatedCost"`
	Status        Status        `json:"status" bson:"status"`
	ChatLog       []ChatMessage `json:"chatLog" bson:"chatLog"`
	Subscribers   []string      `json:"subscribers" bson:"subscribers"`
	CreatedBy     string        `json:"createdBy" bson:"createdBy"`
	CreatedAt     time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt" bson:"updatedAt"`
}

// HasSubscriber reports whether username is in the order's subscriber set
func (c ChangeOrder) HasSubscriber(username string) bool {
	for _, s := range c.Subscribers {
		if s == username {
			return true
		}
	}
	return false
}

// ChatMessage is one entry of a change order's chat log
type ChatMessage struct {
	Author    string    `json:"author" bson:"author"`
	Text      string    `json:"text" bson:"text"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// SubmitChangeOrderRequest is the payload of the submit-change-order action
type SubmitChangeOrderRequest struct {
	Description   string  `json:"description" validate:"required,max=4096"`
	EstimatedCost float64 `json:"estimatedCost" validate:"gte=0"`
}

// StatusResponse is returned by the read-status action
type StatusResponse struct {
	ChangeOrderID string `json:"changeOrderId"`
	Status        Status `json:"status"`
}

// Transition records one status change made by approval processing
type Transition struct {
	ChangeOrderID string `json:"changeOrderId"`
	From          Status `json:"from"`
	To            Status `json:"to"`
}

// ApprovalResult summarizes one approval processing run
type ApprovalResult struct {
	Role         Role         `json:"role"`
	Transitioned []Transition `json:"transitioned"`
	Conflicts    int          `json:"conflicts"`
	Deferred     int          `json:"deferred"`
}
