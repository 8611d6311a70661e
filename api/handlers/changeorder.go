package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/linesmerrill/change-order-api/api"
	"github.com/linesmerrill/change-order-api/api/approval"
	"github.com/linesmerrill/change-order-api/api/notify"
	"github.com/linesmerrill/change-order-api/databases"
	"github.com/linesmerrill/change-order-api/models"
)

// ChangeOrder exported for testing purposes
type ChangeOrder struct {
	DB        databases.ChangeOrderDatabase
	Fanout    *notify.Fanout
	Processor *approval.Processor
}

// SubmitChangeOrderHandler stores a new Pending order and announces it to every
// connected participant
func (c ChangeOrder) SubmitChangeOrderHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := api.IdentityFromContext(r.Context())
	if !ok {
		writeError("unauthorized", w, models.ErrAuthRejected)
		return
	}

	var req models.SubmitChangeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError("failed to decode request", w, fmt.Errorf("%w: %v", models.ErrMalformedInput, err))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError("invalid change order", w, fmt.Errorf("%w: %v", models.ErrMalformedInput, err))
		return
	}

	now := time.Now().UTC()
	order := models.ChangeOrder{
		Description:   req.Description,
		EstimatedCost: req.EstimatedCost,
		Status:        models.StatusPending,
		ChatLog:       []models.ChatMessage{},
		Subscribers:   []string{},
		CreatedBy:     identity.Username,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	id, err := c.DB.InsertOne(r.Context(), order)
	if err != nil {
		writeError("failed to create change order", w, err)
		return
	}
	order.ID = id

	delivered := c.Fanout.NotifyAll(models.NewChangeOrderEvent(order))
	zap.S().Infow("change order submitted",
		"changeOrderId", id,
		"identity", identity.Username,
		"estimatedCost", order.EstimatedCost,
		"delivered", delivered)

	writeJSON(w, http.StatusCreated, order)
}

// ProcessApprovalsHandler advances every order the caller's role can act on
func (c ChangeOrder) ProcessApprovalsHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := api.IdentityFromContext(r.Context())
	if !ok {
		writeError("unauthorized", w, models.ErrAuthRejected)
		return
	}

	result, err := c.Processor.Process(r.Context(), identity.Role)
	if err != nil {
		writeError("failed to process approvals", w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ChangeOrderByIDHandler returns a change order given a change_order_id
func (c ChangeOrder) ChangeOrderByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["change_order_id"]

	zap.S().Debugf("change_order_id: %v", id)

	order, err := c.DB.FindByID(r.Context(), id)
	if err != nil {
		writeError("failed to get change order by ID", w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// ChangeOrderStatusHandler returns only the approval status of a change order
func (c ChangeOrder) ChangeOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["change_order_id"]

	order, err := c.DB.FindByID(r.Context(), id)
	if err != nil {
		writeError("failed to get change order status", w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.StatusResponse{ChangeOrderID: order.ID, Status: order.Status})
}
