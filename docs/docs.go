// Package docs Change Order API.
//
// Documentation of the Change Order API.
//
//     Schemes: https
//     BasePath: /
//     Version: 1.0.0
//
//     Consumes:
//     - application/json
//
//     Produces:
//     - application/json
//
//     Security:
//     - basic
//     - bearer
//
//    SecurityDefinitions:
//    basic:
//      type: basic
//    bearer:
//      type: apiKey
//      name: Authorization
//      in: header
//
// swagger:meta
package docs

import (
	"github.com/linesmerrill/change-order-api/models"
)

// swagger:route GET /health health healthEndpointID
// Lists the healthchex of the web service api.
// responses:
//   200: healthResponse

// Shows the current health of the api. true means it is alive, false means it is not.
// swagger:response healthResponse
type healthResponseWrapper struct {
	// in:body
	Body models.HealthCheckResponse
}

// swagger:route POST /api/v1/user/create-user user createUser
// Registers a participant with one of the three roles.
// responses:
//   201: userResponse
//   400: errorResponse
//   409: errorResponse

// swagger:parameters createUser
type createUserParamsWrapper struct {
	// in:body
	Body models.CreateUserRequest
}

// The registered user. The password hash is never returned.
// swagger:response userResponse
type userResponseWrapper struct {
	// in:body
	Body models.User
}

// swagger:route POST /api/v1/auth/token auth createToken
// Exchanges basic credentials for a bearer token.
// responses:
//   200: tokenResponse
//   401: errorResponse

// swagger:response tokenResponse
type tokenResponseWrapper struct {
	// in:body
	Body models.TokenResponse
}

// swagger:route POST /api/v1/change-orders changeOrder submitChangeOrder
// Submits a change order in Pending and announces it to every live session. ProjectManager only.
// responses:
//   201: changeOrderResponse
//   400: errorResponse
//   403: errorResponse

// swagger:parameters submitChangeOrder
type submitChangeOrderParamsWrapper struct {
	// in:body
	Body models.SubmitChangeOrderRequest
}

// swagger:route GET /api/v1/change-orders/{change_order_id} changeOrder changeOrderByID
// Gets a single change order by ID.
// responses:
//   200: changeOrderResponse
//   404: errorResponse

// swagger:response changeOrderResponse
type changeOrderResponseWrapper struct {
	// in:body
	Body models.ChangeOrder
}

// swagger:route GET /api/v1/change-orders/{change_order_id}/status changeOrder changeOrderStatus
// Gets the approval status of a change order.
// responses:
//   200: statusResponse
//   404: errorResponse

// swagger:parameters changeOrderByID changeOrderStatus
type changeOrderIDParamWrapper struct {
	// in:path
	// required: true
	ChangeOrderID string `json:"change_order_id"`
}

// swagger:response statusResponse
type statusResponseWrapper struct {
	// in:body
	Body models.StatusResponse
}

// swagger:route POST /api/v1/change-orders/approvals changeOrder processApprovals
// Advances every change order the caller's role can act on.
// responses:
//   200: approvalResponse
//   503: errorResponse

// swagger:response approvalResponse
type approvalResponseWrapper struct {
	// in:body
	Body models.ApprovalResult
}

// swagger:response errorResponse
type errorResponseWrapper struct {
	// in:body
	Body models.ErrorMessageResponse
}
