package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/linesmerrill/change-order-api/api"
	"github.com/linesmerrill/change-order-api/api/approval"
	"github.com/linesmerrill/change-order-api/api/notify"
	"github.com/linesmerrill/change-order-api/api/registry"
	"github.com/linesmerrill/change-order-api/api/scheduler"
	"github.com/linesmerrill/change-order-api/api/session"
	"github.com/linesmerrill/change-order-api/config"
	"github.com/linesmerrill/change-order-api/databases"
	"github.com/linesmerrill/change-order-api/databases/memorydb"
	"github.com/linesmerrill/change-order-api/models"
)

// Store drivers accepted in STORE_DRIVER
const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

var validate = validator.New()

// App stores the router and the shared services, so they can be reused
type App struct {
	Router *mux.Router
	Config config.Config

	UserDB    databases.UserDatabase
	OrderDB   databases.ChangeOrderDatabase
	Registry  *registry.Registry
	Fanout    *notify.Fanout
	Processor *approval.Processor
	Hub       *session.Hub
	Tokens    *api.TokenService
	Scheduler *scheduler.Scheduler

	client databases.ClientHelper
}

// New creates a new mux router and all the routes. Services that were not set
// beforehand are built from Config, falling back to an in-memory store.
func (a *App) New() *mux.Router {
	a.wire()

	// setup go-guardian for middleware
	m := api.MiddlewareDB{DB: a.UserDB, Tokens: a.Tokens}
	m.SetupGoGuardian()

	u := User{DB: a.UserDB}
	co := ChangeOrder{DB: a.OrderDB, Fanout: a.Fanout, Processor: a.Processor}
	ws := WebSocket{Hub: a.Hub}

	r := mux.NewRouter()
	r.Use(api.MetricsMiddleware)

	// healthchex
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// the session outlives any request timeout
	r.HandleFunc("/ws", ws.ServeWebSocketHandler).Methods("GET")

	apiCreate := r.PathPrefix("/api/v1").Subrouter()
	apiCreate.Use(api.TimeoutMiddleware(a.Config.RequestTimeout))

	apiCreate.Handle("/user/create-user", http.HandlerFunc(u.UserCreateHandler)).Methods("POST")
	apiCreate.Handle("/auth/token", http.HandlerFunc(m.CreateToken)).Methods("POST")

	anyRole := api.RequireRole(models.Roles...)
	projectManager := api.RequireRole(models.RoleProjectManager)

	apiCreate.Handle("/change-orders", m.Middleware(projectManager(http.HandlerFunc(co.SubmitChangeOrderHandler)))).Methods("POST")
	apiCreate.Handle("/change-orders/approvals", m.Middleware(anyRole(http.HandlerFunc(co.ProcessApprovalsHandler)))).Methods("POST")
	apiCreate.Handle("/change-orders/{change_order_id}", m.Middleware(http.HandlerFunc(co.ChangeOrderByIDHandler))).Methods("GET")
	apiCreate.Handle("/change-orders/{change_order_id}/status", m.Middleware(http.HandlerFunc(co.ChangeOrderStatusHandler))).Methods("GET")

	return r
}

// wire builds every service not already set
func (a *App) wire() {
	if a.UserDB == nil || a.OrderDB == nil {
		store := memorydb.New()
		if a.UserDB == nil {
			a.UserDB = store.Users()
		}
		if a.OrderDB == nil {
			a.OrderDB = store.ChangeOrders()
		}
	}
	if a.Registry == nil {
		a.Registry = registry.New()
	}
	if a.Fanout == nil {
		a.Fanout = notify.New(a.OrderDB, a.Registry)
	}
	if a.Tokens == nil {
		a.Tokens = api.NewTokenService(a.Config.JWTSecret, a.Config.TokenTTL)
	}
	if a.Processor == nil {
		policy := approval.DefaultPolicy()
		if a.Config.CostThreshold > 0 {
			policy.CostThreshold = a.Config.CostThreshold
		}
		a.Processor = &approval.Processor{DB: a.OrderDB, Notifier: a.Fanout, Policy: policy}
	}
	if a.Hub == nil {
		a.Hub = &session.Hub{
			Verifier: a.Tokens,
			Registry: a.Registry,
			DB:       a.OrderDB,
			Notifier: a.Fanout,
			Settings: session.Settings{
				HeartbeatInterval: a.Config.HeartbeatInterval,
				WriteTimeout:      a.Config.WriteTimeout,
				SendBuffer:        a.Config.SendBuffer,
			},
		}
	}
	if a.Scheduler == nil {
		a.Scheduler = scheduler.NewScheduler(a.Registry, a.OrderDB)
	}
}

// Initialize connects the record store selected by STORE_DRIVER, ensures its
// indexes and builds the router
func (a *App) Initialize(ctx context.Context) error {
	switch a.Config.StoreDriver {
	case DriverMemory:
		store := memorydb.New()
		a.UserDB = store.Users()
		a.OrderDB = store.ChangeOrders()
		zap.S().Info("change-order-api is using the in-memory store")
	case DriverMongo, "":
		client, err := databases.NewClient(&a.Config)
		if err != nil {
			// if we fail to create a new database client, then kill the pod
			zap.S().With(err).Error("failed to create new client")
			return err
		}
		if err := client.Connect(ctx); err != nil {
			// if we fail to connect to the database, then kill the pod
			zap.S().With(err).Error("failed to connect to database")
			return err
		}
		a.client = client
		dbHelper := databases.NewDatabase(&a.Config, client)
		a.UserDB = databases.NewUserDatabase(dbHelper)
		a.OrderDB = databases.NewChangeOrderDatabase(dbHelper)
		zap.S().Info("change-order-api has connected to the database")
	default:
		return fmt.Errorf("unknown store driver %q", a.Config.StoreDriver)
	}

	if err := a.UserDB.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to ensure user indexes: %w", err)
	}
	if err := a.OrderDB.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to ensure change order indexes: %w", err)
	}

	// initialize api router
	a.initializeRoutes()
	return nil
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

// Close stops background jobs and disconnects the record store
func (a *App) Close(ctx context.Context) error {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.client != nil {
		return a.client.Disconnect(ctx)
	}
	return nil
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}

// writeError maps the error taxonomy onto an HTTP status
func writeError(message string, w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrMalformedInput):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrAuthRejected):
		status = http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrDuplicate), errors.Is(err, models.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, models.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	}
	config.ErrorStatus(message, status, w, err)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
