package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sethvargo/go-envconfig"
	"go.uber.org/zap"

	"github.com/linesmerrill/change-order-api/models"
)

// Config holds the project config values
type Config struct {
	URL          string `env:"DB_URI, default=mongodb://127.0.0.1:27017"`
	DatabaseName string `env:"DB_NAME, default=change-orders"`
	StoreDriver  string `env:"STORE_DRIVER, default=mongo"`
	BaseURL      string `env:"BASE_URL"`
	Port         string `env:"PORT, default=8080"`
	Environment  string `env:"ENVIRONMENT, default=production"`

	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=24h"`

	// CostThreshold is the highest estimated cost a RemodelManager may fully approve alone
	CostThreshold float64 `env:"APPROVAL_COST_THRESHOLD, default=14000"`

	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL, default=30s"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT, default=10s"`
	SendBuffer        int           `env:"SEND_BUFFER, default=32"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT, default=15s"`

	SessionStatsSchedule string `env:"SESSION_STATS_SCHEDULE, default=@every 1m"`
}

// New sets up all config related services
func New() (*Config, error) {
	var conf Config
	if err := envconfig.Process(context.Background(), &conf); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	//setup zap logger and replace default logger
	logger, err := setLogger(conf.Environment)
	if err != nil {
		return nil, err
	}
	_ = zap.ReplaceGlobals(logger)

	return &conf, nil
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	errText := ""
	if err != nil {
		errText = err.Error()
	}
	zap.S().Errorw(message, "status", httpStatusCode, "error", errText)

	b, _ := json.Marshal(models.ErrorMessageResponse{
		Response: models.MessageError{Message: message, Error: errText},
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	_, _ = w.Write(b)
}
