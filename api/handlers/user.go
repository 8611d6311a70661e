package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/linesmerrill/change-order-api/databases"
	"github.com/linesmerrill/change-order-api/models"
)

// User exported for testing purposes
type User struct {
	DB databases.UserDatabase
}

// UserCreateHandler registers a participant with a role
func (u User) UserCreateHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError("failed to decode request", w, fmt.Errorf("%w: %v", models.ErrMalformedInput, err))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError("invalid user", w, fmt.Errorf("%w: %v", models.ErrMalformedInput, err))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError("failed to hash password", w, err)
		return
	}

	details := models.UserDetails{
		Username:  req.Username,
		Password:  string(hash),
		Role:      req.Role,
		CreatedAt: time.Now().UTC(),
	}
	id, err := u.DB.InsertOne(r.Context(), details)
	if err != nil {
		writeError("failed to create user", w, err)
		return
	}

	zap.S().Infow("user created", "identity", req.Username, "role", req.Role)
	writeJSON(w, http.StatusCreated, models.User{ID: id, Details: details})
}
