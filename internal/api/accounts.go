package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starford/tonearm/internal/account"
	"github.com/starford/tonearm/internal/apperr"
)

// AccountHandler serves the login gate.
type AccountHandler struct {
	db *account.DB
}

// NewAccountHandler creates an AccountHandler.
func NewAccountHandler(db *account.DB) *AccountHandler {
	return &AccountHandler{db: db}
}

// Register handles POST /api/register.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !readJSON(w, r, accountBody, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name, email and password are required"))
		return
	}
	user, err := h.db.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, apperr.ErrDuplicateEmail) {
			writeJSON(w, http.StatusConflict, errorBody("email already registered"))
		} else {
			slog.Error("register failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Login handles POST /api/login.
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !readJSON(w, r, accountBody, &req) {
		return
	}
	user, err := h.db.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, errorBody("invalid credentials"))
		} else {
			slog.Error("login failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, user)
}
