package handlers

import (
	"net/http"

	"github.com/reactiverates/users/middleware"
	"github.com/reactiverates/users/utils"
	"go.uber.org/zap"
)

// AccessResponse echoes who reached a role-gated probe endpoint
type AccessResponse struct {
	Message       string   `json:"message"`
	User          string   `json:"user"`
	Authenticated bool     `json:"authenticated"`
	Authorities   []string `json:"authorities"`
}

// AccessHandler serves endpoints that let clients check their role gates.
// Authorization happens in the router; these handlers only describe the caller.
type AccessHandler struct {
	logger *zap.Logger
}

// NewAccessHandler creates a new AccessHandler
func NewAccessHandler(logger *zap.Logger) *AccessHandler {
	return &AccessHandler{logger: logger}
}

// HandleRole returns a handler confirming access for role
func (h *AccessHandler) HandleRole(role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.respond(w, r, "Access granted for role "+role)
	}
}

// HandleInfo handles GET /api/test/info
func (h *AccessHandler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "Authentication info")
}

func (h *AccessHandler) respond(w http.ResponseWriter, r *http.Request, message string) {
	auth := middleware.GetAuthenticationFromContext(r.Context())
	h.logger.Info("access probe",
		zap.String("path", r.URL.Path),
		zap.String("username", auth.Username()),
		zap.Strings("authorities", auth.Authorities()))

	_ = utils.WriteOK(w, AccessResponse{
		Message:       message,
		User:          auth.Username(),
		Authenticated: auth.IsAuthenticated(),
		Authorities:   auth.Authorities(),
	})
}
