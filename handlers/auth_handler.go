package handlers

import (
	"net/http"
	"strings"

	"github.com/reactiverates/users/middleware"
	"github.com/reactiverates/users/security"
	"github.com/reactiverates/users/utils"
	"go.uber.org/zap"
)

// TokenIntrospector validates a token and describes its claims
type TokenIntrospector interface {
	Introspect(token string) (*security.TokenInfo, error)
}

// ValidateTokenRequest is the body of POST /api/auth/validate
type ValidateTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// ValidateTokenResponse describes a valid token
type ValidateTokenResponse struct {
	Valid bool `json:"valid"`
	*security.TokenInfo
	Message string `json:"message"`
}

// CurrentUserResponse describes the request's authentication
type CurrentUserResponse struct {
	Username      string   `json:"username"`
	Principal     string   `json:"principal"`
	Authenticated bool     `json:"authenticated"`
	Authorities   []string `json:"authorities"`
}

// DebugUserResponse extends CurrentUserResponse with role checks
type DebugUserResponse struct {
	CurrentUserResponse
	Roles            []string `json:"roles"`
	AuthoritiesCount int      `json:"authoritiesCount"`
	HasRoleUser      bool     `json:"hasRoleUser"`
	HasRoleModerator bool     `json:"hasRoleModerator"`
	HasRoleAdmin     bool     `json:"hasRoleAdmin"`
}

// AuthHandler serves token introspection and identity endpoints
type AuthHandler struct {
	introspector TokenIntrospector
	logger       *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(introspector TokenIntrospector, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		introspector: introspector,
		logger:       logger,
	}
}

// HandleValidate handles POST /api/auth/validate. It reports on the token in
// the body, independent of the caller's own authentication.
func (h *AuthHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	var req ValidateTokenRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	req.Token = strings.TrimSpace(req.Token)
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	info, err := h.introspector.Introspect(req.Token)
	if err != nil {
		outcome := security.OutcomeOf(err)
		h.logger.Info("token validation failed",
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
			zap.String("reason", string(outcome)))
		_ = utils.WriteBadRequest(w, "Invalid token", map[string]interface{}{
			"valid":  false,
			"reason": string(outcome),
		})
		return
	}

	h.logger.Info("token validated",
		zap.String("username", info.Username),
		zap.Strings("roles", info.Roles),
		zap.Strings("authorities", info.Authorities))

	_ = utils.WriteOK(w, ValidateTokenResponse{
		Valid:     true,
		TokenInfo: info,
		Message:   "Token is valid",
	})
}

// HandleMe handles GET /api/auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	auth := middleware.GetAuthenticationFromContext(r.Context())
	if !auth.IsAuthenticated() {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	_ = utils.WriteOK(w, currentUser(auth))
}

// HandleDebug handles GET /api/auth/debug
func (h *AuthHandler) HandleDebug(w http.ResponseWriter, r *http.Request) {
	auth := middleware.GetAuthenticationFromContext(r.Context())
	if !auth.IsAuthenticated() {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	h.logger.Debug("auth debug requested",
		zap.String("username", auth.Username()),
		zap.Strings("authorities", auth.Authorities()))

	_ = utils.WriteOK(w, DebugUserResponse{
		CurrentUserResponse: currentUser(auth),
		Roles:               auth.Roles(),
		AuthoritiesCount:    len(auth.Authorities()),
		HasRoleUser:         auth.HasRole("USER"),
		HasRoleModerator:    auth.HasRole("MODERATOR"),
		HasRoleAdmin:        auth.HasRole("ADMIN"),
	})
}

func currentUser(auth *security.Authentication) CurrentUserResponse {
	return CurrentUserResponse{
		Username:      auth.Username(),
		Principal:     auth.Principal(),
		Authenticated: auth.IsAuthenticated(),
		Authorities:   auth.Authorities(),
	}
}
