package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler serves the token endpoints.
type Handler struct {
	issuer *Issuer
	store  UserStore
}

func NewHandler(issuer *Issuer, store UserStore) *Handler {
	return &Handler{issuer: issuer, store: store}
}

// RegisterRoutes mounts the auth endpoints on the given group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/token", h.Token)
	g.POST("/token/refresh", h.Refresh)
}

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Token exchanges username/password for an access/refresh pair.
func (h *Handler) Token(c echo.Context) error {
	var req tokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}

	user, err := h.store.GetByUsername(c.Request().Context(), req.Username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "authentication failed")
	}
	if !CheckPassword(user.PasswordHash, req.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	pair, err := h.issuer.IssuePair(user.ID.String(), user.Username, user.Roles)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "token issuance failed")
	}
	return c.JSON(http.StatusOK, pair)
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// Refresh exchanges a valid refresh token for a new pair. Roles are reloaded
// from the store so revoked accounts stop refreshing.
func (h *Handler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Refresh == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "refresh token is required")
	}

	claims, err := h.issuer.ValidateRefresh(req.Refresh)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid refresh token")
	}

	user, err := h.store.GetByUsername(c.Request().Context(), claims.Username)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid refresh token")
	}

	pair, err := h.issuer.IssuePair(user.ID.String(), user.Username, user.Roles)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "token issuance failed")
	}
	return c.JSON(http.StatusOK, pair)
}
