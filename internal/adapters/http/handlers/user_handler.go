package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/amida-tech/amida-auth-microservice/config"
	mw "github.com/amida-tech/amida-auth-microservice/internal/adapters/http/middleware"
	"github.com/amida-tech/amida-auth-microservice/internal/domain"
	"github.com/amida-tech/amida-auth-microservice/internal/usecase"
	"github.com/amida-tech/amida-auth-microservice/pkg/httpx"
	pkglog "github.com/amida-tech/amida-auth-microservice/pkg/log"
)

type UserHandler struct {
	cfg     *config.Config
	logger  pkglog.Logger
	service usecase.UserService
}

func NewUserHandler(cfg *config.Config, logger pkglog.Logger, service usecase.UserService) *UserHandler {
	return &UserHandler{cfg: cfg, logger: logger, service: service}
}

type createUserRequest struct {
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Scopes   []string `json:"scopes"`
}

type updateUserRequest struct {
	Email string `json:"email"`
}

type updateScopesRequest struct {
	Scopes []string `json:"scopes"`
}

// userListEntry is the trimmed projection returned by List.
type userListEntry struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Create registers a new account. When creation is restricted, the caller
// must hold the admin scope or one of the configured registrar scopes.
func (h *UserHandler) Create(c echo.Context) error {
	req := new(createUserRequest)
	if err := c.Bind(req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if req.Username == "" {
		return badRequest(c, "username is required")
	}
	if !validEmail(req.Email) {
		return badRequest(c, "a valid email is required")
	}
	if !validPassword(req.Password) {
		return badRequest(c, "password must be between 8 and 64 characters")
	}
	if hasDuplicates(req.Scopes) {
		return writeError(c, h.logger, usecase.ErrInvalidScopes)
	}
	if h.cfg.OnlyAdminCanCreateUsers {
		caller := mw.CurrentUser(c)
		sets := [][]string{{domain.ScopeAdmin}}
		for _, scope := range h.cfg.RegistrarScopes {
			sets = append(sets, []string{scope})
		}
		if caller == nil || !caller.HasAnyScope(sets...) {
			return writeError(c, h.logger, usecase.ErrForbidden)
		}
	}
	user, err := h.service.Create(c.Request().Context(), req.Username, req.Email, req.Password, req.Scopes)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return httpx.JSON(c, http.StatusOK, user.BasicInfo())
}

// Get returns a user's basic info; restricted to the user themself or an
// admin.
func (h *UserHandler) Get(c echo.Context) error {
	id, err := parseUserID(c)
	if err != nil {
		return badRequest(c, "invalid user id")
	}
	user, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	caller := mw.CurrentUser(c)
	if caller.Username != user.Username && !caller.IsAdmin() {
		return writeError(c, h.logger, usecase.ErrForbidden)
	}
	return httpx.JSON(c, http.StatusOK, user.BasicInfo())
}

func (h *UserHandler) List(c echo.Context) error {
	users, err := h.service.List(c.Request().Context())
	if err != nil {
		return writeError(c, h.logger, err)
	}
	entries := make([]userListEntry, 0, len(users))
	for _, u := range users {
		entries = append(entries, userListEntry{ID: u.ID, Username: u.Username, Email: u.Email})
	}
	return httpx.JSON(c, http.StatusOK, entries)
}

func (h *UserHandler) Update(c echo.Context) error {
	id, err := parseUserID(c)
	if err != nil {
		return badRequest(c, "invalid user id")
	}
	req := new(updateUserRequest)
	if err := c.Bind(req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if !validEmail(req.Email) {
		return badRequest(c, "a valid email is required")
	}
	caller := mw.CurrentUser(c)
	target, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	if caller.Username != target.Username && !caller.IsAdmin() {
		return writeError(c, h.logger, usecase.ErrForbidden)
	}
	user, err := h.service.UpdateEmail(c.Request().Context(), id, req.Email)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return httpx.JSON(c, http.StatusOK, user.BasicInfo())
}

// UpdateScopes overwrites a user's scope list; admin only, duplicates
// rejected.
func (h *UserHandler) UpdateScopes(c echo.Context) error {
	id, err := parseUserID(c)
	if err != nil {
		return badRequest(c, "invalid user id")
	}
	req := new(updateScopesRequest)
	if err := c.Bind(req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if req.Scopes == nil || hasDuplicates(req.Scopes) {
		return writeError(c, h.logger, usecase.ErrInvalidScopes)
	}
	user, err := h.service.UpdateScopes(c.Request().Context(), id, req.Scopes)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return httpx.JSON(c, http.StatusOK, user.BasicInfo())
}

func (h *UserHandler) Delete(c echo.Context) error {
	id, err := parseUserID(c)
	if err != nil {
		return badRequest(c, "invalid user id")
	}
	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *UserHandler) Me(c echo.Context) error {
	return httpx.JSON(c, http.StatusOK, mw.CurrentUser(c).BasicInfo())
}

func parseUserID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	return uint(id), err
}

func hasDuplicates(scopes []string) bool {
	seen := make(map[string]bool, len(scopes))
	for _, s := range scopes {
		if seen[s] {
			return true
		}
		seen[s] = true
	}
	return false
}
