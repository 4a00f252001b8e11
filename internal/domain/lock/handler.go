package lock

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/risflow/risflow/internal/domain/operator"
	"github.com/risflow/risflow/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/studies/:id/lock", h.GetLock)
	api.POST("/studies/:id/lock", h.Acquire)
	api.DELETE("/studies/:id/lock", h.Release)

	toggle := api.Group("", operator.RequireCapability(func(c operator.CapabilitySet) bool {
		return c.CanToggleLock
	}))
	toggle.POST("/studies/:id/lock/toggle", h.Toggle)
}

// actorFromContext builds the lock Actor from the authenticated request.
func actorFromContext(c echo.Context) (Actor, error) {
	ctx := c.Request().Context()
	oid, err := uuid.Parse(auth.OperatorIDFromContext(ctx))
	if err != nil {
		return Actor{}, err
	}
	caps := operator.CapabilitiesFromContext(c)
	return Actor{
		ID:          oid,
		Name:        auth.OperatorNameFromContext(ctx),
		CanReport:   caps.CanReportStudies,
		CanVerify:   caps.CanVerifyReports,
		CanToggle:   caps.CanToggleLock,
		CanOverride: caps.CanOverrideLock,
	}, nil
}

func (h *Handler) GetLock(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	state, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "study not found")
	}
	return c.JSON(http.StatusOK, state)
}

func (h *Handler) Acquire(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	actor, err := actorFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid operator identity")
	}

	state, bypassed, err := h.svc.Acquire(c.Request().Context(), id, actor)
	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			return c.JSON(http.StatusLocked, map[string]interface{}{
				"error":          "study is locked",
				"locked_by":      conflict.HeldBy,
				"locked_by_name": conflict.HeldByName,
			})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"lock":     state,
		"bypassed": bypassed,
	})
}

func (h *Handler) Release(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	actor, err := actorFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid operator identity")
	}

	if err := h.svc.Release(c.Request().Context(), id, actor); err != nil {
		if errors.Is(err, ErrNotLockHolder) {
			return echo.NewHTTPError(http.StatusConflict, "not lock holder")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusOK)
}

type toggleRequest struct {
	DesiredLocked bool `json:"desired_locked"`
}

func (h *Handler) Toggle(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	actor, err := actorFromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid operator identity")
	}

	var req toggleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	state, err := h.svc.Toggle(c.Request().Context(), id, actor, req.DesiredLocked)
	if err != nil {
		if errors.Is(err, ErrNotLockHolder) {
			return echo.NewHTTPError(http.StatusForbidden, "not authorized")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, state)
}
