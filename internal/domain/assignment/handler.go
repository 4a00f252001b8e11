package assignment

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/risflow/risflow/internal/domain/operator"
	"github.com/risflow/risflow/internal/platform/auth"
	"github.com/risflow/risflow/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	assign := api.Group("", operator.RequireCapability(func(c operator.CapabilitySet) bool {
		return c.CanAssignStudies
	}))
	assign.POST("/studies/:id/assignment", h.Reconcile)

	view := api.Group("", operator.RequireCapability(func(c operator.CapabilitySet) bool {
		return c.CanViewWorklist
	}))
	view.GET("/studies/:id/assignments", h.ListHistory)
	view.GET("/studies/:id/assignment", h.GetCurrent)
}

type reconcileRequest struct {
	AssignedToIDs []string `json:"assigned_to_ids"`
	Role          string   `json:"role"`
	Priority      string   `json:"priority,omitempty"`
	Notes         string   `json:"notes,omitempty"`
}

func (h *Handler) Reconcile(c echo.Context) error {
	studyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	actor, err := uuid.Parse(auth.OperatorIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid operator identity")
	}

	var req reconcileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Role == "" {
		req.Role = RoleRadiologist
	}

	desired := make([]uuid.UUID, 0, len(req.AssignedToIDs))
	for _, raw := range req.AssignedToIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid assignee id")
		}
		desired = append(desired, id)
	}

	result, err := h.svc.Reconcile(c.Request().Context(), studyID, desired, req.Role, req.Priority, req.Notes, actor)
	if err != nil {
		if errors.Is(err, ErrInvalidRole) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) GetCurrent(c echo.Context) error {
	studyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	current, err := h.svc.CurrentAssignees(c.Request().Context(), studyID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	ids := make([]uuid.UUID, 0, len(current))
	for id := range current {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"study_id":  studyID,
		"assignees": ids,
	})
}

func (h *Handler) ListHistory(c echo.Context) error {
	studyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.History(c.Request().Context(), studyID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
