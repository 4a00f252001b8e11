package study

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/risflow/risflow/internal/domain/operator"
	"github.com/risflow/risflow/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	view := api.Group("", operator.RequireCapability(func(c operator.CapabilitySet) bool {
		return c.CanViewWorklist
	}))
	view.GET("/studies", h.ListStudies)
	view.GET("/studies/:id", h.GetStudy)
}

func (h *Handler) ListStudies(c echo.Context) error {
	pg := pagination.FromContext(c)

	filter := ListFilter{
		Status:   c.QueryParam("status"),
		Modality: c.QueryParam("modality"),
	}
	if p := c.QueryParam("priority"); p != "" {
		if !ValidPriority(Priority(p)) {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown priority")
		}
		filter.Priority = Priority(p)
	}
	if a := c.QueryParam("assigned_to"); a != "" {
		aid, err := uuid.Parse(a)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid assigned_to")
		}
		filter.AssignedTo = &aid
	}

	items, total, err := h.svc.Worklist(c.Request().Context(), filter, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetStudy(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	s, err := h.svc.GetStudy(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "study not found")
	}
	return c.JSON(http.StatusOK, s)
}
