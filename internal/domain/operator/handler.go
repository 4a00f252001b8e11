package operator

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

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
	view := api.Group("", RequireCapability(func(c CapabilitySet) bool { return c.CanViewWorklist || c.CanManageOperators }))
	view.GET("/operators", h.ListOperators)
	view.GET("/operators/:id", h.GetOperator)
	view.GET("/operators/:id/capabilities", h.GetOperatorCapabilities)
}

func (h *Handler) ListOperators(c echo.Context) error {
	pg := pagination.FromContext(c)

	filter := ListFilter{Role: c.QueryParam("role")}
	if filter.Role != "" {
		if _, ok := ParseRole(filter.Role); !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown role")
		}
	}

	// Group operators only see their own subtree.
	caps := CapabilitiesFromContext(c)
	if !caps.CanManageOperators {
		if oid, err := uuid.Parse(auth.OperatorIDFromContext(c.Request().Context())); err == nil {
			self, err := h.svc.GetOperator(c.Request().Context(), oid)
			if err == nil && hasRole(self.Roles, RoleGroup) {
				filter.ParentID = &oid
			}
		}
	}

	items, total, err := h.svc.ListOperators(c.Request().Context(), filter, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetOperator(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	o, err := h.svc.GetOperator(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "operator not found")
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) GetOperatorCapabilities(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	caps, err := h.svc.ResolveCapabilities(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "operator not found")
	}
	return c.JSON(http.StatusOK, caps)
}

func hasRole(roles []string, want Role) bool {
	for _, r := range roles {
		if Role(r) == want {
			return true
		}
	}
	return false
}
