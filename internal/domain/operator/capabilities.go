package operator

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/risflow/risflow/internal/platform/auth"
)

// CapabilitySet is the effective permission map derived from an operator's
// roles. It is recomputed from the role set on demand and never edited
// independently of it.
type CapabilitySet struct {
	CanViewWorklist     bool `json:"can_view_worklist"`
	CanAssignStudies    bool `json:"can_assign_studies"`
	CanReportStudies    bool `json:"can_report_studies"`
	CanVerifyReports    bool `json:"can_verify_reports"`
	CanToggleLock       bool `json:"can_toggle_lock"`
	CanOverrideLock     bool `json:"can_override_lock"`
	CanUpdateWorkflow   bool `json:"can_update_workflow"`
	CanDownloadReports  bool `json:"can_download_reports"`
	CanManageOperators  bool `json:"can_manage_operators"`
	CanViewDashboard    bool `json:"can_view_dashboard"`
	CanRegisterStudies  bool `json:"can_register_studies"`
	CanTranscribe       bool `json:"can_transcribe"`
	CanViewBilling      bool `json:"can_view_billing"`
}

// Union returns the field-wise union of two capability sets. Multi-role
// operators resolve to the union of each role's set, so no role can take
// away what another grants.
func (c CapabilitySet) Union(other CapabilitySet) CapabilitySet {
	return CapabilitySet{
		CanViewWorklist:    c.CanViewWorklist || other.CanViewWorklist,
		CanAssignStudies:   c.CanAssignStudies || other.CanAssignStudies,
		CanReportStudies:   c.CanReportStudies || other.CanReportStudies,
		CanVerifyReports:   c.CanVerifyReports || other.CanVerifyReports,
		CanToggleLock:      c.CanToggleLock || other.CanToggleLock,
		CanOverrideLock:    c.CanOverrideLock || other.CanOverrideLock,
		CanUpdateWorkflow:  c.CanUpdateWorkflow || other.CanUpdateWorkflow,
		CanDownloadReports: c.CanDownloadReports || other.CanDownloadReports,
		CanManageOperators: c.CanManageOperators || other.CanManageOperators,
		CanViewDashboard:   c.CanViewDashboard || other.CanViewDashboard,
		CanRegisterStudies: c.CanRegisterStudies || other.CanRegisterStudies,
		CanTranscribe:      c.CanTranscribe || other.CanTranscribe,
		CanViewBilling:     c.CanViewBilling || other.CanViewBilling,
	}
}

// adminSet is shared by the administrative roles, which hold every
// capability including lock override.
var adminSet = CapabilitySet{
	CanViewWorklist:    true,
	CanAssignStudies:   true,
	CanReportStudies:   false,
	CanVerifyReports:   false,
	CanToggleLock:      true,
	CanOverrideLock:    true,
	CanUpdateWorkflow:  true,
	CanDownloadReports: true,
	CanManageOperators: true,
	CanViewDashboard:   true,
	CanRegisterStudies: true,
	CanTranscribe:      false,
	CanViewBilling:     true,
}

// capabilitiesByRole is the total mapping from role to capability set.
// Roles absent from this table grant nothing (fail-closed).
var capabilitiesByRole = map[Role]CapabilitySet{
	RoleSuperAdmin: adminSet,
	RoleAdmin:      adminSet,
	RoleOwner:      adminSet,
	RoleGroup: {
		CanViewWorklist:    true,
		CanViewDashboard:   true,
		CanDownloadReports: true,
	},
	RoleAssignor: {
		CanViewWorklist:  true,
		CanAssignStudies: true,
		CanToggleLock:    true,
	},
	RoleRadiologist: {
		CanViewWorklist:   true,
		CanReportStudies:  true,
		CanUpdateWorkflow: true,
	},
	RoleVerifier: {
		CanViewWorklist:    true,
		CanVerifyReports:   true,
		CanUpdateWorkflow:  true,
		CanDownloadReports: true,
	},
	RolePhysician: {
		CanViewWorklist:    true,
		CanDownloadReports: true,
	},
	RoleReceptionist: {
		CanViewWorklist:    true,
		CanRegisterStudies: true,
	},
	RoleBilling: {
		CanViewBilling: true,
	},
	RoleTypist: {
		CanViewWorklist: true,
		CanTranscribe:   true,
	},
	RoleDashboardViewer: {
		CanViewDashboard: true,
	},
	RoleLabStaff: {
		CanViewWorklist:    true,
		CanRegisterStudies: true,
	},
	RoleDoctorAccount: {
		CanViewWorklist:    true,
		CanDownloadReports: true,
	},
}

// Capabilities resolves a raw role list to the effective capability set.
// Resolution is pure: the same role set always yields the same result, and
// unknown role tags contribute nothing.
func Capabilities(roles []string) CapabilitySet {
	var caps CapabilitySet
	for _, raw := range roles {
		role, ok := ParseRole(raw)
		if !ok {
			continue
		}
		caps = caps.Union(capabilitiesByRole[role])
	}
	return caps
}

// RequireCapability returns middleware that admits a request only when the
// operator's resolved capabilities satisfy pick. Denials are generic; they
// never describe which capability was missing.
func RequireCapability(pick func(CapabilitySet) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caps := Capabilities(auth.RolesFromContext(c.Request().Context()))
			if !pick(caps) {
				return echo.NewHTTPError(http.StatusForbidden, "not authorized")
			}
			return next(c)
		}
	}
}

// CapabilitiesFromContext resolves the capability set for the operator on
// the request context.
func CapabilitiesFromContext(c echo.Context) CapabilitySet {
	return Capabilities(auth.RolesFromContext(c.Request().Context()))
}
