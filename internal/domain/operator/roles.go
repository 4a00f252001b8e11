package operator

// Role is a closed tag describing one function an operator performs. Role
// strings arriving from the identity provider are mapped through ParseRole;
// anything unrecognized resolves to no role at all rather than a default.
type Role string

const (
	RoleSuperAdmin      Role = "super_admin"
	RoleAdmin           Role = "admin"
	RoleGroup           Role = "group_id"
	RoleAssignor        Role = "assignor"
	RoleRadiologist     Role = "radiologist"
	RoleVerifier        Role = "verifier"
	RolePhysician       Role = "physician"
	RoleReceptionist    Role = "receptionist"
	RoleBilling         Role = "billing"
	RoleTypist          Role = "typist"
	RoleDashboardViewer Role = "dashboard_viewer"
	RoleLabStaff        Role = "lab_staff"
	RoleDoctorAccount   Role = "doctor_account"
	RoleOwner           Role = "owner"
)

var knownRoles = map[Role]bool{
	RoleSuperAdmin:      true,
	RoleAdmin:           true,
	RoleGroup:           true,
	RoleAssignor:        true,
	RoleRadiologist:     true,
	RoleVerifier:        true,
	RolePhysician:       true,
	RoleReceptionist:    true,
	RoleBilling:         true,
	RoleTypist:          true,
	RoleDashboardViewer: true,
	RoleLabStaff:        true,
	RoleDoctorAccount:   true,
	RoleOwner:           true,
}

// ParseRole returns the Role for a raw tag, or false when the tag has no
// defined mapping.
func ParseRole(raw string) (Role, bool) {
	r := Role(raw)
	return r, knownRoles[r]
}
