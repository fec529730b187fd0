package entity

// Role identifies the function of an actor within the back office. Role
// gating for workflow and pipeline operations is evaluated inside the core,
// the identity itself is supplied by the caller.
type Role string

const (
	RoleDoctor   Role = "doctor"    // hospital doctor assigned to a stay
	RoleReferent Role = "referent"  // hospital referring physician
	RoleMedical  Role = "medical"   // medical validation pole
	RoleSinistre Role = "sinistre"  // claims-pole agent
	RoleCompta   Role = "compta"    // accounting pole
	RoleAdmin    Role = "admin"
)

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// Actor is the identity context supplied by the caller of every workflow or
// pipeline operation.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// HasAnyRole reports whether the actor's role is in the allowed set. Admin
// passes every gate.
func (a Actor) HasAnyRole(allowed ...Role) bool {
	if a.Role == RoleAdmin {
		return true
	}
	for _, r := range allowed {
		if a.Role == r {
			return true
		}
	}
	return false
}
