package model

// Role is the kind of authenticated account acting on the engine.
// The auth provider is external; the engine trusts the identifier and
// performs no credential verification.
type Role string

const (
	RoleInfluencer Role = "influencer"
	RoleOwner      Role = "owner"
	RoleStaff      Role = "staff"
	RoleAdmin      Role = "admin"
)

// Principal is the opaque authenticated identity attached to a request.
type Principal struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// CanScan reports whether this principal may consume visit QR tokens.
func (p Principal) CanScan() bool {
	return p.Role == RoleOwner || p.Role == RoleStaff
}
