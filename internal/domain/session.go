package domain

// Role identifies which storefront surface the signed-in user belongs to.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
	RoleAdmin    Role = "admin"
)

// Session is the client's view of the signed-in user: an opaque bearer
// token plus a role tag. The sync core only reads it; mutation happens
// through the session store.
type Session struct {
	Token string `json:"token"`
	Role  Role   `json:"role"`
}

// Authenticated reports whether a bearer token is present.
func (s Session) Authenticated() bool {
	return s.Token != ""
}
