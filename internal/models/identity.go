package models

import "strconv"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// IdentityClaims are decoded from a verified identity token. The role is
// fixed for the token's lifetime.
type IdentityClaims struct {
	SubjectID int64
	Email     string
	Role      Role
}

// ActorID is the audit actor for these claims.
func (c IdentityClaims) ActorID() string {
	return strconv.FormatInt(c.SubjectID, 10)
}
