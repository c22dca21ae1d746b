package auth

import "github.com/golang-jwt/jwt/v5"

// AdminRole is the only role accepted on the admin surface.
const AdminRole = "admin"

// AdminTokenClaims represents the typed JWT issued to operators of the
// admin API.
type AdminTokenClaims struct {
	Actor string `json:"actor"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}
