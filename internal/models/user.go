package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the available roles for the RBAC system. Identity and
// group provisioning live in the surrounding application; this service only
// reads roles out of validated tokens.
type UserRole string

const (
	RoleAdmin          UserRole = "ADMIN"
	RoleOrganizerStaff UserRole = "ORGANIZER"
	RoleUser           UserRole = "USER"
)

// User is the read-only identity model owned by the surrounding application.
type User struct {
	ID    string `db:"id" json:"id"`
	Email string `db:"email" json:"email"`
	Name  string `db:"name" json:"name"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}
