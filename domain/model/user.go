package model

import "github.com/golang-jwt/jwt"

// UserClaims are the claims carried by an owner session token.
type UserClaims struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	TenantID string `json:"tenant_id"`
	jwt.StandardClaims
}

// ActorID resolves the acting identity. Older tokens carry it in sub or iss.
func (c UserClaims) ActorID() string {
	if c.UserID != "" {
		return c.UserID
	}
	if c.Subject != "" {
		return c.Subject
	}
	return c.Issuer
}
