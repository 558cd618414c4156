package domain

import "github.com/google/uuid"

// AccessClaims is the identity carried by a verified access token.
type AccessClaims struct {
	UserID uuid.UUID
	Email  string
	Role   Role
}

// TokenPair is returned by login and refresh. RefreshToken is empty when a
// refresh did not rotate the stored token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}
