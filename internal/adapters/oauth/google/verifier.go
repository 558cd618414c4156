package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/turdes/auth/internal/core/ports"
	"google.golang.org/api/idtoken"
)

var ErrEmailNotVerified = errors.New("google account email is not verified")

type GoogleVerifier struct {
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

func NewVerifier() ports.TokenVerifier {
	return &GoogleVerifier{validate: idtoken.Validate}
}

func (v *GoogleVerifier) Verify(ctx context.Context, token string, clientID string) (*ports.TokenPayload, error) {
	payload, err := v.validate(ctx, token, clientID)
	if err != nil {
		return nil, fmt.Errorf("invalid google token: %w", err)
	}
	return payloadFromClaims(payload.Claims)
}

func payloadFromClaims(claims map[string]any) (*ports.TokenPayload, error) {
	email, ok := claims["email"].(string)
	if !ok || email == "" {
		return nil, errors.New("email not found in claims")
	}
	if verified, ok := claims["email_verified"].(bool); ok && !verified {
		return nil, ErrEmailNotVerified
	}

	name, _ := claims["name"].(string)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	return &ports.TokenPayload{Email: email, Name: name}, nil
}
