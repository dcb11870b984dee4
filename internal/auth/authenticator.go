package auth

import (
	"context"
	"errors"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("authorization token required")
	ErrRevokedToken = errors.New("token has been signed out")
)

// Identity is what an identity provider knows about a signed-in person.
// UID is stable across sign-ins and becomes the user's id everywhere.
type Identity struct {
	UID         string
	DisplayName string
	Email       string
	PhotoURL    string
}

// Authenticator defines the interface for credential-based identity providers.
// This abstraction allows swapping between different auth methods (password,
// passkeys, etc.) without changing the service layer code.
// Redirect-based providers such as Google implement their own flow; see GoogleProvider.
type Authenticator interface {
	// Register creates a new identity with the given email and credential.
	Register(ctx context.Context, email, displayName, credential string) (*Identity, error)

	// Authenticate verifies the credential and returns the identity if successful.
	Authenticate(ctx context.Context, email, credential string) (*Identity, error)

	// ValidateCredential checks if the credential meets the implementation's requirements.
	ValidateCredential(credential string) error
}
