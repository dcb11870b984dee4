package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/tripsplit/internal/models"
	"github.com/mmynk/tripsplit/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrEmailExists        = errors.New("email already registered")
)

// CredentialStorage is the subset of storage.Store the password provider needs.
type CredentialStorage interface {
	CreateAccount(ctx context.Context, cred *models.Credential, profile *models.User) error
	GetCredentialByEmail(ctx context.Context, email string) (*models.Credential, error)
}

// PasswordAuthenticator implements password-based authentication using bcrypt.
type PasswordAuthenticator struct {
	storage CredentialStorage
	cost    int
}

var _ Authenticator = (*PasswordAuthenticator)(nil)

// NewPasswordAuthenticator creates a new password-based authenticator.
func NewPasswordAuthenticator(storage CredentialStorage) *PasswordAuthenticator {
	return &PasswordAuthenticator{
		storage: storage,
		cost:    bcrypt.DefaultCost,
	}
}

// WithCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (a *PasswordAuthenticator) WithCost(cost int) *PasswordAuthenticator {
	a.cost = cost
	return a
}

// ValidateCredential checks if the password meets minimum requirements.
func (a *PasswordAuthenticator) ValidateCredential(credential string) error {
	if len(credential) < 8 {
		return ErrWeakPassword
	}
	return nil
}

// Register creates a new identity with a hashed password and a random UID.
// The profile is stored with the credential, so a registered email always
// has a profile carrying the chosen display name.
func (a *PasswordAuthenticator) Register(ctx context.Context, email, displayName, credential string) (*Identity, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, ErrInvalidCredentials
	}
	if err := a.ValidateCredential(credential); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(credential), a.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	displayName = strings.TrimSpace(displayName)
	name := displayName
	if name == "" {
		name = models.DefaultUserName
	}

	cred := &models.Credential{
		UID:          uuid.New().String(),
		Email:        email,
		PasswordHash: string(hashedPassword),
	}
	profile := &models.User{UID: cred.UID, Name: name, Email: email}
	if err := a.storage.CreateAccount(ctx, cred, profile); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("failed to create credential: %w", err)
	}

	return &Identity{
		UID:         cred.UID,
		DisplayName: displayName,
		Email:       email,
	}, nil
}

// Authenticate verifies the email and password.
// The returned identity has no display name; the stored profile keeps it.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, email, credential string) (*Identity, error) {
	email = normalizeEmail(email)

	cred, err := a.storage.GetCredentialByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(credential)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &Identity{UID: cred.UID, Email: cred.Email}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
