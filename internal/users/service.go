package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/steward/internal/roles"
	"github.com/odyssey-erp/steward/internal/shared"
)

// SessionBinding is the signed-in session as the directory sees it.
// Refresh replaces the session's copy of the identity after it changed here.
type SessionBinding interface {
	CurrentIdentity() *Identity
	Refresh(ctx context.Context, identity Identity)
}

// Service is the user directory: the authoritative collection of identities.
type Service struct {
	repo     RepositoryPort
	catalog  *roles.Catalog
	validate *validator.Validate
	session  SessionBinding
	now      func() time.Time

	// writeMu serialises ID allocation and uniqueness checks.
	writeMu sync.Mutex
}

// NewService builds Service instance. A nil catalog skips role-key checks.
func NewService(repo RepositoryPort, catalog *roles.Catalog) *Service {
	return &Service{
		repo:     repo,
		catalog:  catalog,
		validate: validator.New(),
		now:      time.Now,
	}
}

// BindSession attaches the session used to refuse self deletion and to keep
// the signed-in identity current. The session store itself depends on the
// directory, so it is attached after both exist.
func (s *Service) BindSession(session SessionBinding) {
	s.session = session
}

// List returns all identities in insertion order.
func (s *Service) List(ctx context.Context) ([]Identity, error) {
	return s.repo.ListIdentities(ctx)
}

// Get returns one identity by ID.
func (s *Service) Get(ctx context.Context, id int64) (Identity, error) {
	return s.repo.GetIdentity(ctx, id)
}

// LookupByUsername finds an identity by exact username. A miss returns (nil, nil).
func (s *Service) LookupByUsername(ctx context.Context, username string) (*Identity, error) {
	identity, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &identity, nil
}

// Insert adds an identity with ID = max existing ID + 1 and CreatedAt = now.
// Usernames must be unique; emails are not checked.
func (s *Service) Insert(ctx context.Context, identity Identity) (Identity, error) {
	identity.Username = strings.TrimSpace(identity.Username)
	identity.Email = strings.TrimSpace(identity.Email)
	if identity.Status == "" {
		identity.Status = StatusActive
	}
	if err := s.check(identity); err != nil {
		return Identity{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.ensureUsernameFree(ctx, identity.Username, 0); err != nil {
		return Identity{}, err
	}
	maxID, err := s.repo.MaxID(ctx)
	if err != nil {
		return Identity{}, fmt.Errorf("users: insert: %w", err)
	}
	identity.ID = maxID + 1
	identity.CreatedAt = s.now().UTC()
	if err := s.repo.InsertIdentity(ctx, identity); err != nil {
		return Identity{}, err
	}
	return identity.Clone(), nil
}

// Update merges fields into the identity with the given ID.
func (s *Service) Update(ctx context.Context, id int64, fields Fields) (Identity, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, err := s.repo.GetIdentity(ctx, id)
	if err != nil {
		return Identity{}, err
	}
	previous := current.Username
	fields.apply(&current)
	current.Username = strings.TrimSpace(current.Username)
	if err := s.check(current); err != nil {
		return Identity{}, err
	}
	if current.Username != previous {
		if err := s.ensureUsernameFree(ctx, current.Username, id); err != nil {
			return Identity{}, err
		}
	}
	if err := s.repo.UpdateIdentity(ctx, current); err != nil {
		return Identity{}, err
	}
	if s.session != nil {
		if signedIn := s.session.CurrentIdentity(); signedIn != nil && signedIn.ID == id {
			s.session.Refresh(ctx, current.Clone())
		}
	}
	return current.Clone(), nil
}

// Remove deletes an identity. The signed-in identity cannot remove itself.
func (s *Service) Remove(ctx context.Context, id int64) error {
	if s.session != nil {
		if current := s.session.CurrentIdentity(); current != nil && current.ID == id {
			return shared.ErrSelfDeletion
		}
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.repo.DeleteIdentity(ctx, id)
}

func (s *Service) ensureUsernameFree(ctx context.Context, username string, selfID int64) error {
	existing, err := s.repo.FindByUsername(ctx, username)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("users: username check: %w", err)
	case existing.ID != selfID:
		return shared.NewValidationError("username", "already taken")
	}
	return nil
}

func (s *Service) check(identity Identity) error {
	if err := s.validate.Struct(identity); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return shared.NewValidationError(fieldName(verrs[0].Field()), tagMessage(verrs[0]))
		}
		return shared.NewValidationError("", err.Error())
	}
	if s.catalog != nil {
		if _, ok := s.catalog.Get(identity.Role); !ok {
			return shared.NewValidationError("role", "unknown role")
		}
	}
	return nil
}

func fieldName(field string) string {
	switch field {
	case "DisplayName":
		return "display_name"
	default:
		return strings.ToLower(field)
	}
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}
