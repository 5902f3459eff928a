package repotest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/repository"
	apperrors "github.com/tcmflow/clinic-api/pkg/errors"
)

var (
	_ repository.UserRepository  = (*Users)(nil)
	_ repository.TokenRepository = (*Tokens)(nil)
)

// Users stores accounts in memory. Mutating methods change the stored
// records in place so tests observe the same state the service does.
type Users struct {
	Items []*model.User
}

func (r *Users) Create(_ context.Context, user *model.User) error {
	stamp(&user.Base)
	r.Items = append(r.Items, user)
	return nil
}

func (r *Users) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	for _, u := range r.Items {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, apperrors.NotFound("user", nil)
}

func (r *Users) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range r.Items {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, apperrors.NotFound("user", nil)
}

func (r *Users) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.Items {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperrors.NotFound("user", nil)
}

func (r *Users) List(_ context.Context) ([]*model.User, error) {
	return r.Items, nil
}

func (r *Users) ListDoctors(_ context.Context) ([]*model.User, error) {
	var out []*model.User
	for _, u := range r.Items {
		if u.Role == model.RoleDoctor && u.IsActive {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *Users) Update(_ context.Context, user *model.User) error {
	for i, u := range r.Items {
		if u.ID == user.ID {
			user.UpdatedAt = time.Now()
			r.Items[i] = user
			return nil
		}
	}
	return apperrors.NotFound("user", nil)
}

func (r *Users) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	for _, u := range r.Items {
		if u.ID == id {
			u.PasswordHash = passwordHash
			u.UpdatedAt = time.Now()
			return nil
		}
	}
	return apperrors.NotFound("user", nil)
}

func (r *Users) UpdateLoginState(_ context.Context, id uuid.UUID, failedCount int, lockedUntil, lastLogin *time.Time) error {
	for _, u := range r.Items {
		if u.ID == id {
			u.FailedLoginCount = failedCount
			u.LockedUntil = lockedUntil
			u.LastLogin = lastLogin
			return nil
		}
	}
	return apperrors.NotFound("user", nil)
}

// Tokens stores refresh revocations and reset tokens.
type Tokens struct {
	Items []*model.Token
}

func (r *Tokens) Create(_ context.Context, token *model.Token) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	r.Items = append(r.Items, token)
	return nil
}

func (r *Tokens) GetByValue(_ context.Context, tokenType, value string) (*model.Token, error) {
	for _, t := range r.Items {
		if t.TokenType == tokenType && t.Value == value {
			return t, nil
		}
	}
	return nil, apperrors.NotFound("token", nil)
}

func (r *Tokens) Revoke(_ context.Context, id uuid.UUID) error {
	for _, t := range r.Items {
		if t.ID == id {
			if t.RevokedAt == nil {
				now := time.Now()
				t.RevokedAt = &now
			}
			return nil
		}
	}
	return apperrors.NotFound("token", nil)
}

func (r *Tokens) IsRevoked(_ context.Context, tokenType, value string) (bool, error) {
	for _, t := range r.Items {
		if t.TokenType == tokenType && t.Value == value {
			return true, nil
		}
	}
	return false, nil
}

func (r *Tokens) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	var kept []*model.Token
	var removed int64
	for _, t := range r.Items {
		if t.ExpiresAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	r.Items = kept
	return removed, nil
}
