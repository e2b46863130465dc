package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// ResolveOrCreatePatient returns the patient account for the given phone,
// creating one when none exists. New accounts get the phone number as their
// initial password, bcrypt-hashed; the plaintext is handed back to the
// assistant out of band so the patient can log in and change it.
//
// A concurrent create losing the phone-uniqueness race falls back to the
// winner's row, so callers always get a usable account.
func (s *Service) ResolveOrCreatePatient(ctx context.Context, phone, name string) (uuid.UUID, bool, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return uuid.Nil, false, fmt.Errorf("phone is required to provision a patient account")
	}

	if u, err := s.repo.GetByPhone(ctx, phone); err == nil {
		return u.ID, false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return uuid.Nil, false, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(phone), bcrypt.DefaultCost)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("hash initial password: %w", err)
	}

	u := &User{
		Name:         name,
		Phone:        phone,
		PasswordHash: string(hash),
		Role:         RolePatient,
		Active:       true,
	}
	err = s.repo.Create(ctx, u)
	if errors.Is(err, ErrPhoneTaken) {
		existing, err := s.repo.GetByPhone(ctx, phone)
		if err != nil {
			return uuid.Nil, false, err
		}
		return existing.ID, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return u.ID, true, nil
}

// VerifyPassword checks a plaintext password against the stored hash.
func (s *Service) VerifyPassword(ctx context.Context, phone, password string) (*User, error) {
	u, err := s.repo.GetByPhone(ctx, strings.TrimSpace(phone))
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrNotFound
	}
	return u, nil
}
