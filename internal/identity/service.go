// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"context"
	"log/slog"
	"strings"

	"github.com/taibuivan/helpline/internal/platform/apperr"
	"github.com/taibuivan/helpline/internal/platform/sec"
	"github.com/taibuivan/helpline/internal/platform/validate"
	"github.com/taibuivan/helpline/pkg/uuid"
)

// # Service Layer

// Service manages the staff directory.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs a new account [Service].
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// CreateAccountInput carries the fields of a new staff account.
type CreateAccountInput struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
	Role        string `json:"role"`
}

/*
CreateAccount registers a staff account. Only superadmins may call it.

Parameters:
  - context: context.Context
  - actor: Principal (caller)
  - input: CreateAccountInput

Returns:
  - *Account: The stored account
  - error: Forbidden, validation or ErrDuplicateAccount
*/
func (service *Service) CreateAccount(context context.Context, actor Principal, input CreateAccountInput) (*Account, error) {
	if !actor.IsSuperAdmin() {
		return nil, apperr.Forbidden("Only superadmins can manage staff accounts")
	}

	role := sec.Role(strings.ToLower(strings.TrimSpace(input.Role)))

	validator := &validate.Validator{}
	validator.
		Required(FieldName, input.Name).
		MaxLen(FieldName, input.Name, 120).
		Required(FieldPhoneNumber, input.PhoneNumber).
		OneOf(FieldRole, string(role), string(sec.RoleAdmin), string(sec.RoleSuperAdmin))

	if err := validator.Err(); err != nil {
		return nil, err
	}

	phone, err := NormalizePhone(input.PhoneNumber)
	if err != nil {
		return nil, err
	}

	account := &Account{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(input.Name),
		PhoneNumber: phone,
		Role:        role,
	}

	if err := service.repo.Create(context, account); err != nil {
		return nil, err
	}

	service.logger.Info("account_created",
		slog.String("account_id", account.ID),
		slog.String("role", string(account.Role)),
		slog.String("created_by", actor.AccountID),
	)

	return account, nil
}

/*
ListAccounts returns the staff directory. Only superadmins may call it.
*/
func (service *Service) ListAccounts(context context.Context, actor Principal) ([]*Account, error) {
	if !actor.IsSuperAdmin() {
		return nil, apperr.Forbidden("Only superadmins can manage staff accounts")
	}
	return service.repo.List(context)
}

/*
DeleteAccount removes a staff account. Only superadmins may call it.

Description: A deleted account stops resolving at once, so tokens it still
holds are refused. Tenant admin assignments are kept as history. A
superadmin cannot delete their own account.

Returns:
  - error: Forbidden | ErrAccountNotFound
*/
func (service *Service) DeleteAccount(context context.Context, actor Principal, id string) error {
	if !actor.IsSuperAdmin() {
		return apperr.Forbidden("Only superadmins can manage staff accounts")
	}
	if id == actor.AccountID {
		return ErrSelfDelete
	}

	if err := service.repo.Delete(context, id); err != nil {
		return err
	}

	service.logger.Info("account_deleted",
		slog.String("account_id", id),
		slog.String("deleted_by", actor.AccountID),
	)
	return nil
}

// CountByRole returns the size of the staff directory per role.
func (service *Service) CountByRole(context context.Context) (map[sec.Role]int64, error) {
	return service.repo.CountByRole(context)
}

// FindByID exposes the directory lookup to the resolver and other packages.
func (service *Service) FindByID(context context.Context, id string) (*Account, error) {
	return service.repo.FindByID(context, id)
}
