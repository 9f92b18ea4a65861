// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

//go:build integration

package tenant_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/taibuivan/helpline/internal/tenant"
	"github.com/taibuivan/helpline/internal/testutil/containers"
	"github.com/taibuivan/helpline/pkg/uuid"
)

type PostgresStoreSuite struct {
	suite.Suite
	ctx      context.Context
	postgres *containers.PostgresContainer
	store    *tenant.PostgresRepository
	creator  string
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = tenant.NewPostgresRepository(s.postgres.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(s.ctx))
	s.creator = uuid.New()
}

func (s *PostgresStoreSuite) newTenant(name string) *tenant.Tenant {
	return &tenant.Tenant{
		ID:             uuid.New(),
		Name:           name,
		NormalizedName: tenant.NormalizeName(name),
		Status:         tenant.StatusActive,
		CreatedBy:      s.creator,
		Admins:         []tenant.AdminAssignment{{AccountID: s.creator, AddedBy: s.creator}},
	}
}

// TestCreateAndFind round-trips a tenant with its seeded admin.
func (s *PostgresStoreSuite) TestCreateAndFind() {
	acme := s.newTenant("Acme")
	s.Require().NoError(s.store.Create(s.ctx, acme))

	found, err := s.store.FindByID(s.ctx, acme.ID)
	s.Require().NoError(err)
	s.Equal("Acme", found.Name)
	s.True(found.HasAdmin(s.creator))

	byName, err := s.store.FindByNormalizedName(s.ctx, "acme")
	s.Require().NoError(err)
	s.Equal(acme.ID, byName.ID)

	_, err = s.store.FindByID(s.ctx, "not-a-uuid")
	s.ErrorIs(err, tenant.ErrTenantNotFound)
}

// TestDuplicateName maps the partial unique index to ErrDuplicateName.
func (s *PostgresStoreSuite) TestDuplicateName() {
	s.Require().NoError(s.store.Create(s.ctx, s.newTenant("Acme")))
	s.ErrorIs(s.store.Create(s.ctx, s.newTenant(" ACME ")), tenant.ErrDuplicateName)
}

// TestConcurrentCreate lets exactly one of many racing creates win.
func (s *PostgresStoreSuite) TestConcurrentCreate() {
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.store.Create(s.ctx, s.newTenant("Globex"))
		}()
	}
	wg.Wait()
	close(errs)

	created := 0
	for err := range errs {
		if err == nil {
			created++
			continue
		}
		s.ErrorIs(err, tenant.ErrDuplicateName)
	}
	s.Equal(1, created)
}

// TestSoftDelete hides the tenant and frees its name.
func (s *PostgresStoreSuite) TestSoftDelete() {
	acme := s.newTenant("Acme")
	s.Require().NoError(s.store.Create(s.ctx, acme))
	s.Require().NoError(s.store.SoftDelete(s.ctx, acme.ID))

	_, err := s.store.FindByID(s.ctx, acme.ID)
	s.ErrorIs(err, tenant.ErrTenantNotFound)
	s.ErrorIs(s.store.SoftDelete(s.ctx, acme.ID), tenant.ErrTenantNotFound)
	s.ErrorIs(s.store.SetStatus(s.ctx, acme.ID, tenant.StatusSuspended), tenant.ErrTenantNotFound)

	s.NoError(s.store.Create(s.ctx, s.newTenant("acme")))
}

// TestAdminsAndStatus covers assignment and lifecycle updates.
func (s *PostgresStoreSuite) TestAdminsAndStatus() {
	acme := s.newTenant("Acme")
	s.Require().NoError(s.store.Create(s.ctx, acme))
	s.Require().NoError(s.store.Create(s.ctx, s.newTenant("Initech")))

	other := uuid.New()
	s.Require().NoError(s.store.AddAdmin(s.ctx, acme.ID, tenant.AdminAssignment{AccountID: other, AddedBy: s.creator}))
	s.ErrorIs(s.store.AddAdmin(s.ctx, acme.ID, tenant.AdminAssignment{AccountID: other, AddedBy: s.creator}), tenant.ErrAlreadyAdmin)
	s.ErrorIs(s.store.AddAdmin(s.ctx, uuid.New(), tenant.AdminAssignment{AccountID: other, AddedBy: s.creator}), tenant.ErrTenantNotFound)

	mine, err := s.store.ListByAdmin(s.ctx, other)
	s.Require().NoError(err)
	s.Require().Len(mine, 1)
	s.Equal(acme.ID, mine[0].ID)

	all, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 2)

	s.Require().NoError(s.store.SetStatus(s.ctx, acme.ID, tenant.StatusInactive))
	found, err := s.store.FindByID(s.ctx, acme.ID)
	s.Require().NoError(err)
	s.Equal(tenant.StatusInactive, found.Status)
	s.Len(found.Admins, 2)
}
