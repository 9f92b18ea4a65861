// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package tenant_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/taibuivan/helpline/internal/platform/cache"
	"github.com/taibuivan/helpline/internal/platform/metrics"
	"github.com/taibuivan/helpline/internal/tenant"
)

type TenantServiceSuite struct {
	suite.Suite
	ctx     context.Context
	repo    *tenant.InMemoryRepository
	cache   *cache.Cache
	metrics *metrics.Metrics
	service *tenant.Service
}

func TestTenantServiceSuite(t *testing.T) {
	suite.Run(t, new(TenantServiceSuite))
}

func (s *TenantServiceSuite) SetupTest() {
	var err error
	s.ctx = context.Background()
	s.repo = tenant.NewInMemoryRepository()
	s.cache, err = cache.New(1000, 1<<20)
	s.Require().NoError(err)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.service = tenant.NewService(s.repo, s.cache, s.metrics, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (s *TenantServiceSuite) TearDownTest() {
	s.cache.Close()
}

// TestCreate verifies the admin seed and case-insensitive name uniqueness.
func (s *TenantServiceSuite) TestCreate() {
	created, err := s.service.Create(s.ctx, "  Acme ", "admin-1")
	s.Require().NoError(err)
	s.Equal("Acme", created.Name)
	s.Equal(tenant.StatusActive, created.Status)
	s.True(created.HasAdmin("admin-1"))
	s.Len(created.Admins, 1)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.TenantsCreated))

	for _, name := range []string{"acme", "ACME", " Acme\t"} {
		_, err := s.service.Create(s.ctx, name, "admin-2")
		s.ErrorIs(err, tenant.ErrDuplicateName, name)
	}

	_, err = s.service.Create(s.ctx, "   ", "admin-1")
	s.Error(err)
}

// TestCreateConcurrentSameName allows exactly one winner.
func (s *TenantServiceSuite) TestCreateConcurrentSameName() {
	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.Create(s.ctx, "Globex", "admin-1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		s.ErrorIs(err, tenant.ErrDuplicateName)
	}
	s.Equal(1, succeeded)
}

// TestAddAdmin verifies membership conflicts and missing tenants.
func (s *TenantServiceSuite) TestAddAdmin() {
	created, err := s.service.Create(s.ctx, "Acme", "admin-1")
	s.Require().NoError(err)

	// Warm the cache so invalidation is exercised.
	_, err = s.service.Get(s.ctx, created.ID)
	s.Require().NoError(err)

	s.Require().NoError(s.service.AddAdmin(s.ctx, created.ID, "admin-2", "admin-1"))
	s.ErrorIs(s.service.AddAdmin(s.ctx, created.ID, "admin-2", "admin-1"), tenant.ErrAlreadyAdmin)
	s.ErrorIs(s.service.AddAdmin(s.ctx, created.ID, "admin-1", "admin-1"), tenant.ErrAlreadyAdmin)
	s.ErrorIs(s.service.AddAdmin(s.ctx, "missing", "admin-2", "admin-1"), tenant.ErrTenantNotFound)

	fetched, err := s.service.Get(s.ctx, created.ID)
	s.Require().NoError(err)
	s.True(fetched.HasAdmin("admin-2"))

	administered, err := s.service.ListAdminsOf(s.ctx, "admin-2")
	s.Require().NoError(err)
	s.Require().Len(administered, 1)
	s.Equal(created.ID, administered[0].ID)
}

// TestLookup resolves by id and by folded name.
func (s *TenantServiceSuite) TestLookup() {
	created, err := s.service.Create(s.ctx, "Acme", "admin-1")
	s.Require().NoError(err)

	byID, err := s.service.Lookup(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(created.ID, byID.ID)

	byName, err := s.service.Lookup(s.ctx, "ACME")
	s.Require().NoError(err)
	s.Equal(created.ID, byName.ID)
	s.Equal("acme", byName.NormalizedName)

	_, err = s.service.Lookup(s.ctx, "initech")
	s.ErrorIs(err, tenant.ErrTenantNotFound)

	_, err = s.service.Lookup(s.ctx, "")
	s.ErrorIs(err, tenant.ErrTenantNotFound)
}

// TestStatusAndDelete verifies lifecycle changes bypass stale cache entries.
func (s *TenantServiceSuite) TestStatusAndDelete() {
	created, err := s.service.Create(s.ctx, "Acme", "admin-1")
	s.Require().NoError(err)
	_, err = s.service.Lookup(s.ctx, "acme")
	s.Require().NoError(err)

	s.Require().NoError(s.service.SetStatus(s.ctx, created.ID, tenant.StatusSuspended))
	fetched, err := s.service.Get(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(tenant.StatusSuspended, fetched.Status)

	s.ErrorIs(s.service.SetStatus(s.ctx, created.ID, "paused"), tenant.ErrInvalidStatus)

	s.Require().NoError(s.service.Delete(s.ctx, created.ID))
	_, err = s.service.Get(s.ctx, created.ID)
	s.ErrorIs(err, tenant.ErrTenantNotFound)
	_, err = s.service.Lookup(s.ctx, "Acme")
	s.ErrorIs(err, tenant.ErrTenantNotFound)
	s.ErrorIs(s.service.Delete(s.ctx, created.ID), tenant.ErrTenantNotFound)

	// The name is free again once the tenant is deleted.
	recreated, err := s.service.Create(s.ctx, "ACME", "admin-3")
	s.Require().NoError(err)
	s.NotEqual(created.ID, recreated.ID)

	all, err := s.service.List(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 1)
}

// TestGetWithoutCache exercises the nil cache path.
func (s *TenantServiceSuite) TestGetWithoutCache() {
	service := tenant.NewService(s.repo, nil, s.metrics, slog.New(slog.NewTextHandler(io.Discard, nil)))
	created, err := service.Create(s.ctx, "Initech", "admin-1")
	s.Require().NoError(err)

	fetched, err := service.Get(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal("Initech", fetched.Name)
}

// TestStaleFillDropped interleaves a cache fill with a status change: the
// read that saw the old row must not overwrite the invalidation.
func (s *TenantServiceSuite) TestStaleFillDropped() {
	created, err := s.service.Create(s.ctx, "Acme", "admin-1")
	s.Require().NoError(err)

	gated := &gatedRepository{
		InMemoryRepository: s.repo,
		read:               make(chan struct{}),
		release:            make(chan struct{}),
	}
	service := tenant.NewService(gated, s.cache, s.metrics, slog.New(slog.NewTextHandler(io.Discard, nil)))

	done := make(chan *tenant.Tenant, 1)
	go func() {
		stale, err := service.Get(s.ctx, created.ID)
		s.NoError(err)
		done <- stale
	}()

	<-gated.read
	s.Require().NoError(service.SetStatus(s.ctx, created.ID, tenant.StatusSuspended))
	close(gated.release)

	stale := <-done
	s.Equal(tenant.StatusActive, stale.Status)

	fetched, err := service.Get(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(tenant.StatusSuspended, fetched.Status)
}

// TestGetFreshSkipsCache covers a change made by another process, which
// never invalidates this process's cache.
func (s *TenantServiceSuite) TestGetFreshSkipsCache() {
	created, err := s.service.Create(s.ctx, "Acme", "admin-1")
	s.Require().NoError(err)
	_, err = s.service.Get(s.ctx, created.ID)
	s.Require().NoError(err)

	s.Require().NoError(s.repo.SetStatus(s.ctx, created.ID, tenant.StatusSuspended))

	cached, err := s.service.Get(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(tenant.StatusActive, cached.Status)

	fresh, err := s.service.GetFresh(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(tenant.StatusSuspended, fresh.Status)

	refreshed, err := s.service.Get(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(tenant.StatusSuspended, refreshed.Status)
}

// gatedRepository parks the first FindByID after it has read the row.
type gatedRepository struct {
	*tenant.InMemoryRepository
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func (repository *gatedRepository) FindByID(context context.Context, id string) (*tenant.Tenant, error) {
	found, err := repository.InMemoryRepository.FindByID(context, id)
	repository.once.Do(func() {
		close(repository.read)
		<-repository.release
	})
	return found, err
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "acme", tenant.NormalizeName(" ACME "))
	assert.Equal(t, tenant.NormalizeName("ÅNGSTRÖM"), tenant.NormalizeName("ångström"))
}
