// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package block_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/taibuivan/helpline/internal/block"
	"github.com/taibuivan/helpline/internal/identity"
	"github.com/taibuivan/helpline/internal/platform/constants"
	"github.com/taibuivan/helpline/internal/platform/metrics"
	"github.com/taibuivan/helpline/internal/tenant"
)

const phone = "9998887776"

type BlockServiceSuite struct {
	suite.Suite
	ctx     context.Context
	redis   *miniredis.Miniredis
	repo    *block.InMemoryRepository
	metrics *metrics.Metrics
	answers *block.RedisAnswerCache
	tenants *tenant.Service
	service *block.Service
	tenant  *tenant.Tenant
}

func TestBlockServiceSuite(t *testing.T) {
	suite.Run(t, new(BlockServiceSuite))
}

func (s *BlockServiceSuite) SetupTest() {
	s.ctx = context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.metrics = metrics.New(prometheus.NewRegistry())

	tenants := tenant.NewService(tenant.NewInMemoryRepository(), nil, s.metrics, logger)
	created, err := tenants.Create(s.ctx, "Acme", "admin-1")
	s.Require().NoError(err)
	s.tenant = created

	s.redis = miniredis.RunT(s.T())
	client := redis.NewClient(&redis.Options{Addr: s.redis.Addr()})
	s.T().Cleanup(func() { _ = client.Close() })

	s.tenants = tenants
	s.answers = block.NewRedisAnswerCache(client)
	s.repo = block.NewInMemoryRepository()
	s.service = block.NewService(s.repo, s.answers, tenants, s.metrics, logger)
}

// TestBlockLifecycle covers block, duplicate block, unblock and re-block.
func (s *BlockServiceSuite) TestBlockLifecycle() {
	entry, err := s.service.Block(s.ctx, s.tenant.ID, "999-888-7776", "admin-1", "")
	s.Require().NoError(err)
	s.True(entry.IsActive)
	s.Equal(phone, entry.PhoneNumber)
	s.Equal(constants.DefaultBlockReason, entry.Reason)

	blocked, err := s.service.IsBlocked(s.ctx, s.tenant.ID, phone)
	s.Require().NoError(err)
	s.True(blocked)

	_, err = s.service.Block(s.ctx, s.tenant.ID, phone, "admin-1", "again")
	s.ErrorIs(err, block.ErrAlreadyBlocked)

	active, err := s.service.ListActive(s.ctx, s.tenant.ID)
	s.Require().NoError(err)
	s.Len(active, 1)

	unblocked, err := s.service.Unblock(s.ctx, s.tenant.ID, phone, "admin-2")
	s.Require().NoError(err)
	s.False(unblocked.IsActive)
	s.Require().NotNil(unblocked.UnblockedBy)
	s.Equal("admin-2", *unblocked.UnblockedBy)
	s.NotNil(unblocked.UnblockedAt)

	blocked, err = s.service.IsBlocked(s.ctx, s.tenant.ID, phone)
	s.Require().NoError(err)
	s.False(blocked)

	_, err = s.service.Unblock(s.ctx, s.tenant.ID, phone, "admin-2")
	s.ErrorIs(err, block.ErrNotBlocked)

	_, err = s.service.Block(s.ctx, s.tenant.ID, phone, "admin-1", "spam")
	s.Require().NoError(err)

	history, err := s.service.History(s.ctx, s.tenant.ID, phone)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.False(history[0].IsActive)
	s.True(history[1].IsActive)
	s.Equal("spam", history[1].Reason)
	s.Equal(2.0, testutil.ToFloat64(s.metrics.BlockChanges.WithLabelValues("block")))
}

// TestConcurrentBlock leaves exactly one active entry per pair.
func (s *BlockServiceSuite) TestConcurrentBlock() {
	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.service.Block(s.ctx, s.tenant.ID, phone, "admin-1", ""); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(1, succeeded)
	active, err := s.service.ListActive(s.ctx, s.tenant.ID)
	s.Require().NoError(err)
	s.Len(active, 1)
}

// TestValidation rejects unknown tenants and malformed phones.
func (s *BlockServiceSuite) TestValidation() {
	_, err := s.service.Block(s.ctx, "missing", phone, "admin-1", "")
	s.ErrorIs(err, tenant.ErrTenantNotFound)

	_, err = s.service.Block(s.ctx, s.tenant.ID, "12345", "admin-1", "")
	s.ErrorIs(err, identity.ErrInvalidPhoneFormat)

	_, err = s.service.ListActive(s.ctx, "missing")
	s.ErrorIs(err, tenant.ErrTenantNotFound)
}

// TestAnswerCache verifies the cached answer is used and written through.
func (s *BlockServiceSuite) TestAnswerCache() {
	key := constants.RedisPrefixBlocked + s.tenant.ID + ":" + phone

	blocked, err := s.service.IsBlocked(s.ctx, s.tenant.ID, phone)
	s.Require().NoError(err)
	s.False(blocked)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.BlockCacheLookups.WithLabelValues("miss")))

	value, err := s.redis.Get(key)
	s.Require().NoError(err)
	s.Equal("0:0", value)

	_, err = s.service.Block(s.ctx, s.tenant.ID, phone, "admin-1", "")
	s.Require().NoError(err)

	value, err = s.redis.Get(key)
	s.Require().NoError(err)
	s.Equal("1:1", value)

	blocked, err = s.service.IsBlocked(s.ctx, s.tenant.ID, phone)
	s.Require().NoError(err)
	s.True(blocked)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.BlockCacheLookups.WithLabelValues("hit")))
	s.True(s.redis.TTL(key) > 0)
}

// TestCacheOutageFallsBack keeps enforcing blocks while Redis is down.
func (s *BlockServiceSuite) TestCacheOutageFallsBack() {
	_, err := s.service.Block(s.ctx, s.tenant.ID, phone, "admin-1", "")
	s.Require().NoError(err)

	s.redis.Close()

	blocked, err := s.service.IsBlocked(s.ctx, s.tenant.ID, phone)
	s.Require().NoError(err)
	s.True(blocked)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.BlockCacheLookups.WithLabelValues("error")))
}

// TestUnblockRacingReblock delays the cache write of an unblock until a
// re-block of the same pair has committed and cached its own answer.
func (s *BlockServiceSuite) TestUnblockRacingReblock() {
	key := constants.RedisPrefixBlocked + s.tenant.ID + ":" + phone
	gated := &gatedAnswers{
		AnswerCache: s.answers,
		parked:      make(chan struct{}),
		release:     make(chan struct{}),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := block.NewService(s.repo, gated, s.tenants, s.metrics, logger)

	_, err := service.Block(s.ctx, s.tenant.ID, phone, "admin-1", "")
	s.Require().NoError(err)

	done := make(chan error, 1)
	go func() {
		_, err := service.Unblock(s.ctx, s.tenant.ID, phone, "admin-2")
		done <- err
	}()

	<-gated.parked
	_, err = service.Block(s.ctx, s.tenant.ID, phone, "admin-1", "again")
	s.Require().NoError(err)
	close(gated.release)
	s.Require().NoError(<-done)

	blocked, err := service.IsBlocked(s.ctx, s.tenant.ID, phone)
	s.Require().NoError(err)
	s.True(blocked)

	value, err := s.redis.Get(key)
	s.Require().NoError(err)
	s.Equal("3:1", value)
}

// TestPutKeepsNewestVersion drops a write older than the cached state.
func (s *BlockServiceSuite) TestPutKeepsNewestVersion() {
	s.Require().NoError(s.answers.Put(s.ctx, s.tenant.ID, phone, block.State{Blocked: true, Version: 1}))
	s.Require().NoError(s.answers.Put(s.ctx, s.tenant.ID, phone, block.State{Blocked: false, Version: 0}))
	s.Require().NoError(s.answers.Put(s.ctx, s.tenant.ID, phone, block.State{Blocked: false, Version: 1}))

	blocked, found, err := s.answers.Get(s.ctx, s.tenant.ID, phone)
	s.Require().NoError(err)
	s.True(found)
	s.True(blocked)

	s.Require().NoError(s.answers.Put(s.ctx, s.tenant.ID, phone, block.State{Blocked: false, Version: 2}))
	blocked, found, err = s.answers.Get(s.ctx, s.tenant.ID, phone)
	s.Require().NoError(err)
	s.True(found)
	s.False(blocked)

	// An unversioned value reads as a miss and is replaced by the next put.
	key := constants.RedisPrefixBlocked + s.tenant.ID + ":" + phone
	s.Require().NoError(s.redis.Set(key, "1"))
	_, found, err = s.answers.Get(s.ctx, s.tenant.ID, phone)
	s.Require().NoError(err)
	s.False(found)
	s.Require().NoError(s.answers.Put(s.ctx, s.tenant.ID, phone, block.State{Version: 2}))
	value, err := s.redis.Get(key)
	s.Require().NoError(err)
	s.Equal("2:0", value)
}

// gatedAnswers parks the first put of an unblocked state.
type gatedAnswers struct {
	block.AnswerCache
	once    sync.Once
	parked  chan struct{}
	release chan struct{}
}

func (answers *gatedAnswers) Put(context context.Context, tenantID, phoneNumber string, state block.State) error {
	if !state.Blocked {
		answers.once.Do(func() {
			close(answers.parked)
			<-answers.release
		})
	}
	return answers.AnswerCache.Put(context, tenantID, phoneNumber, state)
}
