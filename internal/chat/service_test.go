// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chat_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"github.com/taibuivan/helpline/internal/block"
	"github.com/taibuivan/helpline/internal/chat"
	"github.com/taibuivan/helpline/internal/identity"
	"github.com/taibuivan/helpline/internal/message"
	"github.com/taibuivan/helpline/internal/platform/apperr"
	"github.com/taibuivan/helpline/internal/platform/constants"
	"github.com/taibuivan/helpline/internal/platform/events"
	"github.com/taibuivan/helpline/internal/platform/metrics"
	"github.com/taibuivan/helpline/internal/platform/sec"
	"github.com/taibuivan/helpline/internal/tenant"
	"github.com/taibuivan/helpline/internal/visibility"
	"github.com/taibuivan/helpline/pkg/pagination"
	"github.com/taibuivan/helpline/pkg/uuid"
)

const userPhone = "9998887776"

type ChatServiceSuite struct {
	suite.Suite
	ctx       context.Context
	accounts  *identity.InMemoryRepository
	messages  *message.InMemoryRepository
	publisher *events.Recorder
	metrics   *metrics.Metrics
	service   *chat.Service

	a1, a2, s1 identity.Principal
	acme       *tenant.Tenant
}

func TestChatServiceSuite(t *testing.T) {
	suite.Run(t, new(ChatServiceSuite))
}

func (s *ChatServiceSuite) SetupTest() {
	s.ctx = context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.metrics = metrics.New(prometheus.NewRegistry())

	s.accounts = identity.NewInMemoryRepository()
	s.a1 = s.staff("A1", "5550000001", sec.RoleAdmin)
	s.a2 = s.staff("A2", "5550000002", sec.RoleAdmin)
	s.s1 = s.staff("S1", "5550000003", sec.RoleSuperAdmin)

	tenants := tenant.NewService(tenant.NewInMemoryRepository(), nil, s.metrics, logger)
	blocks := block.NewService(block.NewInMemoryRepository(), nil, tenants, s.metrics, logger)
	s.messages = message.NewInMemoryRepository(tenants)
	s.publisher = &events.Recorder{}

	cursors, err := pagination.NewCodec([]byte("test-cursor-secret"))
	s.Require().NoError(err)

	s.service = chat.NewService(chat.Dependencies{
		Accounts:  s.accounts,
		Tenants:   tenants,
		Blocks:    blocks,
		Messages:  s.messages,
		Deduper:   chat.NewInMemoryDeduper(),
		Cursors:   cursors,
		Publisher: s.publisher,
		Metrics:   s.metrics,
		Logger:    logger,
	})

	s.acme, err = s.service.CreateTenant(s.ctx, s.a1, "acme")
	s.Require().NoError(err)
}

func (s *ChatServiceSuite) staff(name, phone string, role sec.Role) identity.Principal {
	account := &identity.Account{ID: uuid.New(), Name: name, PhoneNumber: phone, Role: role}
	s.Require().NoError(s.accounts.Create(s.ctx, account))
	return account.Principal()
}

// user is the caller of an end-user of acme.
func (s *ChatServiceSuite) user(phone string) chat.Caller {
	return chat.Caller{TenantRef: "acme", Role: "user", PhoneNumber: phone}
}

// as is the caller of a staff account in acme.
func (s *ChatServiceSuite) as(principal identity.Principal) chat.Caller {
	return chat.Caller{TenantRef: s.acme.ID, Role: string(principal.Role), AccountID: principal.AccountID}
}

func (s *ChatServiceSuite) send(caller chat.Caller, content string) (*chat.SendResult, error) {
	return s.service.SendMessage(s.ctx, chat.SendRequest{Caller: caller, Content: content})
}

func (s *ChatServiceSuite) visible(caller chat.Caller) []*message.Message {
	result, err := s.service.ListMessages(s.ctx, chat.ListRequest{Caller: caller, Limit: pagination.MaxLimit})
	s.Require().NoError(err)
	return result.Messages
}

// TestAcmeScenario walks the reference example end to end.
func (s *ChatServiceSuite) TestAcmeScenario() {
	sent, err := s.send(s.user(userPhone), "hello")
	s.Require().NoError(err)
	s.Equal(identity.External(s.acme.ID, userPhone), sent.Message.Sender)

	s.Len(s.visible(s.as(s.a1)), 1)
	s.Len(s.visible(s.as(s.s1)), 1)

	_, err = s.service.ListMessages(s.ctx, chat.ListRequest{Caller: s.as(s.a2)})
	s.ErrorIs(err, visibility.ErrNotAssigned)
	s.True(apperr.HasCode(err, apperr.CodeForbidden))

	_, err = s.service.BlockUser(s.ctx, s.a1, s.acme.ID, userPhone, "abuse")
	s.Require().NoError(err)

	_, err = s.send(s.user(userPhone), "are you there?")
	s.True(apperr.HasCode(err, apperr.CodeSenderBlocked))

	messages := s.visible(s.as(s.s1))
	s.Require().Len(messages, 1)
	s.Equal("hello", messages[0].Body)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.SendRejected.WithLabelValues(apperr.CodeSenderBlocked)))
}

// TestIdentityDeterminism resolves differently formatted phones to one thread.
func (s *ChatServiceSuite) TestIdentityDeterminism() {
	_, err := s.send(s.user("(999) 888-7776"), "one")
	s.Require().NoError(err)
	_, err = s.send(s.user("999.888.7776"), "two")
	s.Require().NoError(err)
	_, err = s.send(chat.Caller{TenantRef: "ACME", Role: "USER", PhoneNumber: " 9998887776 "}, "three")
	s.Require().NoError(err)

	thread := s.visible(s.user(userPhone))
	s.Len(thread, 3)
	for _, msg := range thread {
		s.True(msg.Sender.Is(identity.External(s.acme.ID, userPhone)))
	}
}

// TestAdminScoping grants and limits admin reads by assignment.
func (s *ChatServiceSuite) TestAdminScoping() {
	_, err := s.send(s.user(userPhone), "hello")
	s.Require().NoError(err)

	_, err = s.service.ListMessages(s.ctx, chat.ListRequest{Caller: s.as(s.a2)})
	s.ErrorIs(err, visibility.ErrNotAssigned)

	_, err = s.service.AddAdmin(s.ctx, s.a1, s.acme.ID, s.a2.AccountID)
	s.Require().NoError(err)
	s.Len(s.visible(s.as(s.a2)), 1)

	// A message between A1 and S1 is not A2's business.
	_, err = s.service.SendMessage(s.ctx, chat.SendRequest{
		Caller: s.as(s.a1), ReceiverRef: s.s1.AccountID, Content: "internal note",
	})
	s.Require().NoError(err)
	s.Len(s.visible(s.as(s.a2)), 1)
	s.Len(s.visible(s.as(s.a1)), 2)
	s.Len(s.visible(s.as(s.s1)), 2)
	s.Len(s.visible(s.user(userPhone)), 1)

	_, err = s.service.AddAdmin(s.ctx, s.a1, s.acme.ID, s.a2.AccountID)
	s.ErrorIs(err, tenant.ErrAlreadyAdmin)

	_, err = s.service.AddAdmin(s.ctx, s.a1, s.acme.ID, uuid.New())
	s.ErrorIs(err, identity.ErrAccountNotFound)
}

// TestThreadIsolation keeps end-users out of each other's threads.
func (s *ChatServiceSuite) TestThreadIsolation() {
	_, err := s.send(s.user(userPhone), "mine")
	s.Require().NoError(err)
	_, err = s.send(s.user("1112223333"), "theirs")
	s.Require().NoError(err)

	reply, err := s.service.SendMessage(s.ctx, chat.SendRequest{
		Caller: s.as(s.a1), ReceiverRef: "111-222-3333", Content: "reply",
	})
	s.Require().NoError(err)
	s.Equal([]identity.Principal{identity.External(s.acme.ID, "1112223333")}, reply.Message.Receivers)

	mine := s.visible(s.user(userPhone))
	s.Require().Len(mine, 1)
	s.Equal("mine", mine[0].Body)

	theirs := s.visible(s.user("1112223333"))
	s.Len(theirs, 2)

	other, err := s.service.CreateTenant(s.ctx, s.s1, "globex")
	s.Require().NoError(err)
	_, err = s.service.ListMessages(s.ctx, chat.ListRequest{
		Caller: chat.Caller{TenantRef: other.ID, Role: "user", PhoneNumber: userPhone},
	})
	s.Require().NoError(err)
}

// TestReceivers covers receiverRef resolution.
func (s *ChatServiceSuite) TestReceivers() {
	tests := []struct {
		name   string
		caller chat.Caller
		ref    string
		err    error
	}{
		{"staff must name a receiver", s.as(s.a1), "", chat.ErrReceiverRequired},
		{"end-users cannot address end-users", s.user(userPhone), "1112223333", chat.ErrUserToUser},
		{"unknown account", s.as(s.a1), uuid.New(), chat.ErrUnknownReceiver},
		{"unassigned admin", s.as(s.a1), s.a2.AccountID, chat.ErrUnknownReceiver},
		{"garbage reference", s.as(s.a1), "not-a-phone", chat.ErrUnknownReceiver},
		{"end-user to assigned admin", s.user(userPhone), s.a1.AccountID, nil},
		{"end-user to superadmin", s.user(userPhone), s.s1.AccountID, nil},
		{"admin to end-user", s.as(s.a1), userPhone, nil},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.SendMessage(s.ctx, chat.SendRequest{Caller: tt.caller, ReceiverRef: tt.ref, Content: "x"})
			if tt.err != nil {
				s.ErrorIs(err, tt.err)
				return
			}
			s.NoError(err)
		})
	}
}

// TestSendValidation rejects malformed payloads before anything is stored.
func (s *ChatServiceSuite) TestSendValidation() {
	_, err := s.send(s.user(userPhone), "  ")
	s.True(apperr.HasCode(err, apperr.CodeInvalidInput))

	_, err = s.send(chat.Caller{TenantRef: "nope", Role: "user", PhoneNumber: userPhone}, "hi")
	s.ErrorIs(err, tenant.ErrTenantNotFound)

	_, err = s.send(s.user("12345"), "hi")
	s.ErrorIs(err, identity.ErrInvalidPhoneFormat)

	_, err = s.send(chat.Caller{TenantRef: "acme", Role: "admin", AccountID: s.s1.AccountID}, "hi")
	s.ErrorIs(err, identity.ErrRoleMismatch)

	metadata := map[string]string{}
	for i := 0; i < 21; i++ {
		metadata[fmt.Sprintf("k%d", i)] = "v"
	}
	_, err = s.service.SendMessage(s.ctx, chat.SendRequest{Caller: s.user(userPhone), Content: "hi", Metadata: metadata})
	s.True(apperr.HasCode(err, apperr.CodeInvalidInput))

	s.Empty(s.visible(s.as(s.s1)))
}

// TestTenantStatusGatesWrites refuses end-users on inactive tenants and
// admins on suspended ones.
func (s *ChatServiceSuite) TestTenantStatusGatesWrites() {
	_, err := s.service.SetTenantStatus(s.ctx, s.s1, s.acme.ID, tenant.StatusInactive)
	s.Require().NoError(err)

	_, err = s.send(s.user(userPhone), "hi")
	s.ErrorIs(err, visibility.ErrTenantClosed)

	_, err = s.service.SendMessage(s.ctx, chat.SendRequest{Caller: s.as(s.a1), ReceiverRef: userPhone, Content: "we are closed"})
	s.NoError(err)

	updated, err := s.service.SetTenantStatus(s.ctx, s.s1, s.acme.ID, tenant.StatusSuspended)
	s.Require().NoError(err)
	s.Equal(tenant.StatusSuspended, updated.Status)

	_, err = s.service.SendMessage(s.ctx, chat.SendRequest{Caller: s.as(s.a1), ReceiverRef: userPhone, Content: "still here"})
	s.ErrorIs(err, visibility.ErrTenantSuspended)

	_, err = s.service.SetTenantStatus(s.ctx, s.a1, s.acme.ID, tenant.StatusActive)
	s.ErrorIs(err, chat.ErrSuperAdminOnly)
}

// TestBlockEnforcement is scoped to the tenant and lifted by unblock.
func (s *ChatServiceSuite) TestBlockEnforcement() {
	globex, err := s.service.CreateTenant(s.ctx, s.a1, "globex")
	s.Require().NoError(err)

	_, err = s.service.BlockUser(s.ctx, s.a1, s.acme.ID, userPhone, "")
	s.Require().NoError(err)

	_, err = s.send(s.user(userPhone), "blocked")
	s.ErrorIs(err, visibility.ErrSenderBlocked)

	_, err = s.send(chat.Caller{TenantRef: globex.ID, Role: "user", PhoneNumber: userPhone}, "elsewhere")
	s.NoError(err)

	_, err = s.service.BlockUser(s.ctx, s.a2, s.acme.ID, userPhone, "")
	s.ErrorIs(err, visibility.ErrNotAssigned)

	blocked, err := s.service.ListBlocked(s.ctx, s.s1, s.acme.ID)
	s.Require().NoError(err)
	s.Len(blocked, 1)

	_, err = s.service.UnblockUser(s.ctx, s.a1, s.acme.ID, userPhone)
	s.Require().NoError(err)

	_, err = s.send(s.user(userPhone), "back")
	s.NoError(err)

	history, err := s.service.BlockHistory(s.ctx, s.a1, s.acme.ID, userPhone)
	s.Require().NoError(err)
	s.Len(history, 1)
	s.False(history[0].IsActive)

	s.Len(s.publisher.OfType(constants.EventUserBlocked), 1)
	s.Len(s.publisher.OfType(constants.EventUserUnblocked), 1)
}

// TestConcurrentBlocks leaves a single active entry.
func (s *ChatServiceSuite) TestConcurrentBlocks() {
	var wg sync.WaitGroup
	var mu sync.Mutex
	conflicts := 0

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(actor identity.Principal) {
			defer wg.Done()
			_, err := s.service.BlockUser(s.ctx, actor, s.acme.ID, userPhone, "")
			if errors.Is(err, block.ErrAlreadyBlocked) {
				mu.Lock()
				conflicts++
				mu.Unlock()
			}
		}([]identity.Principal{s.a1, s.s1}[i%2])
	}
	wg.Wait()

	s.Equal(9, conflicts)
	blocked, err := s.service.ListBlocked(s.ctx, s.a1, s.acme.ID)
	s.Require().NoError(err)
	s.Len(blocked, 1)
}

// TestPaginationStability pages while messages keep arriving.
func (s *ChatServiceSuite) TestPaginationStability() {
	for i := 0; i < 45; i++ {
		_, err := s.send(s.user(userPhone), fmt.Sprintf("m%02d", i))
		s.Require().NoError(err)
	}

	seen := map[string]bool{}
	var last *message.Message
	cursor := ""
	for pages := 0; ; pages++ {
		s.Require().Less(pages, 20)

		result, err := s.service.ListMessages(s.ctx, chat.ListRequest{Caller: s.as(s.a1), Cursor: cursor, Limit: 10})
		s.Require().NoError(err)

		for _, msg := range result.Messages {
			s.False(seen[msg.ID], "duplicate %s", msg.Body)
			seen[msg.ID] = true
			if last != nil {
				s.True(msg.Position().After(last.Position()))
			}
			last = msg
		}

		if pages == 1 {
			_, err := s.send(s.user("1112223333"), "late")
			s.Require().NoError(err)
		}
		if result.NextCursor == nil {
			break
		}
		cursor = *result.NextCursor
	}

	s.Len(seen, 46)
	s.Equal("late", last.Body)
}

// TestInvalidCursor rejects edited tokens and tokens issued to another viewer.
func (s *ChatServiceSuite) TestInvalidCursor() {
	_, err := s.service.ListMessages(s.ctx, chat.ListRequest{Caller: s.as(s.a1), Cursor: "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"})
	s.ErrorIs(err, message.ErrInvalidCursor)

	for i := 0; i < 3; i++ {
		_, err := s.send(s.user(userPhone), fmt.Sprintf("m%d", i))
		s.Require().NoError(err)
	}

	first, err := s.service.ListMessages(s.ctx, chat.ListRequest{Caller: s.as(s.a1), Limit: 1})
	s.Require().NoError(err)
	s.Require().NotNil(first.NextCursor)

	_, err = s.service.ListMessages(s.ctx, chat.ListRequest{Caller: s.as(s.a1), Cursor: *first.NextCursor, Limit: 1})
	s.Require().NoError(err)

	_, err = s.service.ListMessages(s.ctx, chat.ListRequest{Caller: s.as(s.s1), Cursor: *first.NextCursor, Limit: 1})
	s.ErrorIs(err, message.ErrInvalidCursor)

	thread, err := s.service.ListMessages(s.ctx, chat.ListRequest{Caller: s.user(userPhone), Limit: 1})
	s.Require().NoError(err)
	s.Require().NotNil(thread.NextCursor)

	_, err = s.service.ListMessages(s.ctx, chat.ListRequest{Caller: s.user("1112223333"), Cursor: *thread.NextCursor, Limit: 1})
	s.ErrorIs(err, message.ErrInvalidCursor)
}

// TestResendDeduplication answers a repeated clientMessageId with the original.
func (s *ChatServiceSuite) TestResendDeduplication() {
	request := chat.SendRequest{Caller: s.user(userPhone), Content: "hello", ClientMessageID: "c-1"}

	first, err := s.service.SendMessage(s.ctx, request)
	s.Require().NoError(err)
	s.False(first.Duplicate)

	again, err := s.service.SendMessage(s.ctx, request)
	s.Require().NoError(err)
	s.True(again.Duplicate)
	s.Equal(first.Message.ID, again.Message.ID)

	other, err := s.service.SendMessage(s.ctx, chat.SendRequest{Caller: s.user("1112223333"), Content: "hello", ClientMessageID: "c-1"})
	s.Require().NoError(err)
	s.False(other.Duplicate)

	s.Len(s.visible(s.as(s.s1)), 2)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.MessagesDeduplicated))

	_, err = s.service.BlockUser(s.ctx, s.a1, s.acme.ID, userPhone, "")
	s.Require().NoError(err)
	_, err = s.service.SendMessage(s.ctx, request)
	s.ErrorIs(err, visibility.ErrSenderBlocked)
}

// TestMarkRead records receipts for visible messages only.
func (s *ChatServiceSuite) TestMarkRead() {
	sent, err := s.send(s.user(userPhone), "hello")
	s.Require().NoError(err)

	s.Require().NoError(s.service.MarkRead(s.ctx, s.as(s.a1), sent.Message.ID))
	s.Require().NoError(s.service.MarkRead(s.ctx, s.as(s.a1), sent.Message.ID))

	read := s.visible(s.as(s.a1))
	s.Require().Len(read, 1)
	s.NotNil(read[0].ReadAt)

	unread := s.visible(s.as(s.s1))
	s.Require().Len(unread, 1)
	s.Nil(unread[0].ReadAt)

	err = s.service.MarkRead(s.ctx, s.user("1112223333"), sent.Message.ID)
	s.ErrorIs(err, message.ErrMessageNotFound)

	err = s.service.MarkRead(s.ctx, s.as(s.a1), "not-an-id")
	s.ErrorIs(err, message.ErrMessageNotFound)
}

// TestAnalytics counts messages per live tenant.
func (s *ChatServiceSuite) TestAnalytics() {
	_, err := s.service.CreateTenant(s.ctx, s.s1, "globex")
	s.Require().NoError(err)
	for i := 0; i < 3; i++ {
		_, err := s.send(s.user(userPhone), "hi")
		s.Require().NoError(err)
	}

	report, err := s.service.Analytics(s.ctx, s.s1)
	s.Require().NoError(err)
	s.Equal(2, report.Tenants)
	s.Equal(int64(3), report.Messages)

	perTenant := map[string]int64{}
	for _, row := range report.PerTenant {
		perTenant[row.Name] = row.Messages
	}
	s.Equal(map[string]int64{"acme": 3, "globex": 0}, perTenant)

	s.Equal(int64(4), report.TotalUsers)
	s.Equal(map[string]int64{"user": 1, "admin": 2, "superadmin": 1}, report.UsersByRole)

	_, err = s.service.Analytics(s.ctx, s.a1)
	s.ErrorIs(err, chat.ErrSuperAdminOnly)
}

// TestEvents publishes appended messages and survives broker failures.
func (s *ChatServiceSuite) TestEvents() {
	sent, err := s.send(s.user(userPhone), "hello")
	s.Require().NoError(err)

	appended := s.publisher.OfType(constants.EventMessageAppended)
	s.Require().Len(appended, 1)

	var payload chat.MessageAppended
	s.Require().NoError(json.Unmarshal(appended[0].Data, &payload))
	s.Equal(sent.Message.ID, payload.MessageID)
	s.Equal(s.acme.ID+":"+userPhone, payload.SenderKey)

	s.publisher.Err = errors.New("broker down")
	_, err = s.send(s.user(userPhone), "still stored")
	s.NoError(err)
	s.Len(s.visible(s.as(s.s1)), 2)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.EventsPublished.WithLabelValues(constants.EventMessageAppended, "error")))
}

// TestTenantManagement covers listing, lookup and deletion.
func (s *ChatServiceSuite) TestTenantManagement() {
	_, err := s.service.CreateTenant(s.ctx, s.a2, "ACME")
	s.ErrorIs(err, tenant.ErrDuplicateName)

	_, err = s.service.CreateTenant(s.ctx, identity.External(s.acme.ID, userPhone), "other")
	s.ErrorIs(err, visibility.ErrStaffOnly)

	own, err := s.service.ListTenants(s.ctx, s.a1)
	s.Require().NoError(err)
	s.Len(own, 1)

	none, err := s.service.ListTenants(s.ctx, s.a2)
	s.Require().NoError(err)
	s.Empty(none)

	_, err = s.service.GetTenant(s.ctx, s.a2, s.acme.ID)
	s.ErrorIs(err, visibility.ErrNotAssigned)

	_, err = s.service.AddAdmin(s.ctx, s.a1, s.acme.ID, s.a2.AccountID)
	s.Require().NoError(err)
	detail, err := s.service.GetTenant(s.ctx, s.s1, s.acme.ID)
	s.Require().NoError(err)
	s.Require().Len(detail.Admins, 2)
	s.Equal("A1", detail.Admins[0].Name)
	s.Equal("5550000001", detail.Admins[0].PhoneNumber)
	s.Equal(s.a2.AccountID, detail.Admins[1].AccountID)
	s.Equal("A2", detail.Admins[1].Name)

	// A deleted account keeps its assignment but loses its details.
	s.Require().NoError(s.accounts.Delete(s.ctx, s.a2.AccountID))
	detail, err = s.service.GetTenant(s.ctx, s.a1, s.acme.ID)
	s.Require().NoError(err)
	s.Require().Len(detail.Admins, 2)
	s.Equal(s.a2.AccountID, detail.Admins[1].AccountID)
	s.Empty(detail.Admins[1].Name)

	s.ErrorIs(s.service.DeleteTenant(s.ctx, s.a1, s.acme.ID), chat.ErrSuperAdminOnly)
	s.Require().NoError(s.service.DeleteTenant(s.ctx, s.s1, s.acme.ID))

	_, err = s.send(s.user(userPhone), "hello?")
	s.ErrorIs(err, tenant.ErrTenantNotFound)
}
