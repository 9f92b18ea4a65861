// Copyright (c) 2026 Helpline. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chat_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/helpline/internal/chat"
	"github.com/taibuivan/helpline/internal/identity"
	"github.com/taibuivan/helpline/internal/platform/apperr"
	"github.com/taibuivan/helpline/internal/platform/middleware"
	"github.com/taibuivan/helpline/internal/platform/sec"
)

// tokens maps bearer tokens to the claims of a staff account.
type tokens map[string]*sec.AuthClaims

func (t tokens) VerifyToken(token string) (*sec.AuthClaims, error) {
	if claims, ok := t[token]; ok {
		return claims, nil
	}
	return nil, errors.New("unknown token")
}

func (s *ChatServiceSuite) router() http.Handler {
	verifier := tokens{}
	for _, principal := range []identity.Principal{s.a1, s.a2, s.s1} {
		verifier[principal.AccountID] = &sec.AuthClaims{UserID: principal.AccountID, Role: string(principal.Role)}
	}

	handler := chat.NewHandler(s.service)
	router := chi.NewRouter()
	router.Use(middleware.Authenticate(verifier))
	router.Mount("/chat", handler.Routes())
	router.Mount("/tenants", handler.TenantRoutes())
	return router
}

// call performs a request as token (empty for anonymous) and decodes the envelope.
func (s *ChatServiceSuite) call(method, path, token string, body any) (int, map[string]any) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	request := httptest.NewRequest(method, path, reader)
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	s.router().ServeHTTP(recorder, request)

	envelope := map[string]any{}
	if recorder.Body.Len() > 0 {
		s.Require().NoError(json.Unmarshal(recorder.Body.Bytes(), &envelope))
	}
	return recorder.Code, envelope
}

// TestHandlerSend covers created, resend and blocked responses.
func (s *ChatServiceSuite) TestHandlerSend() {
	body := map[string]any{
		"tenantRef": "acme", "role": "user", "phoneNumber": userPhone,
		"content": "hello", "clientMessageId": "c-9",
	}

	status, envelope := s.call(http.MethodPost, "/chat/send", "", body)
	s.Equal(http.StatusCreated, status)
	data := envelope["data"].(map[string]any)
	sent := data["message"].(map[string]any)
	s.Equal("hello", sent["content"])

	status, envelope = s.call(http.MethodPost, "/chat/send", "", body)
	s.Equal(http.StatusOK, status)
	s.Equal(sent["id"], envelope["data"].(map[string]any)["message"].(map[string]any)["id"])

	status, _ = s.call(http.MethodPost, "/tenants/"+s.acme.ID+"/block", s.a1.AccountID, map[string]any{"phoneNumber": userPhone})
	s.Equal(http.StatusCreated, status)

	body["clientMessageId"] = "c-10"
	status, envelope = s.call(http.MethodPost, "/chat/send", "", body)
	s.Equal(http.StatusForbidden, status)
	s.Equal(apperr.CodeSenderBlocked, envelope["error"])

	status, envelope = s.call(http.MethodPost, "/chat/send", "", map[string]any{"tenantRef": "nope", "role": "user", "phoneNumber": userPhone, "content": "x"})
	s.Equal(http.StatusNotFound, status)
	s.Equal(apperr.CodeTenantNotFound, envelope["error"])
}

// TestHandlerAuthBoundary reconciles tokens with body identity fields.
func (s *ChatServiceSuite) TestHandlerAuthBoundary() {
	staffBody := map[string]any{"tenantRef": "acme", "role": "admin", "accountId": s.a1.AccountID}

	status, envelope := s.call(http.MethodPost, "/chat/messages", "", staffBody)
	s.Equal(http.StatusUnauthorized, status)
	s.Equal(apperr.CodeUnauthorized, envelope["error"])

	status, _ = s.call(http.MethodPost, "/chat/messages", s.a1.AccountID, staffBody)
	s.Equal(http.StatusOK, status)

	status, _ = s.call(http.MethodPost, "/chat/messages", s.a2.AccountID, staffBody)
	s.Equal(http.StatusForbidden, status)

	// The token decides the role, not the body.
	status, _ = s.call(http.MethodPost, "/chat/messages", s.s1.AccountID, map[string]any{"tenantRef": "acme", "role": "user", "phoneNumber": userPhone})
	s.Equal(http.StatusOK, status)

	status, _ = s.call(http.MethodPost, "/chat/messages", "forged", staffBody)
	s.Equal(http.StatusUnauthorized, status)
}

// TestHandlerListAndRead pages through messages and marks one read.
func (s *ChatServiceSuite) TestHandlerListAndRead() {
	for _, content := range []string{"one", "two", "three"} {
		_, err := s.send(s.user(userPhone), content)
		s.Require().NoError(err)
	}

	status, envelope := s.call(http.MethodPost, "/chat/messages", s.a1.AccountID, map[string]any{"tenantRef": s.acme.ID, "limit": 2})
	s.Require().Equal(http.StatusOK, status)
	data := envelope["data"].(map[string]any)
	s.Len(data["messages"], 2)
	cursor, ok := data["nextCursor"].(string)
	s.Require().True(ok)

	status, envelope = s.call(http.MethodPost, "/chat/messages", s.a1.AccountID, map[string]any{"tenantRef": s.acme.ID, "limit": 2, "cursor": cursor})
	s.Require().Equal(http.StatusOK, status)
	data = envelope["data"].(map[string]any)
	messages := data["messages"].([]any)
	s.Require().Len(messages, 1)
	s.Nil(data["nextCursor"])

	id := messages[0].(map[string]any)["id"].(string)
	status, _ = s.call(http.MethodPost, "/chat/messages/"+id+"/read", "", map[string]any{"tenantRef": "acme", "role": "user", "phoneNumber": userPhone})
	s.Equal(http.StatusNoContent, status)

	status, envelope = s.call(http.MethodPost, "/chat/messages", "", map[string]any{"tenantRef": "acme", "role": "user", "phoneNumber": userPhone, "cursor": "garbage"})
	s.Equal(http.StatusBadRequest, status)
	s.Equal(apperr.CodeInvalidCursor, envelope["error"])
}

// TestHandlerTenants covers the management surface.
func (s *ChatServiceSuite) TestHandlerTenants() {
	status, envelope := s.call(http.MethodPost, "/tenants", s.a2.AccountID, map[string]any{"name": "Globex"})
	s.Require().Equal(http.StatusCreated, status)
	globexID := envelope["data"].(map[string]any)["tenant"].(map[string]any)["id"].(string)

	status, envelope = s.call(http.MethodPost, "/tenants", s.a2.AccountID, map[string]any{"name": " globex "})
	s.Equal(http.StatusConflict, status)
	s.Equal("DUPLICATE_NAME", envelope["error"])

	status, envelope = s.call(http.MethodGet, "/tenants", s.a2.AccountID, nil)
	s.Equal(http.StatusOK, status)
	s.Len(envelope["data"].(map[string]any)["tenants"], 1)

	status, _ = s.call(http.MethodPost, "/tenants/"+globexID+"/admins", s.a2.AccountID, map[string]any{"accountId": s.a1.AccountID})
	s.Equal(http.StatusCreated, status)

	status, envelope = s.call(http.MethodGet, "/tenants/"+globexID, s.a1.AccountID, nil)
	s.Equal(http.StatusOK, status)
	found := envelope["data"].(map[string]any)["tenant"].(map[string]any)
	s.Equal(globexID, found["id"])
	admins := found["admins"].([]any)
	s.Require().Len(admins, 2)
	s.Equal("A2", admins[0].(map[string]any)["name"])
	s.Equal("5550000002", admins[0].(map[string]any)["phoneNumber"])
	s.Equal(s.a1.AccountID, admins[1].(map[string]any)["accountId"])

	status, envelope = s.call(http.MethodPost, "/tenants/"+globexID+"/admins", s.a2.AccountID, map[string]any{"accountId": s.a1.AccountID})
	s.Equal(http.StatusConflict, status)
	s.Equal("ALREADY_ADMIN", envelope["error"])

	status, _ = s.call(http.MethodPost, "/tenants/"+globexID+"/block", s.a1.AccountID, map[string]any{"phoneNumber": userPhone, "reason": "spam"})
	s.Equal(http.StatusCreated, status)

	status, envelope = s.call(http.MethodPost, "/tenants/"+globexID+"/block", s.a1.AccountID, map[string]any{"phoneNumber": userPhone})
	s.Equal(http.StatusConflict, status)
	s.Equal("ALREADY_BLOCKED", envelope["error"])

	status, envelope = s.call(http.MethodGet, "/tenants/"+globexID+"/blocked", s.a2.AccountID, nil)
	s.Equal(http.StatusOK, status)
	s.Len(envelope["data"].(map[string]any)["blockedUsers"], 1)

	status, _ = s.call(http.MethodPost, "/tenants/"+globexID+"/unblock", s.a2.AccountID, map[string]any{"phoneNumber": userPhone})
	s.Equal(http.StatusOK, status)

	status, envelope = s.call(http.MethodPost, "/tenants/"+globexID+"/unblock", s.a2.AccountID, map[string]any{"phoneNumber": userPhone})
	s.Equal(http.StatusNotFound, status)
	s.Equal("NOT_BLOCKED", envelope["error"])

	status, envelope = s.call(http.MethodGet, "/tenants/"+globexID+"/blocked/"+userPhone+"/history", s.a1.AccountID, nil)
	s.Equal(http.StatusOK, status)
	s.Len(envelope["data"].(map[string]any)["entries"], 1)

	status, _ = s.call(http.MethodPatch, "/tenants/"+globexID+"/status", s.a2.AccountID, map[string]any{"status": "inactive"})
	s.Equal(http.StatusForbidden, status)

	status, envelope = s.call(http.MethodPatch, "/tenants/"+globexID+"/status", s.s1.AccountID, map[string]any{"status": "inactive"})
	s.Equal(http.StatusOK, status)
	s.Equal("inactive", envelope["data"].(map[string]any)["tenant"].(map[string]any)["status"])

	status, _ = s.call(http.MethodDelete, "/tenants/"+globexID, s.s1.AccountID, nil)
	s.Equal(http.StatusNoContent, status)

	status, _ = s.call(http.MethodGet, "/tenants/"+globexID, s.s1.AccountID, nil)
	s.Equal(http.StatusNotFound, status)

	status, _ = s.call(http.MethodGet, "/tenants", "", nil)
	s.Equal(http.StatusUnauthorized, status)
}

// TestHandlerAnalytics is reserved for superadmins.
func (s *ChatServiceSuite) TestHandlerAnalytics() {
	status, envelope := s.call(http.MethodGet, "/chat/analytics", s.s1.AccountID, nil)
	s.Equal(http.StatusOK, status)
	s.EqualValues(1, envelope["data"].(map[string]any)["tenants"])

	status, _ = s.call(http.MethodGet, "/chat/analytics", s.a1.AccountID, nil)
	s.Equal(http.StatusForbidden, status)
}
