package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"evohome_gateway/internal/models"
	"evohome_gateway/internal/service"
)

func postJSON(t *testing.T, s *service.Service, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	newTestRouter(s).ServeHTTP(w, req)
	return w
}

func TestSignUp(t *testing.T) {
	cases := []struct {
		name      string
		body      string
		repoErr   error
		wantCode  int
		wantCalls bool
	}{
		{name: "created", body: `{"username":"installer","password":"s3cret-pass"}`, wantCode: http.StatusCreated, wantCalls: true},
		{name: "short password", body: `{"username":"installer","password":"short"}`, wantCode: http.StatusBadRequest},
		{name: "short username", body: `{"username":"ab","password":"s3cret-pass"}`, wantCode: http.StatusBadRequest},
		{name: "password beyond bcrypt limit", body: fmt.Sprintf(`{"username":"installer","password":%q}`, strings.Repeat("x", 73)), wantCode: http.StatusBadRequest},
		{name: "missing fields", body: `{}`, wantCode: http.StatusBadRequest},
		{name: "store failure", body: `{"username":"installer","password":"s3cret-pass"}`, repoErr: errors.New("UNIQUE constraint failed"), wantCode: http.StatusInternalServerError, wantCalls: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := &mockAuth{signUpID: 42, signUpErr: tc.repoErr}
			w := postJSON(t, &service.Service{Authorization: auth}, "/auth/sign-up", tc.body)

			if w.Code != tc.wantCode {
				t.Fatalf("status=%d, want %d, body=%s", w.Code, tc.wantCode, w.Body.String())
			}
			if called := auth.lastSignUpUsername != ""; called != tc.wantCalls {
				t.Fatalf("SignUp called=%v, want %v", called, tc.wantCalls)
			}
			if tc.wantCode == http.StatusCreated {
				var m map[string]int
				if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil || m["id"] != 42 {
					t.Fatalf("unexpected body %s (err=%v)", w.Body.String(), err)
				}
			}
			if tc.repoErr != nil && strings.Contains(w.Body.String(), "UNIQUE") {
				t.Fatalf("store error leaked to client: %s", w.Body.String())
			}
		})
	}
}

func TestSignIn(t *testing.T) {
	expires := time.Date(2025, 1, 1, 13, 0, 0, 0, time.UTC)
	issued := models.OperatorToken{Token: "tok123", TokenType: models.TokenTypeBearer, ExpiresAt: expires}

	cases := []struct {
		name     string
		body     string
		genErr   error
		wantCode int
	}{
		{name: "token issued", body: `{"username":"installer","password":"s3cret-pass"}`, wantCode: http.StatusOK},
		{name: "unknown operator", body: `{"username":"ghost","password":"pw"}`, genErr: service.ErrOperatorNotFound, wantCode: http.StatusUnauthorized},
		{name: "wrong password", body: `{"username":"installer","password":"nope"}`, genErr: service.ErrInvalidPassword, wantCode: http.StatusUnauthorized},
		{name: "store failure", body: `{"username":"installer","password":"pw"}`, genErr: errors.New("database is locked"), wantCode: http.StatusInternalServerError},
		{name: "wrong field type", body: `{"username":1}`, wantCode: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := &mockAuth{genToken: issued, genTokenErr: tc.genErr}
			w := postJSON(t, &service.Service{Authorization: auth}, "/auth/sign-in", tc.body)

			if w.Code != tc.wantCode {
				t.Fatalf("status=%d, want %d, body=%s", w.Code, tc.wantCode, w.Body.String())
			}
			switch tc.wantCode {
			case http.StatusOK:
				var got models.OperatorToken
				if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
					t.Fatalf("unmarshal: %v", err)
				}
				if got.Token != "tok123" || got.TokenType != "Bearer" || !got.ExpiresAt.Equal(expires) {
					t.Fatalf("unexpected token: %+v", got)
				}
			case http.StatusUnauthorized:
				// unknown operator and wrong password are indistinguishable to the client
				if !strings.Contains(w.Body.String(), errInvalidCredentials) {
					t.Fatalf("unexpected body: %s", w.Body.String())
				}
			}
		})
	}
}
