package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aditya/go-dispatch/internal/logging"
	"github.com/aditya/go-dispatch/internal/models"
)

func actorEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Write([]byte(actor.ID + "/" + string(actor.Role)))
	})
}

func TestIdentifyDevMode(t *testing.T) {
	auth := NewAuthenticator("", time.Hour)
	h := auth.Identify(actorEcho())

	tests := []struct {
		name     string
		id, role string
		wantCode int
		wantBody string
	}{
		{"rider headers", "u1", "rider", http.StatusOK, "u1/rider"},
		{"role is case insensitive", "u2", "Driver", http.StatusOK, "u2/driver"},
		{"unknown role ignored", "u3", "admin", http.StatusNoContent, ""},
		{"no headers", "", "", http.StatusNoContent, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.id != "" {
				req.Header.Set(ActorIDHeader, tt.id)
				req.Header.Set(ActorRoleHeader, tt.role)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode || rec.Body.String() != tt.wantBody {
				t.Errorf("got %d %q, want %d %q", rec.Code, rec.Body.String(), tt.wantCode, tt.wantBody)
			}
		})
	}
}

func TestIdentifyJWT(t *testing.T) {
	auth := NewAuthenticator("test-secret", time.Hour)
	h := auth.Identify(actorEcho())

	token, err := auth.IssueToken("driver-9", models.RoleDriver)
	if err != nil || token == "" {
		t.Fatalf("IssueToken() = %q, %v", token, err)
	}

	other := NewAuthenticator("other-secret", time.Hour)
	forged, _ := other.IssueToken("driver-9", models.RoleDriver)

	expired := NewAuthenticator("test-secret", -time.Minute)
	stale, _ := expired.IssueToken("driver-9", models.RoleDriver)

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantBody string
	}{
		{"valid token", "Bearer " + token, http.StatusOK, "driver-9/driver"},
		{"no header", "", http.StatusNoContent, ""},
		{"not bearer", "Basic abc", http.StatusUnauthorized, ""},
		{"wrong secret", "Bearer " + forged, http.StatusUnauthorized, ""},
		{"expired", "Bearer " + stale, http.StatusUnauthorized, ""},
		{"garbage", "Bearer not.a.token", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestIssueTokenDevMode(t *testing.T) {
	token, err := NewAuthenticator("", time.Hour).IssueToken("u1", models.RoleRider)
	if err != nil || token != "" {
		t.Errorf("IssueToken() in dev mode = %q, %v; want empty", token, err)
	}
}

func TestRequireActor(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := RequireActor(models.RoleDriver)(ok)

	tests := []struct {
		name     string
		actor    *Actor
		wantCode int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"wrong role", &Actor{ID: "r1", Role: models.RoleRider}, http.StatusForbidden},
		{"driver", &Actor{ID: "d1", Role: models.RoleDriver}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.actor != nil {
				req = req.WithContext(WithActor(req.Context(), *tt.actor))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(logging.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestRateLimitSubject(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:5123"
	if got := rateLimitSubject(req); got != "ip:10.0.0.7" {
		t.Errorf("subject = %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.4, 10.0.0.1")
	if got := rateLimitSubject(req); got != "ip:203.0.113.4" {
		t.Errorf("subject with forwarded = %q", got)
	}

	req = req.WithContext(WithActor(req.Context(), Actor{ID: "rider-1", Role: models.RoleRider}))
	if got := rateLimitSubject(req); got != "actor:rider-1" {
		t.Errorf("subject with actor = %q", got)
	}
}
