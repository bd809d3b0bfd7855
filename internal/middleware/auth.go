package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/aditya/go-dispatch/internal/errors"
	"github.com/aditya/go-dispatch/internal/models"
	"github.com/aditya/go-dispatch/pkg/utils"
	"github.com/golang-jwt/jwt/v5"
)

// Dev-mode identity headers, honoured only when no JWT secret is configured.
const (
	ActorIDHeader   = "X-Actor-ID"
	ActorRoleHeader = "X-Actor-Role"
)

// Actor is the authenticated caller of a request.
type Actor struct {
	ID   string
	Role models.Role
}

type actorKey struct{}

// WithActor returns a copy of ctx carrying the actor.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the request's actor, if one was authenticated.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}

type Claims struct {
	Subject string `json:"sub"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	secret []byte
	ttl    time.Duration
}

func NewAuthenticator(secret string, ttl time.Duration) *Authenticator {
	return &Authenticator{secret: []byte(secret), ttl: ttl}
}

// DevMode reports whether identity is taken from plain request headers.
func (a *Authenticator) DevMode() bool {
	return len(a.secret) == 0
}

// IssueToken signs a token for the user. It returns "" in dev mode.
func (a *Authenticator) IssueToken(userID string, role models.Role) (string, error) {
	if a.DevMode() {
		return "", nil
	}

	now := time.Now()
	claims := Claims{
		Subject: userID,
		Role:    string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Authenticator) parse(tokenString string) (Actor, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		return Actor{}, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return Actor{}, errors.New("invalid token claims")
	}
	role := models.Role(claims.Role)
	if !role.IsValid() {
		return Actor{}, errors.New("invalid role claim")
	}
	return Actor{ID: claims.Subject, Role: role}, nil
}

// Identify attaches the caller's actor to the request context when the
// request carries credentials. It never rejects; see RequireActor.
func (a *Authenticator) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.DevMode() {
			id := strings.TrimSpace(r.Header.Get(ActorIDHeader))
			role := models.Role(strings.ToLower(strings.TrimSpace(r.Header.Get(ActorRoleHeader))))
			if id != "" && role.IsValid() {
				r = r.WithContext(WithActor(r.Context(), Actor{ID: id, Role: role}))
			}
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			utils.Error(w, apperrors.Unauthorized("authorization header must be a bearer token"))
			return
		}
		actor, err := a.parse(tokenString)
		if err != nil {
			utils.Error(w, apperrors.Unauthorized("invalid or expired token"))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// RequireActor rejects requests without an authenticated actor. When roles
// are given, the actor must hold one of them.
func RequireActor(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				utils.Error(w, apperrors.Unauthorized("authentication required"))
				return
			}
			if len(roles) > 0 && !hasRole(actor.Role, roles) {
				utils.Error(w, apperrors.NotAuthorized("this action requires role "+joinRoles(roles)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func hasRole(role models.Role, allowed []models.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

func joinRoles(roles []models.Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, " or ")
}
