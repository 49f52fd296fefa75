package httppresentation

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/LoiPham2005/backend-doantotnghiep/internal/domain/user"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/observability"
	"github.com/LoiPham2005/backend-doantotnghiep/internal/observability/logctx"
)

const codeUnauthorized = "unauthorized"

// Identity is the authenticated caller. The role comes from the user store,
// never from the token.
type Identity struct {
	UserID string
	Role   user.Role
}

func (id Identity) IsAdmin() bool { return id.Role == user.RoleAdmin }

type identityKey struct{}

func withIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func identityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// IssueToken signs an HS256 access token for userID. Login lives in another
// service; this is used by tooling and tests.
func IssueToken(secret []byte, userID string, ttl time.Duration, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// authenticate verifies the bearer token, loads the user it names and stores
// the identity on the request context.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(h.now),
	)
	keyFunc := func(*jwt.Token) (any, error) { return h.secret, nil }

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			writeFailure(w, http.StatusUnauthorized, codeUnauthorized, "Không có token", nil)
			return
		}

		var claims jwt.RegisteredClaims
		if _, err := parser.ParseWithClaims(raw, &claims, keyFunc); err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				writeFailure(w, http.StatusUnauthorized, codeUnauthorized, "Token đã hết hạn", map[string]bool{"is_expired": true})
				return
			}
			writeFailure(w, http.StatusUnauthorized, codeUnauthorized, "Token không hợp lệ", nil)
			return
		}

		u, err := h.svc.Users.Get(r.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				writeFailure(w, http.StatusUnauthorized, codeUnauthorized, "Không tìm thấy người dùng", nil)
				return
			}
			h.writeError(w, r, err)
			return
		}

		ctx := withIdentity(r.Context(), Identity{UserID: u.ID, Role: u.Role})
		ctx = logctx.Enrich(ctx, h.log, observability.F("user_id", u.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requireRole(role user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := identityFrom(r.Context())
			if !ok || id.Role != role {
				writeFailure(w, http.StatusForbidden, "forbidden", "Không có quyền truy cập", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
