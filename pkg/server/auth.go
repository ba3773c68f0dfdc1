package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/raterudder/solarbridge/pkg/log"
)

// authMiddleware only lets through requests carrying an id token for the
// configured scheduler service account.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("reqPath", r.URL.Path)))

		if s.bypassAuth {
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			log.Ctx(ctx).WarnContext(ctx, "missing auth header")
			writeJSONError(w, "missing authorization header", http.StatusUnauthorized)
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			log.Ctx(ctx).ErrorContext(ctx, "invalid auth header")
			writeJSONError(w, "invalid auth header", http.StatusBadRequest)
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")

		email, err := s.authenticateToken(ctx, token)
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "update token validation failed", slog.Any("error", err))
			writeJSONError(w, "invalid id token", http.StatusUnauthorized)
			return
		}
		if s.updateEmail == "" || subtle.ConstantTimeCompare([]byte(email), []byte(s.updateEmail)) != 1 {
			log.Ctx(ctx).WarnContext(ctx, "update email mismatch", slog.String("got", email), slog.String("want", s.updateEmail))
			writeJSONError(w, "unauthorized email", http.StatusForbidden)
			return
		}

		log.Ctx(ctx).DebugContext(ctx, "update: authorized", slog.String("email", email))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// idClaims are the id token claims we care about.
type idClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// oidcTokenVerifier adapts an oidc verifier into a tokenVerifier.
func oidcTokenVerifier(v *oidc.IDTokenVerifier) tokenVerifier {
	return func(ctx context.Context, rawIDToken string) (idClaims, error) {
		idToken, err := v.Verify(ctx, rawIDToken)
		if err != nil {
			return idClaims{}, err
		}
		var claims idClaims
		if err := idToken.Claims(&claims); err != nil {
			return idClaims{}, err
		}
		return claims, nil
	}
}

// authenticateToken verifies the id token and returns its email claim.
func (s *Server) authenticateToken(ctx context.Context, token string) (string, error) {
	if s.oidcVerifier == nil {
		return "", errors.New("no oidc audience configured")
	}
	claims, err := s.oidcVerifier(ctx, token)
	if err != nil {
		return "", err
	}
	if claims.Email == "" {
		return "", errors.New("id token has no email claim")
	}
	if !claims.EmailVerified {
		return "", errors.New("id token email is not verified")
	}
	return claims.Email, nil
}
