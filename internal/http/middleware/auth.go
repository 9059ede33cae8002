package middleware

import (
	"net/http"
	"strings"

	"github.com/clinigo/platform/internal/tenancy"
	"github.com/golang-jwt/jwt/v5"
)

// SessionJWT enforces a simple HMAC-signed JWT for staff endpoints. The
// token subject is the user id; a "clinic_id" claim scopes the session to a
// tenant and is placed on the request context alongside the user id.
func SessionJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				http.Error(w, "auth disabled", http.StatusUnauthorized)
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(auth, "Bearer ")
			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := r.Context()
			if sub, err := claims.GetSubject(); err == nil && sub != "" {
				ctx = tenancy.WithUserID(ctx, sub)
			}
			if clinicID, ok := claims["clinic_id"].(string); ok && clinicID != "" {
				ctx = tenancy.WithClinicID(ctx, clinicID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
