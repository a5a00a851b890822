package middlewares

import (
	"context"
	"net/http"
	"strings"

	"clientdesk/models"
	"clientdesk/utils"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const UserContextKey contextKey = "user"

func JWTMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				utils.HandleMessageResponse(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			token, err := jwt.ParseWithClaims(tokenString, &models.Claims{}, func(token *jwt.Token) (any, error) {
				return []byte(jwtSecret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil {
				utils.HandleMessageResponse(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(*models.Claims)
			if !ok || !token.Valid || claims.UserID == "" {
				utils.HandleMessageResponse(w, "Invalid token claims", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), UserContextKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken reads the token from the Authorization header, or from the
// access_token query parameter for EventSource clients that cannot set
// headers.
func bearerToken(r *http.Request) (string, bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		token := strings.TrimPrefix(h, "Bearer ")
		return token, token != h && token != ""
	}
	if t := r.URL.Query().Get("access_token"); t != "" {
		return t, true
	}
	return "", false
}

func GetUserIDFromContext(ctx context.Context) string {
	if userID, ok := ctx.Value(UserContextKey).(string); ok {
		return userID
	}
	return ""
}
