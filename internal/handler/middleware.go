package handler

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/boddenberg/banco-agil-bfa-go/internal/domain"
	"github.com/boddenberg/banco-agil-bfa-go/internal/port"
)

type contextKey string

const cpfKey contextKey = "cpf"

// JWTAuthMiddleware validates Bearer tokens issued by the chat and injects
// the client CPF into the request context.
func JWTAuthMiddleware(tokens port.TokenService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("auth: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "Token de autenticação não fornecido")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("auth: invalid token format",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "Formato de token inválido")
				return
			}

			cpf, err := tokens.VerifyToken(parts[1])
			if err != nil {
				logger.Warn("auth: invalid or expired token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}

			logger.Debug("auth: token accepted", zap.String("cpf", domain.MaskCPF(cpf)))
			ctx := context.WithValue(r.Context(), cpfKey, cpf)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CPFFromContext extracts the authenticated client CPF from context.
func CPFFromContext(ctx context.Context) string {
	v, _ := ctx.Value(cpfKey).(string)
	return v
}
