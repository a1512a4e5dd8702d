package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/punchamoorthee/backoffice/internal/auth"
	"github.com/punchamoorthee/backoffice/internal/domain"
)

type identityKey struct{}

func withIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller set by the authentication middleware.
func IdentityFrom(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(domain.Identity)
	return id, ok
}

func caller(r *http.Request) domain.Identity {
	id, _ := IdentityFrom(r.Context())
	return id
}

// authenticate requires a valid bearer token and stores the resolved identity
// in the request context.
func authenticate(resolver auth.Resolver, log *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				respondWithError(w, r, http.StatusUnauthorized, "As credenciais de autenticação não foram fornecidas.")
				return
			}

			parts := strings.Fields(header)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				respondWithError(w, r, http.StatusUnauthorized, "Cabeçalho Authorization inválido.")
				return
			}

			id, err := resolver.Resolve(parts[1])
			if err != nil {
				log.WithField("path", r.URL.Path).WithError(err).Warn("invalid bearer token")
				respondWithError(w, r, http.StatusUnauthorized, "Token inválido ou expirado.")
				return
			}

			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
		})
	}
}

// instrument observes request latency per route.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues(r.Method, endpointOf(r)))
		defer timer.ObserveDuration()
		next.ServeHTTP(w, r)
	})
}
