package httpapi

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// PrincipalHeader carries the authenticated principal, set by the upstream
// gateway.
const PrincipalHeader = "X-Principal-ID"

type principalKey struct{}

// RequirePrincipal rejects requests without a valid principal header and
// stores the principal in the request context.
func RequirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.Header.Get(PrincipalHeader))
		if err != nil || id == uuid.Nil {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: errorDetail{
				Code:    "UNAUTHENTICATED",
				Message: "missing or invalid " + PrincipalHeader + " header",
			}})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, id)))
	})
}

// PrincipalFrom returns the principal stored by RequirePrincipal.
func PrincipalFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(principalKey{}).(uuid.UUID)
	return id, ok
}
