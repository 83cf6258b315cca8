package middleware

import (
	"context"
	"net/http"

	"signature-service/pkg/response"
)

type contextKey string

// Identity context keys, populated by the upstream auth gateway's headers.
const (
	ContextCompanyID     contextKey = "company_id"
	ContextUserID        contextKey = "user_id"
	ContextWorkstationID contextKey = "workstation_id"
)

// RequireIdentity extracts the authenticated caller's identity from the
// gateway headers. Company id never comes from a request body; calls
// without it are rejected before any handler runs.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		companyID := r.Header.Get("X-Company-ID")
		if companyID == "" {
			response.Error(w, http.StatusUnauthorized, "Missing company identity")
			return
		}

		ctx := context.WithValue(r.Context(), ContextCompanyID, companyID)
		if userID := r.Header.Get("X-User-ID"); userID != "" {
			ctx = context.WithValue(ctx, ContextUserID, userID)
		}
		if workstationID := r.Header.Get("X-Workstation-ID"); workstationID != "" {
			ctx = context.WithValue(ctx, ContextWorkstationID, workstationID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func CompanyID(ctx context.Context) string {
	v, _ := ctx.Value(ContextCompanyID).(string)
	return v
}

func UserID(ctx context.Context) string {
	v, _ := ctx.Value(ContextUserID).(string)
	return v
}

func WorkstationID(ctx context.Context) string {
	v, _ := ctx.Value(ContextWorkstationID).(string)
	return v
}
