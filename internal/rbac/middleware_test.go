package rbac

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crestline-hq/crestline/internal/shared"
)

func doRequest(t *testing.T, mw func(http.Handler) http.Handler, identity *shared.Identity) int {
	t.Helper()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if identity != nil {
		req = req.WithContext(shared.ContextWithIdentity(req.Context(), *identity))
	}
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)
	return rec.Code
}

func testMiddleware() Middleware {
	return Middleware{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestRequireAnyAllowsMatchingPermission(t *testing.T) {
	m := testMiddleware()
	id := &shared.Identity{UserID: 5, Role: RoleAccountManager}
	require.Equal(t, http.StatusOK, doRequest(t, m.RequireAny(PermInvoiceView), id))
	require.Equal(t, http.StatusOK, doRequest(t, m.RequireAny(PermInvoicePayment, PermInvoiceGenerate), id))
}

func TestRequireAnyDeniesMissingPermission(t *testing.T) {
	m := testMiddleware()
	id := &shared.Identity{UserID: 5, Role: RoleAccountManager}
	require.Equal(t, http.StatusForbidden, doRequest(t, m.RequireAny(PermInvoiceGenerate), id))
	require.Equal(t, http.StatusForbidden, doRequest(t, m.RequireAny(PermMasterdataEdit), id))
}

func TestRequireAllNeedsEveryPermission(t *testing.T) {
	m := testMiddleware()
	executive := &shared.Identity{UserID: 2, Role: RoleAccountExecutive}
	require.Equal(t, http.StatusOK, doRequest(t, m.RequireAll(PermInvoiceView, PermInvoiceGenerate), executive))
	require.Equal(t, http.StatusForbidden, doRequest(t, m.RequireAll(PermInvoiceView, PermInvoicePayment), executive))
}

func TestAdminHoldsEveryPermission(t *testing.T) {
	m := testMiddleware()
	admin := &shared.Identity{UserID: 1, Role: RoleAdmin}
	for _, perm := range []string{PermInvoiceView, PermInvoiceGenerate, PermInvoicePayment, PermMasterdataView, PermMasterdataEdit} {
		require.Equal(t, http.StatusOK, doRequest(t, m.RequireAll(perm), admin))
	}
}

func TestAnonymousAndUnknownRolesDenied(t *testing.T) {
	m := testMiddleware()
	require.Equal(t, http.StatusForbidden, doRequest(t, m.RequireAny(PermInvoiceView), nil))
	require.Equal(t, http.StatusForbidden, doRequest(t, m.RequireAny(PermInvoiceView), &shared.Identity{UserID: 9, Role: "intern"}))
}
