package approvals

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(svc *Service) http.Handler {
	r := chi.NewRouter()
	r.Route("/approvals", func(r chi.Router) {
		NewHandler(nil, svc).MountRoutes(r)
	})
	return r
}

func TestHandleApprove(t *testing.T) {
	svc := NewService(nil)
	svc.Register(newFakeGate(EntityVendor, 7))
	router := newTestRouter(svc)

	body := `{"actor_id": 1, "actor_name": "Meera", "actor_role": "ADMIN"}`
	req := httptest.NewRequest(http.MethodPost, "/approvals/vendor/7/approve", strings.NewReader(body))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"success":true`)
	require.Contains(t, res.Body.String(), `"APPROVED"`)
}

func TestHandleApproveRequiresActor(t *testing.T) {
	svc := NewService(nil)
	svc.Register(newFakeGate(EntityVendor, 7))
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/approvals/vendor/7/approve", strings.NewReader(`{}`))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Contains(t, res.Body.String(), "actor_id")
}

func TestHandleRejectOnlyOnce(t *testing.T) {
	svc := NewService(nil)
	gate := newFakeGate(EntityCustomer, 3)
	svc.Register(gate)
	router := newTestRouter(svc)

	body := `{"actor_id": 1, "actor_name": "Meera", "reason": "incomplete KYC"}`
	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/approvals/customer/3/reject", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/approvals/customer/3/reject", strings.NewReader(body)))
	require.Equal(t, http.StatusNotFound, second.Code)
}

func TestHandleListPendingFiltersByType(t *testing.T) {
	svc := NewService(nil)
	svc.Register(newFakeGate(EntityVendor, 1, 2))
	svc.Register(newFakeGate(EntityEmployee, 5))
	router := newTestRouter(svc)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/approvals/pending?type=vendor", nil))
	require.Equal(t, http.StatusOK, res.Code)
	require.NotContains(t, res.Body.String(), "EMPLOYEE")
	require.Contains(t, res.Body.String(), "VENDOR")
}
