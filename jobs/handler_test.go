package jobs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type fakeEnqueuer struct {
	reconciled []int64
	pruned     []int
}

func (f *fakeEnqueuer) EnqueueVendorStatsReconcile(ctx context.Context, vendorID int64) (*asynq.TaskInfo, error) {
	f.reconciled = append(f.reconciled, vendorID)
	return &asynq.TaskInfo{ID: "task-1", Queue: QueueDefault}, nil
}

func (f *fakeEnqueuer) EnqueueAuditPrune(ctx context.Context, retentionDays int) (*asynq.TaskInfo, error) {
	f.pruned = append(f.pruned, retentionDays)
	return &asynq.TaskInfo{ID: "task-2", Queue: QueueDefault}, nil
}

func newJobsRouter(enqueuer Enqueuer) http.Handler {
	r := chi.NewRouter()
	r.Route("/jobs", func(r chi.Router) {
		NewHandler(nil, enqueuer, nil).MountRoutes(r)
	})
	return r
}

func TestReconcileEnqueuesSingleVendor(t *testing.T) {
	fake := &fakeEnqueuer{}
	router := newJobsRouter(fake)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/jobs/reconcile", strings.NewReader(`{"vendor_id": 42}`)))

	require.Equal(t, http.StatusAccepted, res.Code)
	require.Equal(t, []int64{42}, fake.reconciled)
	require.Contains(t, res.Body.String(), `"task_id":"task-1"`)
}

func TestReconcileEmptyBodySweepsAll(t *testing.T) {
	fake := &fakeEnqueuer{}
	router := newJobsRouter(fake)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/jobs/reconcile", nil))

	require.Equal(t, http.StatusAccepted, res.Code)
	require.Equal(t, []int64{0}, fake.reconciled)
}

func TestReconcileRejectsNegativeVendor(t *testing.T) {
	fake := &fakeEnqueuer{}
	router := newJobsRouter(fake)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/jobs/reconcile", strings.NewReader(`{"vendor_id": -1}`)))

	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Empty(t, fake.reconciled)
}

func TestPruneEnqueuesRetention(t *testing.T) {
	fake := &fakeEnqueuer{}
	router := newJobsRouter(fake)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/jobs/prune", strings.NewReader(`{"retention_days": 30}`)))

	require.Equal(t, http.StatusAccepted, res.Code)
	require.Equal(t, []int{30}, fake.pruned)
}

func TestEnqueueUnavailableWithoutClient(t *testing.T) {
	router := newJobsRouter(nil)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/jobs/reconcile", nil))

	require.Equal(t, http.StatusServiceUnavailable, res.Code)
}
