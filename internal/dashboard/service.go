package dashboard

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RepositoryPort lists the aggregate queries the service fans out over.
type RepositoryPort interface {
	EntityCounts(ctx context.Context, table string) (EntityCounts, error)
	OrdersByStatus(ctx context.Context) ([]OrderValue, error)
	PendingPaymentTotal(ctx context.Context) (float64, error)
	TopVendors(ctx context.Context, limit int) ([]VendorRank, error)
}

const topVendorLimit = 5

// Service assembles the dashboard summary from parallel aggregate queries,
// memoised through the versioned cache.
type Service struct {
	repo  RepositoryPort
	cache *Cache
}

// NewService builds the dashboard service.
func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Summary returns the aggregated dashboard, served from cache when the
// version has not been bumped since the last load.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	key, err := s.cache.BuildKey(ctx, "dashboard", "summary")
	if err != nil {
		return Summary{}, err
	}
	var summary Summary
	err = s.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (any, error) {
		return s.load(ctx)
	})
	return summary, err
}

func (s *Service) load(ctx context.Context) (Summary, error) {
	var summary Summary
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary.Vendors, err = s.repo.EntityCounts(ctx, "vendors")
		return err
	})
	g.Go(func() error {
		var err error
		summary.Customers, err = s.repo.EntityCounts(ctx, "customers")
		return err
	})
	g.Go(func() error {
		var err error
		summary.Employees, err = s.repo.EntityCounts(ctx, "employees")
		return err
	})
	g.Go(func() error {
		var err error
		summary.PurchaseOrders, err = s.repo.EntityCounts(ctx, "purchase_orders")
		return err
	})
	g.Go(func() error {
		var err error
		summary.OrdersByStatus, err = s.repo.OrdersByStatus(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		summary.PendingPayment, err = s.repo.PendingPaymentTotal(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		summary.TopVendors, err = s.repo.TopVendors(ctx, topVendorLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return summary, nil
}

// Invalidate bumps the cache version after a mutation elsewhere.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}
