package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pos_umkm/internal/localstore"
	"pos_umkm/internal/pos"
	"pos_umkm/internal/remote"
	"pos_umkm/internal/session"

	"go.uber.org/zap"
)

var (
	ErrNoSnapshot     = errors.New("catalog not available offline yet")
	ErrUnknownProduct = errors.New("product not found")
)

type Connectivity interface {
	IsOnline() bool
}

// View is a catalog read. Cached is set when the items came from the last
// snapshot instead of the remote.
type View[T any] struct {
	Items   []T       `json:"items"`
	Cached  bool      `json:"cached"`
	SavedAt time.Time `json:"saved_at"`
}

type snapshot[T any] struct {
	SavedAt time.Time `json:"saved_at"`
	Items   []T       `json:"items"`
}

// Service reads products and categories, keeping a local snapshot of the
// last successful read for offline browsing.
type Service struct {
	remote remote.Service
	store  localstore.Store
	online Connectivity
	sess   session.Context
	logger *zap.Logger
	now    func() time.Time
}

func New(svc remote.Service, store localstore.Store, online Connectivity, sess session.Context, logger *zap.Logger) *Service {
	return &Service{
		remote: svc,
		store:  store,
		online: online,
		sess:   sess,
		logger: logger.Named("catalog"),
		now:    time.Now,
	}
}

func (s *Service) Products(ctx context.Context) (View[pos.Product], error) {
	storeID, err := s.sess.RequireStore()
	if err != nil {
		return View[pos.Product]{}, err
	}
	return read(ctx, s, "catalog.products."+storeID, func(ctx context.Context) ([]pos.Product, error) {
		return s.remote.ListProducts(ctx, storeID)
	})
}

func (s *Service) Categories(ctx context.Context) (View[pos.Category], error) {
	storeID, err := s.sess.RequireStore()
	if err != nil {
		return View[pos.Category]{}, err
	}
	return read(ctx, s, "catalog.categories."+storeID, func(ctx context.Context) ([]pos.Category, error) {
		return s.remote.ListCategories(ctx, storeID)
	})
}

// Product finds a product by id, or by case-insensitive name when no id
// matches.
func (s *Service) Product(ctx context.Context, ref string) (pos.Product, error) {
	view, err := s.Products(ctx)
	if err != nil {
		return pos.Product{}, err
	}
	for _, p := range view.Items {
		if p.ID == ref {
			return p, nil
		}
	}
	for _, p := range view.Items {
		if strings.EqualFold(p.Name, ref) {
			return p, nil
		}
	}
	return pos.Product{}, fmt.Errorf("%w: %s", ErrUnknownProduct, ref)
}

func read[T any](ctx context.Context, s *Service, key string, fetch func(context.Context) ([]T, error)) (View[T], error) {
	if s.online.IsOnline() {
		items, err := fetch(ctx)
		if err == nil {
			snap := snapshot[T]{SavedAt: s.now(), Items: items}
			if err := localstore.PutJSON(ctx, s.store, key, snap); err != nil {
				s.logger.Warn("save catalog snapshot", zap.String("key", key), zap.Error(err))
			}
			return View[T]{Items: items, SavedAt: snap.SavedAt}, nil
		}
		s.logger.Warn("catalog read failed, using snapshot", zap.String("key", key), zap.Error(err))
	}

	var snap snapshot[T]
	ok, err := localstore.GetJSON(ctx, s.store, key, &snap)
	if err != nil {
		return View[T]{}, err
	}
	if !ok {
		return View[T]{}, ErrNoSnapshot
	}
	return View[T]{Items: snap.Items, Cached: true, SavedAt: snap.SavedAt}, nil
}
