package catalog

import (
	"context"
	"errors"
	"fmt"

	"pos-service/internal/cache"
	"pos-service/internal/database"
	"pos-service/internal/inventory"

	"go.uber.org/zap"
)

// Categories is the fixed category enumeration
var Categories = []string{"FOUNDATION", "BLUSH", "CONCEALER", "LIPSTICK", "EYESHADOW"}

// ValidCategory reports whether a category belongs to the fixed enumeration
func ValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Item is a catalog product joined with its current stock level
type Item struct {
	ID          int64   `json:"id"`
	Barcode     string  `json:"barcode,omitempty"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	ImagePath   string  `json:"image_path,omitempty"`
	Category    string  `json:"category"`
	Status      string  `json:"status"`
	Stock       int     `json:"stock"`
}

// Active reports whether the item can be sold
func (i *Item) Active() bool {
	return i.Status == "Active"
}

// View selects which listing the loader produces
type View int

const (
	// ViewBrowse orders by category then description (register browsing)
	ViewBrowse View = iota
	// ViewManage orders by id descending (product management)
	ViewManage
)

var ErrInvalidCategory = errors.New("category is not in the fixed enumeration")

// Service loads the catalog joined with stock and owns product CRUD
type Service struct {
	db        *database.SingleWriterDB
	inventory *inventory.Service
	cache     cache.Cache
	cacheTTL  int
	logger    *zap.Logger
}

// NewService creates a catalog service. cache may be nil when caching is disabled.
func NewService(db *database.SingleWriterDB, inv *inventory.Service, c cache.Cache, cacheTTL int, logger *zap.Logger) *Service {
	return &Service{
		db:        db,
		inventory: inv,
		cache:     c,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

func cacheKey(view View) string {
	if view == ViewManage {
		return "catalog:manage"
	}
	return "catalog:browse"
}

// Load reads all products in the requested order, each joined with its
// current stock via the inventory accessor. Reading stock lazily creates
// default stock rows for products never seen before. Store failures degrade
// to an empty catalog rather than aborting the register.
func (s *Service) Load(ctx context.Context, view View) []Item {
	if s.cache != nil {
		var cached []Item
		if err := cache.GetJSON(ctx, s.cache, cacheKey(view), &cached); err == nil {
			return cached
		}
	}

	order := database.OrderByBrowse
	if view == ViewManage {
		order = database.OrderByManage
	}

	products, err := s.db.ListProducts(ctx, order)
	if err != nil {
		s.logger.Error("Failed to load catalog, degrading to empty", zap.Error(err))
		return []Item{}
	}

	items := make([]Item, 0, len(products))
	for _, p := range products {
		items = append(items, Item{
			ID:          p.ID,
			Barcode:     p.Barcode,
			Description: p.Description,
			Price:       p.Price,
			ImagePath:   p.ImagePath,
			Category:    p.Category,
			Status:      p.Status,
			Stock:       s.inventory.GetStock(ctx, p.ID),
		})
	}

	if s.cache != nil {
		if err := cache.SetJSON(ctx, s.cache, cacheKey(view), items, cache.TTL(s.cacheTTL)); err != nil {
			s.logger.Warn("Failed to cache catalog", zap.Error(err))
		}
	}

	return items
}

// Get returns a single catalog item with resolved stock
func (s *Service) Get(ctx context.Context, id int64) (*Item, error) {
	p, err := s.db.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	return &Item{
		ID:          p.ID,
		Barcode:     p.Barcode,
		Description: p.Description,
		Price:       p.Price,
		ImagePath:   p.ImagePath,
		Category:    p.Category,
		Status:      p.Status,
		Stock:       s.inventory.GetStock(ctx, p.ID),
	}, nil
}

// CategoryByProductID resolves a product's category by its stable identifier
func (s *Service) CategoryByProductID(ctx context.Context, id int64) (string, error) {
	return s.db.CategoryByProductID(ctx, id)
}

// Create adds a product to the catalog
func (s *Service) Create(ctx context.Context, p *database.Product) (int64, error) {
	if !ValidCategory(p.Category) {
		return 0, fmt.Errorf("%q: %w", p.Category, ErrInvalidCategory)
	}
	if p.Status == "" {
		p.Status = "Active"
	}

	id, err := s.db.CreateProduct(ctx, p)
	if err != nil {
		return 0, err
	}

	s.Invalidate(ctx)
	s.logger.Info("Product created",
		zap.Int64("product_id", id),
		zap.String("description", p.Description),
		zap.String("category", p.Category),
	)
	return id, nil
}

// Update edits a product's fields
func (s *Service) Update(ctx context.Context, p *database.Product) error {
	if !ValidCategory(p.Category) {
		return fmt.Errorf("%q: %w", p.Category, ErrInvalidCategory)
	}

	if err := s.db.UpdateProduct(ctx, p); err != nil {
		return err
	}

	s.Invalidate(ctx)
	return nil
}

// UpdateStatus flips a product Active/Inactive
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) error {
	if status != "Active" && status != "Inactive" {
		return fmt.Errorf("invalid status %q, expected Active or Inactive", status)
	}

	if err := s.db.UpdateProductStatus(ctx, id, status); err != nil {
		return err
	}

	s.Invalidate(ctx)
	return nil
}

// Delete removes a product; its stock row cascades away with it
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.db.DeleteProduct(ctx, id); err != nil {
		return err
	}

	s.Invalidate(ctx)
	return nil
}

// Invalidate drops every cached catalog listing. Called after any product or
// stock mutation so the register never shows stale stock.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "catalog:*"); err != nil {
		s.logger.Warn("Failed to invalidate catalog cache", zap.Error(err))
	}
}
