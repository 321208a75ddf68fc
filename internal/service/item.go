package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"itemdocs/internal/model"
	"itemdocs/internal/repository"
)

var (
	ErrIDRequired = repository.ErrIDRequired
	ErrNotFound   = repository.ErrNotFound
	ErrValidation = errors.New("reference validation failed")
)

// ValidationError names the reference field the catalog rejected. It matches
// ErrValidation with errors.Is.
type ValidationError struct {
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: not found in catalog", e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ReferenceValidator checks site and category ids against the catalog.
// A false result covers both "does not exist" and "could not ask".
type ReferenceValidator interface {
	ValidateSite(ctx context.Context, id string) bool
	ValidateCategory(ctx context.Context, id string) bool
}

// ItemService defines the item use cases. Writes go through the reference
// validator first; a rejected reference aborts before the store is touched.
// The check is best-effort: a site or category can still disappear between
// validation and the write.
type ItemService interface {
	Create(ctx context.Context, item *model.Item) (*model.Item, error)
	Get(ctx context.Context, id string) (*model.Item, error)
	Update(ctx context.Context, id string, patch model.ItemPatch) (*model.Item, error)
	Delete(ctx context.Context, id string) error
}

// itemService is a concrete implementation of ItemService.
type itemService struct {
	refs ReferenceValidator
	repo repository.ItemRepository
	log  *slog.Logger
}

// NewItemService constructs a new ItemService.
func NewItemService(refs ReferenceValidator, repo repository.ItemRepository, log *slog.Logger) ItemService {
	if log == nil {
		log = slog.Default()
	}
	return &itemService{refs: refs, repo: repo, log: log}
}

func (s *itemService) Create(ctx context.Context, item *model.Item) (*model.Item, error) {
	if item == nil || item.ID == "" {
		return nil, ErrIDRequired
	}
	if err := s.checkSite(ctx, item.SiteID); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, item.CategoryID); err != nil {
		return nil, err
	}

	stored, err := s.repo.Insert(ctx, item)
	if err != nil {
		s.log.ErrorContext(ctx, "item insert failed", "id", item.ID, "error", err)
		return nil, fmt.Errorf("insert item: %w", err)
	}
	s.log.InfoContext(ctx, "item inserted", "id", stored.ID)
	return stored, nil
}

func (s *itemService) Get(ctx context.Context, id string) (*model.Item, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.ErrorContext(ctx, "item lookup failed", "id", id, "error", err)
		}
		return nil, err
	}
	return item, nil
}

// Update validates only the reference fields present in the patch.
func (s *itemService) Update(ctx context.Context, id string, patch model.ItemPatch) (*model.Item, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	if patch.SiteID != nil {
		if err := s.checkSite(ctx, *patch.SiteID); err != nil {
			return nil, err
		}
	}
	if patch.CategoryID != nil {
		if err := s.checkCategory(ctx, *patch.CategoryID); err != nil {
			return nil, err
		}
	}

	updated, err := s.repo.UpdateByID(ctx, id, patch)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		s.log.ErrorContext(ctx, "item update failed", "id", id, "error", err)
		return nil, fmt.Errorf("update item: %w", err)
	}
	s.log.InfoContext(ctx, "item updated", "id", id)
	return updated, nil
}

func (s *itemService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		s.log.ErrorContext(ctx, "item delete failed", "id", id, "error", err)
		return fmt.Errorf("delete item: %w", err)
	}
	s.log.InfoContext(ctx, "item deleted", "id", id)
	return nil
}

func (s *itemService) checkSite(ctx context.Context, id string) error {
	if !s.refs.ValidateSite(ctx, id) {
		s.log.WarnContext(ctx, "site rejected by catalog", "site_id", id)
		return &ValidationError{Field: "siteId", Value: id}
	}
	return nil
}

func (s *itemService) checkCategory(ctx context.Context, id string) error {
	if !s.refs.ValidateCategory(ctx, id) {
		s.log.WarnContext(ctx, "category rejected by catalog", "category_id", id)
		return &ValidationError{Field: "categoryId", Value: id}
	}
	return nil
}
