package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"itemdocs/internal/database"
	"itemdocs/internal/model"
	"itemdocs/internal/repository"
	"itemdocs/internal/repository/elastic"
	repoMocks "itemdocs/internal/repository/mocks"
	svcMocks "itemdocs/internal/service/mocks"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func strPtr(s string) *string { return &s }

func TestItemService_Create(t *testing.T) {
	ctx := context.Background()
	item := &model.Item{ID: "MLA1", SiteID: "MLA", CategoryID: "MLA1055", Title: "Phone", Price: 100}

	tests := []struct {
		name       string
		item       *model.Item
		setupMocks func(refs *svcMocks.MockReferenceValidator, repo *repoMocks.MockItemRepository)
		wantErr    error
		wantField  string
	}{
		{
			name: "happy path",
			item: item,
			setupMocks: func(refs *svcMocks.MockReferenceValidator, repo *repoMocks.MockItemRepository) {
				refs.On("ValidateSite", ctx, "MLA").Return(true)
				refs.On("ValidateCategory", ctx, "MLA1055").Return(true)
				repo.On("Insert", ctx, item).Return(item, nil)
			},
		},
		{
			name:       "validation - empty id",
			item:       &model.Item{SiteID: "MLA"},
			setupMocks: func(*svcMocks.MockReferenceValidator, *repoMocks.MockItemRepository) {},
			wantErr:    ErrIDRequired,
		},
		{
			name: "invalid site short-circuits",
			item: item,
			setupMocks: func(refs *svcMocks.MockReferenceValidator, repo *repoMocks.MockItemRepository) {
				refs.On("ValidateSite", ctx, "MLA").Return(false)
			},
			wantErr:   ErrValidation,
			wantField: "siteId",
		},
		{
			name: "invalid category short-circuits",
			item: item,
			setupMocks: func(refs *svcMocks.MockReferenceValidator, repo *repoMocks.MockItemRepository) {
				refs.On("ValidateSite", ctx, "MLA").Return(true)
				refs.On("ValidateCategory", ctx, "MLA1055").Return(false)
			},
			wantErr:   ErrValidation,
			wantField: "categoryId",
		},
		{
			name: "repository error is wrapped",
			item: item,
			setupMocks: func(refs *svcMocks.MockReferenceValidator, repo *repoMocks.MockItemRepository) {
				refs.On("ValidateSite", ctx, "MLA").Return(true)
				refs.On("ValidateCategory", ctx, "MLA1055").Return(true)
				repo.On("Insert", ctx, item).Return(nil, &repository.ConnectionError{Op: "index", Err: errors.New("refused")})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refs := new(svcMocks.MockReferenceValidator)
			repo := new(repoMocks.MockItemRepository)
			svc := NewItemService(refs, repo, quiet)
			tt.setupMocks(refs, repo)

			got, err := svc.Create(ctx, tt.item)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				if tt.wantField != "" {
					var ve *ValidationError
					require.ErrorAs(t, err, &ve)
					assert.Equal(t, tt.wantField, ve.Field)
				}
				repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
			case tt.name == "repository error is wrapped":
				assert.True(t, repository.IsConnection(err))
				assert.Contains(t, err.Error(), "insert item")
			default:
				assert.NoError(t, err)
				assert.Equal(t, item, got)
			}
			refs.AssertExpectations(t)
			repo.AssertExpectations(t)
		})
	}
}

func TestItemService_Get(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		id         string
		setupMocks func(repo *repoMocks.MockItemRepository)
		wantErr    error
	}{
		{
			name: "happy path",
			id:   "MLA1",
			setupMocks: func(repo *repoMocks.MockItemRepository) {
				repo.On("FindByID", ctx, "MLA1").Return(&model.Item{ID: "MLA1"}, nil)
			},
		},
		{
			name:       "validation - empty id",
			setupMocks: func(repo *repoMocks.MockItemRepository) {},
			wantErr:    ErrIDRequired,
		},
		{
			name: "not found",
			id:   "missing",
			setupMocks: func(repo *repoMocks.MockItemRepository) {
				repo.On("FindByID", ctx, "missing").Return(nil, repository.ErrNotFound)
			},
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(repoMocks.MockItemRepository)
			svc := NewItemService(new(svcMocks.MockReferenceValidator), repo, quiet)
			tt.setupMocks(repo)

			got, err := svc.Get(ctx, tt.id)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.id, got.ID)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestItemService_Update(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		patch      model.ItemPatch
		setupMocks func(refs *svcMocks.MockReferenceValidator, repo *repoMocks.MockItemRepository, patch model.ItemPatch)
		wantErr    error
	}{
		{
			name:  "title only skips catalog",
			patch: model.ItemPatch{Title: strPtr("New")},
			setupMocks: func(refs *svcMocks.MockReferenceValidator, repo *repoMocks.MockItemRepository, patch model.ItemPatch) {
				repo.On("UpdateByID", ctx, "MLA1", patch).Return(&model.Item{ID: "MLA1", Title: "New"}, nil)
			},
		},
		{
			name:  "site and category validated",
			patch: model.ItemPatch{SiteID: strPtr("MLB"), CategoryID: strPtr("MLB5672")},
			setupMocks: func(refs *svcMocks.MockReferenceValidator, repo *repoMocks.MockItemRepository, patch model.ItemPatch) {
				refs.On("ValidateSite", ctx, "MLB").Return(true)
				refs.On("ValidateCategory", ctx, "MLB5672").Return(true)
				repo.On("UpdateByID", ctx, "MLA1", patch).Return(&model.Item{ID: "MLA1"}, nil)
			},
		},
		{
			name:  "invalid category aborts",
			patch: model.ItemPatch{CategoryID: strPtr("nope")},
			setupMocks: func(refs *svcMocks.MockReferenceValidator, repo *repoMocks.MockItemRepository, patch model.ItemPatch) {
				refs.On("ValidateCategory", ctx, "nope").Return(false)
			},
			wantErr: ErrValidation,
		},
		{
			name:  "not found passes through",
			patch: model.ItemPatch{Title: strPtr("x")},
			setupMocks: func(refs *svcMocks.MockReferenceValidator, repo *repoMocks.MockItemRepository, patch model.ItemPatch) {
				repo.On("UpdateByID", ctx, "MLA1", patch).Return(nil, repository.ErrNotFound)
			},
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refs := new(svcMocks.MockReferenceValidator)
			repo := new(repoMocks.MockItemRepository)
			svc := NewItemService(refs, repo, quiet)
			tt.setupMocks(refs, repo, tt.patch)

			got, err := svc.Update(ctx, "MLA1", tt.patch)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, got)
			}
			refs.AssertExpectations(t)
			repo.AssertExpectations(t)
		})
	}

	t.Run("empty id", func(t *testing.T) {
		svc := NewItemService(new(svcMocks.MockReferenceValidator), new(repoMocks.MockItemRepository), quiet)
		_, err := svc.Update(ctx, "", model.ItemPatch{})
		assert.ErrorIs(t, err, ErrIDRequired)
	})
}

func TestItemService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		repo := new(repoMocks.MockItemRepository)
		repo.On("DeleteByID", ctx, "MLA1").Return(nil)
		svc := NewItemService(new(svcMocks.MockReferenceValidator), repo, quiet)

		assert.NoError(t, svc.Delete(ctx, "MLA1"))
		repo.AssertExpectations(t)
	})

	t.Run("empty id", func(t *testing.T) {
		svc := NewItemService(new(svcMocks.MockReferenceValidator), new(repoMocks.MockItemRepository), quiet)
		assert.ErrorIs(t, svc.Delete(ctx, ""), ErrIDRequired)
	})

	t.Run("repository error", func(t *testing.T) {
		repo := new(repoMocks.MockItemRepository)
		repo.On("DeleteByID", ctx, "MLA1").Return(errors.New("boom"))
		svc := NewItemService(new(svcMocks.MockReferenceValidator), repo, quiet)

		err := svc.Delete(ctx, "MLA1")
		assert.EqualError(t, err, "delete item: boom")
	})
}

// An item with a rejected site must never reach the store.
func TestItemService_InvalidSiteLeavesNoDocument(t *testing.T) {
	store, cfg := database.NewTestStore(t)
	m := database.NewManager(cfg)
	defer m.Release()

	refs := new(svcMocks.MockReferenceValidator)
	refs.On("ValidateSite", mock.Anything, "XXX").Return(false)
	svc := NewItemService(refs, elastic.NewItemElastic(m), quiet)
	ctx := context.Background()

	_, err := svc.Create(ctx, &model.Item{ID: "MLA9", SiteID: "XXX", CategoryID: "MLA1055"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Get(ctx, "MLA9")
	assert.ErrorIs(t, err, ErrNotFound)
	_, exists := store.Source("itemdata", "MLA9")
	assert.False(t, exists)
	for _, r := range store.Requests() {
		assert.NotContains(t, r, "PUT ")
	}
}
