package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"itemdocs/internal/model"
)

type MockItemService struct {
	mock.Mock
}

func (m *MockItemService) Create(ctx context.Context, item *model.Item) (*model.Item, error) {
	args := m.Called(ctx, item)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Item), args.Error(1)
}

func (m *MockItemService) Get(ctx context.Context, id string) (*model.Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Item), args.Error(1)
}

func (m *MockItemService) Update(ctx context.Context, id string, patch model.ItemPatch) (*model.Item, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Item), args.Error(1)
}

func (m *MockItemService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockReferenceValidator is a testify mock of service.ReferenceValidator.
type MockReferenceValidator struct {
	mock.Mock
}

func (m *MockReferenceValidator) ValidateSite(ctx context.Context, id string) bool {
	return m.Called(ctx, id).Bool(0)
}

func (m *MockReferenceValidator) ValidateCategory(ctx context.Context, id string) bool {
	return m.Called(ctx, id).Bool(0)
}
