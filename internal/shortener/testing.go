package shortener

import "context"

// MockRepository is a mock implementation of Repository for testing.
// This mock is exported to allow usage in tests across multiple packages.
type MockRepository struct {
	PutFunc func(ctx context.Context, shortCode, originalURL string) error
	GetFunc func(ctx context.Context, shortCode string) (string, error)
}

func (m *MockRepository) Put(ctx context.Context, shortCode, originalURL string) error {
	if m.PutFunc != nil {
		return m.PutFunc(ctx, shortCode, originalURL)
	}
	return nil
}

func (m *MockRepository) Get(ctx context.Context, shortCode string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, shortCode)
	}
	return "", nil
}

// MockAllocator is a mock implementation of IDAllocator for testing.
type MockAllocator struct {
	NextIDFunc func(ctx context.Context) (uint64, error)
}

func (m *MockAllocator) NextID(ctx context.Context) (uint64, error) {
	if m.NextIDFunc != nil {
		return m.NextIDFunc(ctx)
	}
	return 0, nil
}
