package backend

import (
	"context"

	"github.com/huangsam/autoindex/internal/contract"
	"github.com/huangsam/autoindex/schema"
	"github.com/stretchr/testify/mock"
)

// MockQueryService is a mock implementation of contract.QueryService for testing.
type MockQueryService struct {
	mock.Mock
}

var _ contract.QueryService = &MockQueryService{} // Compile-time check

// GetSchema implements the QueryService interface.
func (m *MockQueryService) GetSchema(ctx context.Context, ref schema.BackendRef) (schema.DataSchema, error) {
	ret := m.Called(ctx, ref)
	ds, _ := ret.Get(0).(schema.DataSchema)
	return ds, ret.Error(1)
}

// Execute implements the QueryService interface.
func (m *MockQueryService) Execute(ctx context.Context, q schema.Query) (*schema.ResultSet, error) {
	ret := m.Called(ctx, q)
	rs, _ := ret.Get(0).(*schema.ResultSet)
	return rs, ret.Error(1)
}

// MockWriteService is a mock implementation of contract.WriteService for testing.
type MockWriteService struct {
	mock.Mock
}

var _ contract.WriteService = &MockWriteService{} // Compile-time check

// BulkWrite implements the WriteService interface.
func (m *MockWriteService) BulkWrite(ctx context.Context, target schema.BackendRef, rows *schema.ResultSet) (schema.WriteResult, error) {
	ret := m.Called(ctx, target, rows)
	res, _ := ret.Get(0).(schema.WriteResult)
	return res, ret.Error(1)
}
