// Package testutil provides shared helpers for backend tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rkshawon/interprep/internal/domain/catalog"
	"github.com/rkshawon/interprep/internal/domain/history"
	"github.com/rkshawon/interprep/internal/sandbox"
	"github.com/rkshawon/interprep/internal/shared/id"
	"github.com/rkshawon/interprep/internal/shared/types"
	"github.com/rkshawon/interprep/internal/snippet"
)

// MockServiceProvider is a mock implementation of service.Provider.
type MockServiceProvider struct {
	mock.Mock
}

// Definition mocks the Definition method.
func (m *MockServiceProvider) Definition() types.Service {
	args := m.Called()
	return args.Get(0).(types.Service)
}

// Execute mocks the Execute method.
func (m *MockServiceProvider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	args := m.Called(ctx, toolID, params, appCtx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Result), args.Error(1)
}

// NewMockServiceProvider creates a mock provider with a default
// definition under the given service ID.
func NewMockServiceProvider(t *testing.T, serviceID string) *MockServiceProvider {
	t.Helper()
	m := new(MockServiceProvider)

	m.On("Definition").Return(types.Service{
		ID:          serviceID,
		Name:        "Mock Service",
		Description: "Mock service for testing",
		Category:    types.CategoryPlayground,
		Tools:       []types.Tool{},
	}).Maybe()

	return m
}

// NewEvaluator builds a small pooled evaluator, closed via t.Cleanup.
func NewEvaluator(t *testing.T) *snippet.Evaluator {
	t.Helper()

	pool, err := sandbox.NewPool(sandbox.DefaultConfig(), 2)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return snippet.New(pool, nil)
}

// FixturePack returns a small valid pack for catalog tests.
func FixturePack(packID string) *catalog.Pack {
	return &catalog.Pack{
		ID:    packID,
		Title: "Fixture Pack",
		Topic: "testing",
		Snippets: []catalog.Snippet{
			{ID: "hello", Title: "Hello", Source: `console.log("hello")`, Expect: "hello"},
			{ID: "sum", Title: "Sum", Source: `console.log(2 + 3)`, Expect: "5"},
		},
	}
}

// NewCatalog builds a manager over a temp directory seeded with the
// given packs.
func NewCatalog(t *testing.T, packs ...*catalog.Pack) *catalog.Manager {
	t.Helper()

	manager := catalog.NewManager(t.TempDir(), 0, nil)
	for _, p := range packs {
		require.NoError(t, manager.Save(context.Background(), p))
	}
	return manager
}

// MemoryStore opens an in-memory history store, closed via t.Cleanup.
func MemoryStore(t *testing.T) *history.Store {
	t.Helper()

	store, err := history.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// SeedHistory inserts n finished runs into the store, oldest first.
// Even-indexed runs succeed, odd ones fail.
func SeedHistory(t *testing.T, store *history.Store, n int) []*history.Record {
	t.Helper()

	base := time.Now().UTC().Add(-time.Duration(n) * time.Minute)
	records := make([]*history.Record, 0, n)
	for i := 0; i < n; i++ {
		r := &history.Record{
			ID:         id.NewRunID().String(),
			Source:     `console.log("seeded")`,
			Output:     "seeded",
			OK:         i%2 == 0,
			DurationUS: int64((i + 1) * 1000),
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, store.Insert(context.Background(), r))
		records = append(records, r)
	}
	return records
}

// DoJSON performs one request against the router with an optional JSON
// body and returns the recorder.
func DoJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var data []byte
	if body != nil {
		var err error
		data, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// Decode unmarshals a recorder body into a map.
func Decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}
