package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "fleetlink/pkg/errors"
	httputil "fleetlink/pkg/http"
	"fleetlink/pkg/logger"
	"fleetlink/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockVehicleService struct {
	createFunc  func(ctx context.Context, v *model.Vehicle) error
	getByIDFunc func(ctx context.Context, id string) (*model.Vehicle, error)
	getAllFunc  func(ctx context.Context, limit int, offset int64) ([]*model.Vehicle, int64, error)
	deleteFunc  func(ctx context.Context, id string) error
}

func (m *mockVehicleService) Create(ctx context.Context, v *model.Vehicle) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, v)
	}
	return nil
}

func (m *mockVehicleService) GetByID(ctx context.Context, id string) (*model.Vehicle, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, apperrors.NotFoundWithID("Vehicle", id)
}

func (m *mockVehicleService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Vehicle, int64, error) {
	if m.getAllFunc != nil {
		return m.getAllFunc(ctx, limit, offset)
	}
	return []*model.Vehicle{}, 0, nil
}

func (m *mockVehicleService) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockVehicleService) ListByMinCapacity(context.Context, int) ([]*model.Vehicle, error) {
	return nil, nil
}

func (m *mockVehicleService) Exists(context.Context, string) error { return nil }

func (m *mockVehicleService) GetByIDs(context.Context, []string) (map[string]*model.Vehicle, error) {
	return nil, nil
}

func (m *mockVehicleService) GuardBooking(context.Context, string) error { return nil }

func newRouter(svc *mockVehicleService) *httprouter.Router {
	router := httprouter.New()
	NewVehicleHandler(svc, logger.Discard()).RegisterRoutes(router)
	return router
}

func TestCreate_Returns201WithAssignedID(t *testing.T) {
	router := newRouter(&mockVehicleService{
		createFunc: func(_ context.Context, v *model.Vehicle) error {
			v.ID = "64f5b7e2e3e4e6a1a2a2a2a1"
			return nil
		},
	})

	body := `{"name":"Tata Ace","capacity_kg":750,"tyres":4}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/vehicles", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data model.Vehicle `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "64f5b7e2e3e4e6a1a2a2a2a1", resp.Data.ID)
	assert.Equal(t, 750, resp.Data.CapacityKg)
}

func TestCreate_MalformedBody(t *testing.T) {
	router := newRouter(&mockVehicleService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/vehicles", strings.NewReader(`{"name":`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp httputil.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, apperrors.CodeInvalidInput, resp.Code)
}

func TestGetByID_NotFound(t *testing.T) {
	router := newRouter(&mockVehicleService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/vehicles/id/64f5b7e2e3e4e6a1a2a2a2ff", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAll_QueryParameters(t *testing.T) {
	var gotLimit int
	var gotOffset int64
	router := newRouter(&mockVehicleService{
		getAllFunc: func(_ context.Context, limit int, offset int64) ([]*model.Vehicle, int64, error) {
			gotLimit, gotOffset = limit, offset
			return []*model.Vehicle{{Name: "Tata Ace"}}, 7, nil
		},
	})

	tests := []struct {
		name       string
		query      string
		wantCode   int
		wantLimit  int
		wantOffset int64
	}{
		{"defaults", "", http.StatusOK, 10, 0},
		{"explicit", "?limit=5&offset=2", http.StatusOK, 5, 2},
		{"limit clamped", "?limit=10000", http.StatusOK, 100, 0},
		{"negative offset", "?offset=-3", http.StatusOK, 10, 0},
		{"non numeric limit", "?limit=abc", http.StatusBadRequest, 0, 0},
		{"non numeric offset", "?offset=1.5", http.StatusBadRequest, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotLimit, gotOffset = 0, 0

			req := httptest.NewRequest(http.MethodGet, "/api/v1/vehicles"+tt.query, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode != http.StatusOK {
				return
			}
			assert.Equal(t, tt.wantLimit, gotLimit)
			assert.Equal(t, tt.wantOffset, gotOffset)

			var resp httputil.PaginatedResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, int64(7), resp.TotalCount)
			assert.Equal(t, tt.wantLimit, resp.Limit)
		})
	}
}

func TestDelete_NoContent(t *testing.T) {
	var deleted string
	router := newRouter(&mockVehicleService{
		deleteFunc: func(_ context.Context, id string) error {
			deleted = id
			return nil
		},
	})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/vehicles/id/64f5b7e2e3e4e6a1a2a2a2a1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "64f5b7e2e3e4e6a1a2a2a2a1", deleted)
}
