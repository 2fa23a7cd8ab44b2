package users

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/easytomanagexyz/admin-backend/internal/models"
	"github.com/easytomanagexyz/admin-backend/internal/services/tenant"
	"github.com/easytomanagexyz/admin-backend/internal/storage/repository"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) List(ctx context.Context, f models.TenantFilter) (*models.TenantPage, error) {
	args := m.Called(ctx, f)
	res, _ := args.Get(0).(*models.TenantPage)
	return res, args.Error(1)
}

func (m *MockService) Get(ctx context.Context, id string) (*models.Tenant, error) {
	args := m.Called(ctx, id)
	res, _ := args.Get(0).(*models.Tenant)
	return res, args.Error(1)
}

func (m *MockService) Update(ctx context.Context, id string, req models.UpdateTenantRequest) (*models.Tenant, error) {
	args := m.Called(ctx, id, req)
	res, _ := args.Get(0).(*models.Tenant)
	return res, args.Error(1)
}

func (m *MockService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func withID(req *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestHandler_List(t *testing.T) {
	svc := new(MockService)
	svc.On("List", mock.Anything, models.TenantFilter{PosType: "restaurant", Query: "cafe", Page: 2, Limit: 500}).
		Return(&models.TenantPage{
			Data: []models.Tenant{{ID: "t1", Name: "Cafe", DBPassword: "secret"}},
			Meta: models.PageMeta{Total: 21, Page: 2, Limit: 200},
		}, nil).Once()

	rec := httptest.NewRecorder()
	New(newNoopLogger(), svc).List(rec,
		httptest.NewRequest(http.MethodGet, "/api/admin/users?posType=restaurant&q=cafe&page=2&limit=500", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"meta":{"total":21,"page":2,"limit":200}`)
	assert.Contains(t, body, `"name":"Cafe"`)
	assert.NotContains(t, body, "secret")
	svc.AssertExpectations(t)
}

func TestHandler_List_IgnoresGarbagePaging(t *testing.T) {
	svc := new(MockService)
	svc.On("List", mock.Anything, models.TenantFilter{}).
		Return(&models.TenantPage{Data: []models.Tenant{}, Meta: models.PageMeta{Page: 1, Limit: 20}}, nil).Once()

	rec := httptest.NewRecorder()
	New(newNoopLogger(), svc).List(rec, httptest.NewRequest(http.MethodGet, "/api/admin/users?page=abc&limit=", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestHandler_Get(t *testing.T) {
	svc := new(MockService)
	svc.On("Get", mock.Anything, "t1").Return(&models.Tenant{ID: "t1", Subscriptions: []models.Subscription{{ID: "s1", Status: "active"}}}, nil).Once()
	svc.On("Get", mock.Anything, "t2").Return(nil, fmt.Errorf("tenant.Get: %w", repository.ErrNotFound)).Once()
	h := New(newNoopLogger(), svc)

	rec := httptest.NewRecorder()
	h.Get(rec, withID(httptest.NewRequest(http.MethodGet, "/api/admin/users/t1", nil), "t1"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"active"`)

	rec = httptest.NewRecorder()
	h.Get(rec, withID(httptest.NewRequest(http.MethodGet, "/api/admin/users/t2", nil), "t2"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Update(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		mockErr    error
		callsSvc   bool
		wantStatus int
		wantBody   string
	}{
		{name: "updated", body: `{"city":"Pune","subscriptionStatus":"cancelled"}`, callsSvc: true, wantStatus: http.StatusOK, wantBody: `"success":true`},
		{name: "bad email", body: `{"email":"nope"}`, wantStatus: http.StatusBadRequest, wantBody: "field Email must be a valid email"},
		{name: "bad status", body: `{"subscriptionStatus":"frozen"}`, callsSvc: true, mockErr: tenant.ErrInvalidStatus, wantStatus: http.StatusBadRequest, wantBody: "invalid subscriptionStatus"},
		{name: "blank name", body: `{"name":"  "}`, callsSvc: true, mockErr: fmt.Errorf("%w: name", tenant.ErrEmptyField), wantStatus: http.StatusBadRequest, wantBody: "field must not be empty: name"},
		{name: "email taken", body: `{"email":"taken@example.com"}`, callsSvc: true, mockErr: repository.ErrAlreadyExists, wantStatus: http.StatusConflict},
		{name: "missing tenant", body: `{"city":"Pune"}`, callsSvc: true, mockErr: repository.ErrNotFound, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			if tt.callsSvc {
				var res *models.Tenant
				if tt.mockErr == nil {
					res = &models.Tenant{ID: "t1", City: "Pune"}
				}
				svc.On("Update", mock.Anything, "t1", mock.Anything).Return(res, tt.mockErr).Once()
			}

			rec := httptest.NewRecorder()
			New(newNoopLogger(), svc).Update(rec, withID(httptest.NewRequest(http.MethodPut, "/api/admin/users/t1",
				strings.NewReader(tt.body)), "t1"))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_Delete(t *testing.T) {
	svc := new(MockService)
	svc.On("Delete", mock.Anything, "t1").Return(nil).Once()
	svc.On("Delete", mock.Anything, "t404").Return(repository.ErrNotFound).Once()
	h := New(newNoopLogger(), svc)

	rec := httptest.NewRecorder()
	h.Delete(rec, withID(httptest.NewRequest(http.MethodDelete, "/api/admin/users/t1", nil), "t1"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Delete(rec, withID(httptest.NewRequest(http.MethodDelete, "/api/admin/users/t404", nil), "t404"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
