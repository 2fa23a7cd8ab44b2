package password

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/easytomanagexyz/admin-backend/internal/http/middlewarectx"
	"github.com/easytomanagexyz/admin-backend/internal/services/auth"
	"github.com/easytomanagexyz/admin-backend/internal/storage/repository"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) ChangePassword(ctx context.Context, adminID, current, next string) error {
	return m.Called(ctx, adminID, current, next).Error(0)
}

func TestHandler(t *testing.T) {
	body := `{"currentPassword":"admin123","newPassword":"s3cure-pass"}`

	tests := []struct {
		name       string
		adminID    string
		body       string
		mockErr    error
		callsSvc   bool
		wantStatus int
		wantBody   string
	}{
		{name: "changed", adminID: "a1", body: body, callsSvc: true, wantStatus: http.StatusOK, wantBody: `"success":true`},
		{name: "no admin in context", body: body, wantStatus: http.StatusUnauthorized},
		{name: "short new password", adminID: "a1", body: `{"currentPassword":"x","newPassword":"short"}`, wantStatus: http.StatusBadRequest, wantBody: "field NewPassword must be at least 8 characters"},
		{name: "wrong current", adminID: "a1", body: body, callsSvc: true, mockErr: auth.ErrWrongPassword, wantStatus: http.StatusBadRequest, wantBody: auth.ErrWrongPassword.Error()},
		{name: "admin deleted", adminID: "a1", body: body, callsSvc: true, mockErr: repository.ErrNotFound, wantStatus: http.StatusNotFound},
		{name: "db failure", adminID: "a1", body: body, callsSvc: true, mockErr: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantBody: "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.callsSvc {
				svc.On("ChangePassword", mock.Anything, tt.adminID, "admin123", "s3cure-pass").Return(tt.mockErr).Once()
			}

			req := httptest.NewRequest(http.MethodPut, "/api/admin/password", strings.NewReader(tt.body))
			if tt.adminID != "" {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.AdminID, tt.adminID))
			}
			rec := httptest.NewRecorder()

			New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
			svc.AssertExpectations(t)
		})
	}
}
