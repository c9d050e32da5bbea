package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/relife/service-api/dataapi"
	"github.com/relife/service-api/middleware"
	"github.com/relife/service-api/models"
	"github.com/relife/service-api/repositories"
	"github.com/relife/service-api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockReportRequestRepository is a mock implementation of repositories.ReportRequestRepository
type MockReportRequestRepository struct {
	mock.Mock
}

func (m *MockReportRequestRepository) Create(ctx context.Context, req *models.ReportRequest) ([]*models.ReportRequest, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ReportRequest), args.Error(1)
}

func (m *MockReportRequestRepository) ListByUserID(ctx context.Context, userID string) ([]*models.ReportRequest, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ReportRequest), args.Error(1)
}

// MockFileRepository is a mock implementation of repositories.FileRepository
type MockFileRepository struct {
	mock.Mock
}

func (m *MockFileRepository) Upload(ctx context.Context, objectPath, contentType string, body io.Reader) (string, error) {
	data, _ := io.ReadAll(body)
	args := m.Called(ctx, objectPath, contentType, string(data))
	return args.String(0), args.Error(1)
}

func (m *MockFileRepository) ListByPrefix(ctx context.Context, prefix string) ([]*models.StorageFileInfo, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.StorageFileInfo), args.Error(1)
}

// MockPrivateRecordRepository is a mock implementation of repositories.PrivateRecordRepository
type MockPrivateRecordRepository struct {
	mock.Mock
}

func (m *MockPrivateRecordRepository) List(ctx context.Context) ([]models.PrivateRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PrivateRecord), args.Error(1)
}

// fakeProvider records which handle kind was requested
type fakeProvider struct {
	reports      *MockReportRequestRepository
	files        *MockFileRepository
	private      *MockPrivateRecordRepository
	forUserCalls []*models.AuthenticatedIdentity
	serviceCalls int
	forUserErr   error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		reports: new(MockReportRequestRepository),
		files:   new(MockFileRepository),
		private: new(MockPrivateRecordRepository),
	}
}

func (p *fakeProvider) ForUser(identity *models.AuthenticatedIdentity) (*repositories.UserRepositories, error) {
	p.forUserCalls = append(p.forUserCalls, identity)
	if p.forUserErr != nil {
		return nil, p.forUserErr
	}
	return &repositories.UserRepositories{ReportRequests: p.reports, Files: p.files}, nil
}

func (p *fakeProvider) ForService() *repositories.ServiceRepositories {
	p.serviceCalls++
	return &repositories.ServiceRepositories{PrivateRecords: p.private}
}

func userIdentity() *models.AuthenticatedIdentity {
	return models.NewAuthenticatedIdentity("tok-A", models.IdentityRecord{
		UserID:   "u1",
		Email:    "u1@example.com",
		Metadata: models.NewIdentityMetadata(map[string]interface{}{"iss": "https://idp/realms/r1", "provider_id": "sub-1"}),
	}, "relife_admin")
}

func withIdentity(req *http.Request, identity *models.AuthenticatedIdentity) *http.Request {
	return req.WithContext(middleware.WithIdentity(req.Context(), identity))
}

func TestHandleHealth(t *testing.T) {
	handler := NewHealthHandler(zap.NewNop())
	handler.now = func() time.Time { return time.Unix(1700000000, 0) }

	w := httptest.NewRecorder()
	handler.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","timestamp":1700000000}`, w.Body.String())
}

func TestHandleWhoAmI(t *testing.T) {
	handler := NewIdentityHandler(zap.NewNop())

	t.Run("renders identity with roles", func(t *testing.T) {
		identity := userIdentity().WithRoles([]models.Role{{ID: "1", Name: "relife_admin"}})
		req := withIdentity(httptest.NewRequest(http.MethodGet, "/whoami", nil), identity)
		w := httptest.NewRecorder()

		handler.HandleWhoAmI(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "tok-A")

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "u1", body["user_id"])
		assert.Equal(t, true, body["is_admin"])
		roles, ok := body["keycloak_roles"].([]interface{})
		require.True(t, ok)
		assert.Len(t, roles, 1)
	})

	t.Run("no identity is 401", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.HandleWhoAmI(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestReportHandler(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("create inserts a request owned by the caller", func(t *testing.T) {
		provider := newFakeProvider()
		handler := NewReportHandler(provider, zap.NewNop())
		handler.now = func() time.Time { return now }

		stored := []*models.ReportRequest{{ID: 1, UserID: "u1", Description: "d"}}
		provider.reports.On("Create", mock.Anything, mock.MatchedBy(func(r *models.ReportRequest) bool {
			return r.UserID == "u1" && r.Description == "Request generated at 2024-05-01T10:00:00Z for testing purposes"
		})).Return(stored, nil)

		w := httptest.NewRecorder()
		handler.HandleCreate(w, withIdentity(httptest.NewRequest(http.MethodPost, "/report-request", nil), userIdentity()))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[{"id":1,"user_id":"u1","description":"d"}]`, w.Body.String())
		require.Len(t, provider.forUserCalls, 1)
		assert.Equal(t, "tok-A", provider.forUserCalls[0].Credential())
		assert.Equal(t, 0, provider.serviceCalls)
		provider.reports.AssertExpectations(t)
	})

	t.Run("list filters by caller", func(t *testing.T) {
		provider := newFakeProvider()
		handler := NewReportHandler(provider, zap.NewNop())
		provider.reports.On("ListByUserID", mock.Anything, "u1").Return([]*models.ReportRequest{}, nil)

		w := httptest.NewRecorder()
		handler.HandleList(w, withIdentity(httptest.NewRequest(http.MethodGet, "/report-request", nil), userIdentity()))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
		provider.reports.AssertExpectations(t)
	})

	t.Run("data API failure is 502 without upstream details", func(t *testing.T) {
		provider := newFakeProvider()
		handler := NewReportHandler(provider, zap.NewNop())
		provider.reports.On("ListByUserID", mock.Anything, "u1").
			Return(nil, &dataapi.APIError{Op: "select", StatusCode: 500, Body: "relation does not exist"})

		w := httptest.NewRecorder()
		handler.HandleList(w, withIdentity(httptest.NewRequest(http.MethodGet, "/report-request", nil), userIdentity()))

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), services.ErrDataAPIUnavailable.Message)
		assert.NotContains(t, w.Body.String(), "relation does not exist")
	})

	t.Run("identity without credential is 401", func(t *testing.T) {
		provider := newFakeProvider()
		provider.forUserErr = dataapi.ErrNoCredential
		handler := NewReportHandler(provider, zap.NewNop())

		w := httptest.NewRecorder()
		handler.HandleList(w, withIdentity(httptest.NewRequest(http.MethodGet, "/report-request", nil), userIdentity()))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAdminHandler(t *testing.T) {
	t.Run("admin reads private table with service handle", func(t *testing.T) {
		provider := newFakeProvider()
		handler := NewAdminHandler(provider, zap.NewNop())
		provider.private.On("List", mock.Anything).Return([]models.PrivateRecord{{"id": float64(1)}}, nil)

		identity := userIdentity().WithRoles([]models.Role{{ID: "1", Name: "relife_admin"}})
		w := httptest.NewRecorder()
		handler.HandleListUsers(w, withIdentity(httptest.NewRequest(http.MethodGet, "/admin/users", nil), identity))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[{"id":1}]`, w.Body.String())
		assert.Equal(t, 1, provider.serviceCalls)
		assert.Empty(t, provider.forUserCalls)
	})

	forbidden := []struct {
		name     string
		identity *models.AuthenticatedIdentity
	}{
		{"no roles resolved", userIdentity()},
		{"empty roles", userIdentity().WithRoles([]models.Role{})},
		{"non-admin", userIdentity().WithRoles([]models.Role{{ID: "2", Name: "viewer"}})},
	}

	for _, tt := range forbidden {
		t.Run(tt.name+" is 403 and never builds the service handle", func(t *testing.T) {
			provider := newFakeProvider()
			handler := NewAdminHandler(provider, zap.NewNop())

			w := httptest.NewRecorder()
			handler.HandleListUsers(w, withIdentity(httptest.NewRequest(http.MethodGet, "/admin/users", nil), tt.identity))

			assert.Equal(t, http.StatusForbidden, w.Code)
			assert.Equal(t, 0, provider.serviceCalls)
		})
	}
}

func multipartRequest(t *testing.T, field, filename, contentType, content string) *http.Request {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if field != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
		h.Set("Content-Type", contentType)
		part, err := writer.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/storage", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return withIdentity(req, userIdentity())
}

func TestStorageHandler_Upload(t *testing.T) {
	t.Run("uploads into the caller's folder", func(t *testing.T) {
		provider := newFakeProvider()
		handler := NewStorageHandler(provider, zap.NewNop())
		provider.files.On("Upload", mock.Anything, "u1/report.pdf", "application/pdf", "%PDF-1.4").
			Return("https://project.supabase.co/storage/v1/object/public/example_bucket/u1/report.pdf", nil)

		w := httptest.NewRecorder()
		handler.HandleUpload(w, multipartRequest(t, "file", "report.pdf", "application/pdf", "%PDF-1.4"))

		assert.Equal(t, http.StatusOK, w.Code)
		var resp models.FileUploadResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "File uploaded successfully", resp.Message)
		assert.Equal(t, "u1/report.pdf", resp.Path)
		assert.Contains(t, resp.PublicURL, "/u1/report.pdf")
		provider.files.AssertExpectations(t)
	})

	t.Run("missing file is 400", func(t *testing.T) {
		provider := newFakeProvider()
		handler := NewStorageHandler(provider, zap.NewNop())

		w := httptest.NewRecorder()
		handler.HandleUpload(w, multipartRequest(t, "", "", "", ""))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		provider.files.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid file name is 400", func(t *testing.T) {
		provider := newFakeProvider()
		handler := NewStorageHandler(provider, zap.NewNop())

		w := httptest.NewRecorder()
		handler.HandleUpload(w, multipartRequest(t, "file", `..`, "text/plain", "x"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), services.ErrInvalidFilename.Message)
		assert.Contains(t, w.Body.String(), `"Filename"`)
		provider.files.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("not multipart is 400", func(t *testing.T) {
		provider := newFakeProvider()
		handler := NewStorageHandler(provider, zap.NewNop())

		req := withIdentity(httptest.NewRequest(http.MethodPost, "/storage", bytes.NewBufferString("{}")), userIdentity())
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		handler.HandleUpload(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), services.ErrInvalidInput.Message)
	})

	t.Run("storage failure is 502", func(t *testing.T) {
		provider := newFakeProvider()
		handler := NewStorageHandler(provider, zap.NewNop())
		provider.files.On("Upload", mock.Anything, "u1/a.txt", "text/plain", "hello").
			Return("", errors.New("bucket not found"))

		w := httptest.NewRecorder()
		handler.HandleUpload(w, multipartRequest(t, "file", "a.txt", "text/plain", "hello"))

		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), services.ErrStorageUnavailable.Message)
		assert.NotContains(t, w.Body.String(), "bucket not found")
	})
}

func TestStorageHandler_List(t *testing.T) {
	provider := newFakeProvider()
	handler := NewStorageHandler(provider, zap.NewNop())
	provider.files.On("ListByPrefix", mock.Anything, "u1").Return([]*models.StorageFileInfo{
		{Name: "a.txt", Size: 5, CreatedAt: "2024-05-01T10:00:00Z", PublicURL: "https://x/u1/a.txt"},
	}, nil)

	w := httptest.NewRecorder()
	handler.HandleList(w, withIdentity(httptest.NewRequest(http.MethodGet, "/storage", nil), userIdentity()))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"name":"a.txt","size":5,"created_at":"2024-05-01T10:00:00Z","public_url":"https://x/u1/a.txt"}]`, w.Body.String())
	provider.files.AssertExpectations(t)
}
