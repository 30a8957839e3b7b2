package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	identityapp "github.com/billforge/backend/internal/application/identity"
	"github.com/billforge/backend/internal/domain/shared"
	"github.com/billforge/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAPIKeys struct {
	mock.Mock
}

func (m *MockAPIKeys) Create(ctx context.Context, userID string, req identityapp.CreateAPIKeyRequest) (*identityapp.CreatedAPIKeyResponse, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identityapp.CreatedAPIKeyResponse), args.Error(1)
}

func (m *MockAPIKeys) List(ctx context.Context, userID string) ([]identityapp.APIKeyResponse, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]identityapp.APIKeyResponse), args.Error(1)
}

func (m *MockAPIKeys) Revoke(ctx context.Context, userID string, id uuid.UUID) error {
	return m.Called(ctx, userID, id).Error(0)
}

func apiKeyRoutes(keys *MockAPIKeys) *gin.Engine {
	h := NewAPIKeyHandler(keys)
	r := newTestEngine("user-1")
	r.POST("/api-keys", h.Create)
	r.GET("/api-keys", h.List)
	r.DELETE("/api-keys/:id", h.Revoke)
	return r
}

func TestAPIKeyHandler_Create(t *testing.T) {
	keys := new(MockAPIKeys)
	keys.On("Create", mock.Anything, "user-1", identityapp.CreateAPIKeyRequest{Name: "ci"}).
		Return(&identityapp.CreatedAPIKeyResponse{
			APIKeyResponse: identityapp.APIKeyResponse{ID: uuid.New(), Name: "ci", Prefix: "bk_live_ab12", CreatedAt: time.Now()},
			Key:            "bk_live_ab12secret",
		}, nil)

	w := serve(apiKeyRoutes(keys), http.MethodPost, "/api-keys", map[string]string{"name": "ci"})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created identityapp.CreatedAPIKeyResponse
	decodeEnvelope(t, w, &created)
	assert.Equal(t, "bk_live_ab12secret", created.Key)
	assert.Equal(t, "ci", created.Name)
}

func TestAPIKeyHandler_List(t *testing.T) {
	keys := new(MockAPIKeys)
	keys.On("List", mock.Anything, "user-1").Return([]identityapp.APIKeyResponse{
		{ID: uuid.New(), Name: "ci", Prefix: "bk_live_ab12"},
	}, nil)

	w := serve(apiKeyRoutes(keys), http.MethodGet, "/api-keys", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `"key"`)
}

func TestAPIKeyHandler_Revoke(t *testing.T) {
	t.Run("revokes", func(t *testing.T) {
		keys := new(MockAPIKeys)
		id := uuid.New()
		keys.On("Revoke", mock.Anything, "user-1", id).Return(nil)

		w := serve(apiKeyRoutes(keys), http.MethodDelete, "/api-keys/"+id.String(), nil)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("unknown key", func(t *testing.T) {
		keys := new(MockAPIKeys)
		id := uuid.New()
		keys.On("Revoke", mock.Anything, "user-1", id).Return(shared.ErrNotFound)

		w := serve(apiKeyRoutes(keys), http.MethodDelete, "/api-keys/"+id.String(), nil)

		assertErrorCode(t, w, http.StatusNotFound, dto.ErrCodeNotFound)
	})
}
