package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicewms/dispatch-service/internal/application"
	"github.com/voicewms/dispatch-service/pkg/errors"
	"github.com/voicewms/dispatch-service/pkg/logging"
	"github.com/voicewms/dispatch-service/pkg/middleware"
)

type mockLocationService struct {
	generateLayoutFn   func(ctx context.Context, req *application.GenerateLayoutRequest) (*application.GenerateLayoutResponse, error)
	resolveFn          func(ctx context.Context, code string) (*application.AddressDTO, error)
	verifyCheckDigitFn func(ctx context.Context, code string, digit int) error
	searchAddressesFn  func(ctx context.Context, query *application.AddressQuery) ([]*application.AddressDTO, error)
	summaryFn          func(ctx context.Context) (*application.GenerateLayoutResponse, error)
}

func (m *mockLocationService) GenerateLayout(ctx context.Context, req *application.GenerateLayoutRequest) (*application.GenerateLayoutResponse, error) {
	return m.generateLayoutFn(ctx, req)
}

func (m *mockLocationService) Resolve(ctx context.Context, code string) (*application.AddressDTO, error) {
	return m.resolveFn(ctx, code)
}

func (m *mockLocationService) VerifyCheckDigit(ctx context.Context, code string, digit int) error {
	return m.verifyCheckDigitFn(ctx, code, digit)
}

func (m *mockLocationService) SearchAddresses(ctx context.Context, query *application.AddressQuery) ([]*application.AddressDTO, error) {
	return m.searchAddressesFn(ctx, query)
}

func (m *mockLocationService) Summary(ctx context.Context) (*application.GenerateLayoutResponse, error) {
	return m.summaryFn(ctx)
}

func (m *mockLocationService) Templates() []string {
	return []string{"small", "medium", "large"}
}

func setupLocationRouter(service LocationService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	middleware.InitValidator()
	logger := logging.New(logging.DefaultConfig("handlers-test"))

	router := gin.New()
	router.Use(middleware.ErrorHandler(logger))
	handlers := NewLocationHandlers(service, logger)
	handlers.RegisterRoutes(router.Group("/api/v1"))
	return router
}

func TestLocationHandlers_GenerateLayout(t *testing.T) {
	t.Run("returns 201 with generation summary", func(t *testing.T) {
		service := &mockLocationService{
			generateLayoutFn: func(ctx context.Context, req *application.GenerateLayoutRequest) (*application.GenerateLayoutResponse, error) {
				return &application.GenerateLayoutResponse{Layout: "small", Sections: 2, Addresses: 120}, nil
			},
		}
		router := setupLocationRouter(service)

		w := performRequest(router, http.MethodPost, "/api/v1/locations/generate", application.GenerateLayoutRequest{
			Template: "small",
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp application.GenerateLayoutResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 120, resp.Addresses)
	})

	t.Run("rejects unknown template at binding", func(t *testing.T) {
		router := setupLocationRouter(&mockLocationService{})

		w := performRequest(router, http.MethodPost, "/api/v1/locations/generate", map[string]any{
			"template": "galactic",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("surfaces duplicate address conflicts", func(t *testing.T) {
		service := &mockLocationService{
			generateLayoutFn: func(ctx context.Context, req *application.GenerateLayoutRequest) (*application.GenerateLayoutResponse, error) {
				return nil, errors.ErrDuplicateAddress("duplicate address: HA-001")
			},
		}
		router := setupLocationRouter(service)

		w := performRequest(router, http.MethodPost, "/api/v1/locations/generate", application.GenerateLayoutRequest{
			Template: "small",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "DUPLICATE_ADDRESS")
	})
}

func TestLocationHandlers_Resolve(t *testing.T) {
	t.Run("returns the resolved address", func(t *testing.T) {
		service := &mockLocationService{
			resolveFn: func(ctx context.Context, code string) (*application.AddressDTO, error) {
				return &application.AddressDTO{
					Code: "HA-045", Section: "H", Aisle: "A", Bay: 45,
					Ordinal: 45, CheckDigit: 14, SpokenForm: "section H, aisle A, bay 45, check 14",
				}, nil
			},
		}
		router := setupLocationRouter(service)

		w := performRequest(router, http.MethodGet, "/api/v1/locations/HA-045", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var dto application.AddressDTO
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dto))
		assert.Equal(t, 14, dto.CheckDigit)
		assert.NotEmpty(t, dto.SpokenForm)
	})

	t.Run("maps unknown section to 400", func(t *testing.T) {
		service := &mockLocationService{
			resolveFn: func(ctx context.Context, code string) (*application.AddressDTO, error) {
				return nil, errors.ErrUnknownSection("unknown section: Z")
			},
		}
		router := setupLocationRouter(service)

		w := performRequest(router, http.MethodGet, "/api/v1/locations/ZA-001", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "UNKNOWN_SECTION")
	})
}

func TestLocationHandlers_VerifyCheckDigit(t *testing.T) {
	t.Run("confirms a matching digit", func(t *testing.T) {
		service := &mockLocationService{
			verifyCheckDigitFn: func(ctx context.Context, code string, digit int) error {
				return nil
			},
		}
		router := setupLocationRouter(service)

		w := performRequest(router, http.MethodGet, "/api/v1/locations/HA-045/verify/14", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"valid":true`)
	})

	t.Run("returns 409 on mismatch", func(t *testing.T) {
		service := &mockLocationService{
			verifyCheckDigitFn: func(ctx context.Context, code string, digit int) error {
				return errors.ErrCheckDigitMismatch("check digit mismatch")
			},
		}
		router := setupLocationRouter(service)

		w := performRequest(router, http.MethodGet, "/api/v1/locations/HA-045/verify/3", nil)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "CHECK_DIGIT_MISMATCH")
	})

	t.Run("rejects a non-numeric digit", func(t *testing.T) {
		router := setupLocationRouter(&mockLocationService{})

		w := performRequest(router, http.MethodGet, "/api/v1/locations/HA-045/verify/x", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLocationHandlers_Search(t *testing.T) {
	service := &mockLocationService{
		searchAddressesFn: func(ctx context.Context, query *application.AddressQuery) ([]*application.AddressDTO, error) {
			assert.Equal(t, "H", query.Section)
			return []*application.AddressDTO{{Code: "HA-001"}, {Code: "HA-002"}}, nil
		},
	}
	router := setupLocationRouter(service)

	w := performRequest(router, http.MethodGet, "/api/v1/locations?section=H", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":2`)
}

func TestLocationHandlers_Templates(t *testing.T) {
	router := setupLocationRouter(&mockLocationService{})

	w := performRequest(router, http.MethodGet, "/api/v1/locations/templates", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "medium")
}
