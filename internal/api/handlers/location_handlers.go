package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/voicewms/dispatch-service/internal/application"
	"github.com/voicewms/dispatch-service/pkg/errors"
	"github.com/voicewms/dispatch-service/pkg/logging"
	"github.com/voicewms/dispatch-service/pkg/middleware"
)

// LocationService is the application surface the location handlers
// depend on.
type LocationService interface {
	GenerateLayout(ctx context.Context, req *application.GenerateLayoutRequest) (*application.GenerateLayoutResponse, error)
	Resolve(ctx context.Context, code string) (*application.AddressDTO, error)
	VerifyCheckDigit(ctx context.Context, code string, digit int) error
	SearchAddresses(ctx context.Context, query *application.AddressQuery) ([]*application.AddressDTO, error)
	Summary(ctx context.Context) (*application.GenerateLayoutResponse, error)
	Templates() []string
}

// LocationHandlers exposes the warehouse addressing scheme over HTTP.
type LocationHandlers struct {
	service LocationService
	logger  *logging.Logger
}

// NewLocationHandlers creates the location handler set.
func NewLocationHandlers(service LocationService, logger *logging.Logger) *LocationHandlers {
	return &LocationHandlers{service: service, logger: logger}
}

// RegisterRoutes registers location routes on the router group.
func (h *LocationHandlers) RegisterRoutes(router *gin.RouterGroup) {
	locations := router.Group("/locations")
	{
		locations.POST("/generate", h.GenerateLayout)
		locations.GET("/templates", h.Templates)
		locations.GET("/summary", h.Summary)
		locations.GET("", h.Search)
		locations.GET("/:code", h.Resolve)
		locations.GET("/:code/verify/:digit", h.VerifyCheckDigit)
	}
}

// GenerateLayout generates the address book from a template or inline
// layout.
func (h *LocationHandlers) GenerateLayout(c *gin.Context) {
	var req application.GenerateLayoutRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		middleware.AbortWithAppError(c, appErr)
		return
	}

	resp, err := h.service.GenerateLayout(c.Request.Context(), &req)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Resolve parses a location code and returns its address with check
// digit and spoken form.
func (h *LocationHandlers) Resolve(c *gin.Context) {
	addr, err := h.service.Resolve(c.Request.Context(), c.Param("code"))
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, addr)
}

// VerifyCheckDigit confirms a spoken check digit against a code.
func (h *LocationHandlers) VerifyCheckDigit(c *gin.Context) {
	digit, err := strconv.Atoi(c.Param("digit"))
	if err != nil {
		middleware.AbortWithAppError(c, errors.ErrValidation("check digit must be a number"))
		return
	}

	code := c.Param("code")
	if err := h.service.VerifyCheckDigit(c.Request.Context(), code, digit); err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": code, "checkDigit": digit, "valid": true})
}

// Search lists persisted addresses matching the query parameters.
func (h *LocationHandlers) Search(c *gin.Context) {
	var query application.AddressQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.AbortWithAppError(c, errors.ErrBadRequest("invalid query: "+err.Error()))
		return
	}

	addrs, err := h.service.SearchAddresses(c.Request.Context(), &query)
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"locations": addrs, "count": len(addrs)})
}

// Summary reports address counts for the active layout.
func (h *LocationHandlers) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context())
	if err != nil {
		middleware.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Templates lists the built-in layout templates.
func (h *LocationHandlers) Templates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"templates": h.service.Templates()})
}
