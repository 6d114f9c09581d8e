package handler

import (
	"strconv"

	"crypto-checkout/internal/adapter/http/dto"
	"crypto-checkout/internal/core/domain"
	"crypto-checkout/internal/core/ports"
	"crypto-checkout/pkg/apperror"
	"crypto-checkout/pkg/response"

	"github.com/gin-gonic/gin"
)

// CatalogHandler handles the read-only product and currency catalogs.
type CatalogHandler struct {
	products   ports.ProductRepository
	currencies []domain.Currency
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(products ports.ProductRepository, currencies []domain.Currency) *CatalogHandler {
	return &CatalogHandler{products: products, currencies: currencies}
}

// ListProducts handles GET /api/v1/products.
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	products, err := h.products.List(c.Request.Context())
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}

	out := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		out = append(out, dto.ToProductResponse(&products[i]))
	}
	response.OK(c, out)
}

// GetProduct handles GET /api/v1/products/:id.
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, apperror.Validation("product id must be a positive integer"))
		return
	}

	product, err := h.products.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}
	if product == nil {
		response.Error(c, apperror.ErrProductNotFound())
		return
	}

	response.OK(c, dto.ToProductResponse(product))
}

// ListCurrencies handles GET /api/v1/currencies.
func (h *CatalogHandler) ListCurrencies(c *gin.Context) {
	out := make([]dto.CurrencyResponse, 0, len(h.currencies))
	for _, cur := range h.currencies {
		out = append(out, dto.ToCurrencyResponse(cur))
	}
	response.OK(c, out)
}
