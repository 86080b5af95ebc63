package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	catalogapp "github.com/marketplace/backend/internal/application/catalog"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/marketplace/backend/internal/interfaces/http/dto"
)

// Multipart field names
const (
	CSVFormField   = "csv"
	ImageFormField = "image"
)

// ProductService is the catalog use-case surface used by ProductHandler
type ProductService interface {
	List(ctx context.Context, filter catalogapp.ProductListFilter) (shared.Paginated[catalogapp.ProductResponse], error)
	GetByID(ctx context.Context, productID uuid.UUID) (*catalogapp.ProductResponse, error)
	ListMine(ctx context.Context, sellerID uuid.UUID) ([]catalogapp.ProductResponse, error)
	Create(ctx context.Context, sellerID uuid.UUID, req catalogapp.CreateProductRequest) (*catalogapp.ProductResponse, error)
	Update(ctx context.Context, sellerID, productID uuid.UUID, req catalogapp.UpdateProductRequest) (*catalogapp.ProductResponse, error)
	Delete(ctx context.Context, sellerID, productID uuid.UUID) error
	ImportCSV(ctx context.Context, sellerID uuid.UUID, r io.Reader) (*catalogapp.ImportResponse, error)
	UploadImage(ctx context.Context, sellerID, productID uuid.UUID, contentType string, data []byte) (*catalogapp.ProductResponse, error)
}

// ProductHandler handles the catalog endpoints
type ProductHandler struct {
	BaseHandler
	productService ProductService
	maxImageSize   int64
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService ProductService) *ProductHandler {
	return &ProductHandler{productService: productService, maxImageSize: catalogapp.DefaultMaxImageSize}
}

// List godoc
// @ID           listProducts
// @Summary      Browse the catalog
// @Description  Active products of active sellers, newest first
// @Tags         products
// @Produce      json
// @Param        page      query int    false "Page number" default(1)
// @Param        limit     query int    false "Page size" default(20)
// @Param        search    query string false "Search in name and description"
// @Param        min_price query string false "Minimum price"
// @Param        max_price query string false "Maximum price"
// @Success      200 {object} APIResponse[[]catalogapp.ProductResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /products [get]
func (h *ProductHandler) List(c *gin.Context) {
	var filter catalogapp.ProductListFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	page, err := h.productService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage(c, page)
}

// GetByID godoc
// @ID           getProduct
// @Summary      Get an active product
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /products/{id} [get]
func (h *ProductHandler) GetByID(c *gin.Context) {
	productID, ok := h.uuidParam(c, "id", catalog.ErrProductNotFound)
	if !ok {
		return
	}

	product, err := h.productService.GetByID(c.Request.Context(), productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// ListMine godoc
// @ID           listMyProducts
// @Summary      List the seller's own products
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} APIResponse[[]catalogapp.ProductResponse]
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Router       /products/seller/products [get]
func (h *ProductHandler) ListMine(c *gin.Context) {
	sellerID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	products, err := h.productService.ListMine(c.Request.Context(), sellerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, products)
}

// Create godoc
// @ID           createProduct
// @Summary      List a new product
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body catalogapp.CreateProductRequest true "Product"
// @Success      201 {object} APIResponse[catalogapp.ProductResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Router       /products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	sellerID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	var req catalogapp.CreateProductRequest
	if !h.bindJSON(c, &req) {
		return
	}

	product, err := h.productService.Create(c.Request.Context(), sellerID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, product)
}

// Update godoc
// @ID           updateProduct
// @Summary      Replace a product owned by the seller
// @Tags         products
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string                          true "Product ID" format(uuid)
// @Param        request body catalogapp.UpdateProductRequest true "Product"
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /products/{id} [put]
func (h *ProductHandler) Update(c *gin.Context) {
	sellerID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	productID, ok := h.uuidParam(c, "id", catalog.ErrProductNotFound)
	if !ok {
		return
	}
	var req catalogapp.UpdateProductRequest
	if !h.bindJSON(c, &req) {
		return
	}

	product, err := h.productService.Update(c.Request.Context(), sellerID, productID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// Delete godoc
// @ID           deleteProduct
// @Summary      Withdraw a product from sale
// @Description  Soft delete; order history keeps referencing the product
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} APIResponse[MessageData]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /products/{id} [delete]
func (h *ProductHandler) Delete(c *gin.Context) {
	sellerID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	productID, ok := h.uuidParam(c, "id", catalog.ErrProductNotFound)
	if !ok {
		return
	}

	if err := h.productService.Delete(c.Request.Context(), sellerID, productID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, MessageData{Message: "Product deactivated"})
}

// ImportCSV godoc
// @ID           importProductsCsv
// @Summary      Bulk create products from a CSV file
// @Description  Columns nome, preco, descricao, url_imagem (or name, price, description, image_url)
// @Tags         products
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        csv formData file true "CSV file"
// @Success      201 {object} APIResponse[catalogapp.ImportResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /products/upload-csv [post]
func (h *ProductHandler) ImportCSV(c *gin.Context) {
	sellerID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile(CSVFormField)
	if err != nil {
		h.formFileError(c, err, CSVFormField)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer file.Close()

	resp, err := h.productService.ImportCSV(c.Request.Context(), sellerID, file)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// UploadImage godoc
// @ID           uploadProductImage
// @Summary      Replace the product image
// @Description  JPEG, PNG or WebP up to 5MB, stored in object storage
// @Tags         products
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id    path     string true "Product ID" format(uuid)
// @Param        image formData file   true "Image file"
// @Success      200 {object} APIResponse[catalogapp.ProductResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      413 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Router       /products/{id}/image [post]
func (h *ProductHandler) UploadImage(c *gin.Context) {
	sellerID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	productID, ok := h.uuidParam(c, "id", catalog.ErrProductNotFound)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile(ImageFormField)
	if err != nil {
		h.formFileError(c, err, ImageFormField)
		return
	}
	if fileHeader.Size > h.maxImageSize {
		h.HandleError(c, catalogapp.ErrImageTooLarge)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxImageSize+1))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	product, err := h.productService.UploadImage(c.Request.Context(), sellerID, productID, contentType, data)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

func (h *ProductHandler) formFileError(c *gin.Context, err error, field string) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodePayloadTooLarge, "Request body exceeds maximum allowed size")
		return
	}
	h.BadRequest(c, "Multipart field '"+field+"' is required")
}
