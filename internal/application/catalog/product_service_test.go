package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/marketplace/backend/internal/application/apptest"
	"github.com/marketplace/backend/internal/domain/catalog"
	"github.com/marketplace/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newProduct(t *testing.T, sellerID uuid.UUID) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(sellerID, catalog.ProductInput{
		Name:        "Camiseta",
		Description: "Algodão",
		ImageURL:    "https://img.example.com/camiseta.png",
		Price:       decimal.RequireFromString("59.95"),
	})
	require.NoError(t, err)
	p.ClearEvents()
	p.Seller = &catalog.SellerInfo{ID: sellerID, Name: "Loja Azul", Active: true}
	return p
}

func validCreateRequest() CreateProductRequest {
	return CreateProductRequest{
		Name:        "Caneca",
		Price:       decimal.RequireFromString("19.90"),
		Description: "Caneca de cerâmica",
		ImageURL:    "https://img.example.com/caneca.png",
	}
}

func TestProductService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes paging and parses price bounds", func(t *testing.T) {
		repo := new(apptest.Products)
		svc := NewProductService(repo)
		p := newProduct(t, uuid.New())

		matches := mock.MatchedBy(func(f shared.Filter) bool {
			minPrice, _ := f.Filters[catalog.FilterMinPrice].(decimal.Decimal)
			_, hasMax := f.Filters[catalog.FilterMaxPrice]
			return f.Page == 2 && f.PageSize == 10 && f.Search == "camis" &&
				minPrice.Equal(decimal.RequireFromString("10.5")) && !hasMax
		})
		repo.On("FindPublished", ctx, matches).Return([]catalog.Product{*p}, nil)
		repo.On("CountPublished", ctx, matches).Return(int64(11), nil)

		page, err := svc.List(ctx, ProductListFilter{Page: 2, Search: " camis ", MinPrice: "10.5"})
		require.NoError(t, err)

		require.Len(t, page.Items, 1)
		assert.Equal(t, "Loja Azul", page.Items[0].Seller.Name)
		assert.Equal(t, int64(11), page.Total)
		assert.Equal(t, 2, page.TotalPages)
	})

	t.Run("limit is capped", func(t *testing.T) {
		repo := new(apptest.Products)
		svc := NewProductService(repo)
		capped := mock.MatchedBy(func(f shared.Filter) bool { return f.PageSize == shared.MaxPageSize })
		repo.On("FindPublished", ctx, capped).Return([]catalog.Product{}, nil)
		repo.On("CountPublished", ctx, capped).Return(int64(0), nil)

		page, err := svc.List(ctx, ProductListFilter{Limit: 1000})
		require.NoError(t, err)
		assert.Equal(t, shared.MaxPageSize, page.PageSize)
		assert.Empty(t, page.Items)
	})

	t.Run("invalid price bound", func(t *testing.T) {
		repo := new(apptest.Products)
		svc := NewProductService(repo)

		_, err := svc.List(ctx, ProductListFilter{MaxPrice: "abc"})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)

		_, err = svc.List(ctx, ProductListFilter{MinPrice: "-1"})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		repo.AssertNotCalled(t, "FindPublished", mock.Anything, mock.Anything)
	})
}

func TestProductService_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("cache hit skips the repository", func(t *testing.T) {
		repo := new(apptest.Products)
		cache := new(apptest.ProductCache)
		svc := NewProductService(repo, WithProductCache(cache))
		p := newProduct(t, uuid.New())
		cache.On("Get", ctx, p.ID).Return(p, nil)

		resp, err := svc.GetByID(ctx, p.ID)
		require.NoError(t, err)

		assert.Equal(t, p.ID, resp.ID)
		repo.AssertNotCalled(t, "FindPurchasableByID", mock.Anything, mock.Anything)
	})

	t.Run("cache miss reads through", func(t *testing.T) {
		repo := new(apptest.Products)
		cache := new(apptest.ProductCache)
		svc := NewProductService(repo, WithProductCache(cache))
		p := newProduct(t, uuid.New())
		cache.On("Get", ctx, p.ID).Return(nil, nil)
		repo.On("FindPurchasableByID", ctx, p.ID).Return(p, nil)
		cache.On("Set", ctx, p).Return(nil)

		resp, err := svc.GetByID(ctx, p.ID)
		require.NoError(t, err)

		assert.Equal(t, "Camiseta", resp.Name)
		cache.AssertExpectations(t)
	})

	t.Run("cache errors fall back to the repository", func(t *testing.T) {
		repo := new(apptest.Products)
		cache := new(apptest.ProductCache)
		svc := NewProductService(repo, WithProductCache(cache))
		p := newProduct(t, uuid.New())
		cache.On("Get", ctx, p.ID).Return(nil, errors.New("redis down"))
		repo.On("FindPurchasableByID", ctx, p.ID).Return(p, nil)
		cache.On("Set", ctx, p).Return(errors.New("redis down"))

		resp, err := svc.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.ID, resp.ID)
	})

	t.Run("inactive product is not found", func(t *testing.T) {
		repo := new(apptest.Products)
		svc := NewProductService(repo)
		id := uuid.New()
		repo.On("FindPurchasableByID", ctx, id).Return(nil, catalog.ErrProductNotFound)

		_, err := svc.GetByID(ctx, id)
		assert.ErrorIs(t, err, catalog.ErrProductNotFound)
	})
}

func TestProductService_Create(t *testing.T) {
	ctx := context.Background()
	sellerID := uuid.New()

	t.Run("saves and publishes ProductCreated", func(t *testing.T) {
		repo := new(apptest.Products)
		publisher := new(apptest.Publisher)
		svc := NewProductService(repo)
		svc.SetEventPublisher(publisher)

		repo.On("Save", ctx, mock.AnythingOfType("*catalog.Product")).Return(nil)
		publisher.On("Publish", ctx, mock.MatchedBy(func(events []shared.DomainEvent) bool {
			return len(events) == 1 && events[0].EventType() == catalog.EventTypeProductCreated
		})).Return(nil)

		resp, err := svc.Create(ctx, sellerID, validCreateRequest())
		require.NoError(t, err)

		assert.Equal(t, sellerID, resp.SellerID)
		assert.True(t, resp.Active)
		assert.Equal(t, "19.9", resp.Price.String())
		publisher.AssertExpectations(t)
	})

	t.Run("publish failure does not fail the request", func(t *testing.T) {
		repo := new(apptest.Products)
		publisher := new(apptest.Publisher)
		svc := NewProductService(repo)
		svc.SetEventPublisher(publisher)
		repo.On("Save", ctx, mock.Anything).Return(nil)
		publisher.On("Publish", ctx, mock.Anything).Return(errors.New("bus stopped"))

		_, err := svc.Create(ctx, sellerID, validCreateRequest())
		assert.NoError(t, err)
	})

	t.Run("non-positive price is rejected", func(t *testing.T) {
		repo := new(apptest.Products)
		svc := NewProductService(repo)
		req := validCreateRequest()
		req.Price = decimal.Zero

		_, err := svc.Create(ctx, sellerID, req)
		require.Error(t, err)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestProductService_Update(t *testing.T) {
	ctx := context.Background()
	sellerID := uuid.New()

	t.Run("owner updates and cache is invalidated", func(t *testing.T) {
		repo := new(apptest.Products)
		cache := new(apptest.ProductCache)
		svc := NewProductService(repo, WithProductCache(cache))
		p := newProduct(t, sellerID)

		repo.On("FindByIDForSeller", ctx, sellerID, p.ID).Return(p, nil)
		repo.On("Save", ctx, p).Return(nil)
		cache.On("Invalidate", ctx, []uuid.UUID{p.ID}).Return(nil)

		req := UpdateProductRequest{
			Name:        "Camiseta Azul",
			Price:       decimal.RequireFromString("49.90"),
			Description: "Algodão",
			ImageURL:    "https://img.example.com/camiseta.png",
		}
		resp, err := svc.Update(ctx, sellerID, p.ID, req)
		require.NoError(t, err)

		assert.Equal(t, "Camiseta Azul", resp.Name)
		assert.Equal(t, "49.9", resp.Price.String())
		cache.AssertExpectations(t)
	})

	t.Run("other seller gets not found", func(t *testing.T) {
		repo := new(apptest.Products)
		svc := NewProductService(repo)
		id := uuid.New()
		repo.On("FindByIDForSeller", ctx, sellerID, id).Return(nil, catalog.ErrProductNotFound)

		_, err := svc.Update(ctx, sellerID, id, UpdateProductRequest{})
		assert.ErrorIs(t, err, catalog.ErrProductNotFound)
	})
}

func TestProductService_Delete(t *testing.T) {
	ctx := context.Background()
	sellerID := uuid.New()

	t.Run("soft deletes", func(t *testing.T) {
		repo := new(apptest.Products)
		cache := new(apptest.ProductCache)
		svc := NewProductService(repo, WithProductCache(cache))
		p := newProduct(t, sellerID)

		repo.On("FindByIDForSeller", ctx, sellerID, p.ID).Return(p, nil)
		repo.On("Save", ctx, mock.MatchedBy(func(saved *catalog.Product) bool { return !saved.Active })).Return(nil)
		cache.On("Invalidate", ctx, []uuid.UUID{p.ID}).Return(nil)

		require.NoError(t, svc.Delete(ctx, sellerID, p.ID))
		assert.False(t, p.Active)
		repo.AssertExpectations(t)
	})

	t.Run("already inactive", func(t *testing.T) {
		repo := new(apptest.Products)
		svc := NewProductService(repo)
		p := newProduct(t, sellerID)
		require.NoError(t, p.Deactivate())
		repo.On("FindByIDForSeller", ctx, sellerID, p.ID).Return(p, nil)

		err := svc.Delete(ctx, sellerID, p.ID)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})
}

func TestProductService_ImportCSV(t *testing.T) {
	ctx := context.Background()
	sellerID := uuid.New()

	t.Run("creates valid rows and reports the rest", func(t *testing.T) {
		repo := new(apptest.Products)
		svc := NewProductService(repo)
		csv := "name,price,description,image_url\n" +
			"Caneca,19.90,Cerâmica,https://img/a.png\n" +
			"Copo,abc,Vidro,https://img/b.png\n" +
			"Prato,\"12,50\",Louça,https://img/c.png\n"

		repo.On("SaveBatch", ctx, mock.MatchedBy(func(products []*catalog.Product) bool {
			return len(products) == 2 &&
				products[0].SellerID == sellerID &&
				products[1].Price.Equal(decimal.RequireFromString("12.50"))
		})).Return(nil)

		resp, err := svc.ImportCSV(ctx, sellerID, strings.NewReader(csv))
		require.NoError(t, err)

		assert.Equal(t, 2, resp.Created)
		require.Len(t, resp.Errors, 1)
		assert.Equal(t, 3, resp.Errors[0].Row)
		repo.AssertExpectations(t)
	})

	t.Run("no valid rows", func(t *testing.T) {
		repo := new(apptest.Products)
		svc := NewProductService(repo)
		csv := "nome,preco,descricao,url_imagem\n,1,d,u\n"

		resp, err := svc.ImportCSV(ctx, sellerID, strings.NewReader(csv))

		assert.ErrorIs(t, err, ErrNoValidRows)
		require.NotNil(t, resp)
		assert.Len(t, resp.Errors, 1)
		repo.AssertNotCalled(t, "SaveBatch", mock.Anything, mock.Anything)
	})

	t.Run("missing columns is invalid input", func(t *testing.T) {
		repo := new(apptest.Products)
		svc := NewProductService(repo)

		_, err := svc.ImportCSV(ctx, sellerID, strings.NewReader("nome,preco\nA,1\n"))
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("row limit", func(t *testing.T) {
		repo := new(apptest.Products)
		svc := NewProductService(repo, WithImportLimits(1, 0))
		csv := "nome,preco,descricao,url_imagem\nA,1,d,u\nB,1,d,u\n"

		_, err := svc.ImportCSV(ctx, sellerID, strings.NewReader(csv))
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("error limit caps the reported errors but not the total", func(t *testing.T) {
		repo := new(apptest.Products)
		svc := NewProductService(repo, WithImportLimits(0, 2))
		csv := "nome,preco,descricao,url_imagem\n,1,d,u\n,1,d,u\n,1,d,u\n"

		resp, err := svc.ImportCSV(ctx, sellerID, strings.NewReader(csv))

		assert.ErrorIs(t, err, ErrNoValidRows)
		require.NotNil(t, resp)
		assert.Len(t, resp.Errors, 2)
		assert.Equal(t, 3, resp.TotalErrors)
	})
}

func TestProductService_UploadImage(t *testing.T) {
	ctx := context.Background()
	sellerID := uuid.New()
	png := []byte("\x89PNG\r\n\x1a\n")

	t.Run("stores the image and updates the product", func(t *testing.T) {
		repo := new(apptest.Products)
		storage := new(apptest.Images)
		cache := new(apptest.ProductCache)
		svc := NewProductService(repo, WithImageStorage(storage, 0), WithProductCache(cache))
		p := newProduct(t, sellerID)

		keyPrefix := "products/" + p.ID.String() + "/"
		isKey := mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, keyPrefix) && strings.HasSuffix(key, ".png")
		})
		repo.On("FindByIDForSeller", ctx, sellerID, p.ID).Return(p, nil)
		storage.On("Upload", ctx, isKey, png, "image/png").Return(nil)
		storage.On("PublicURL", isKey).Return("https://cdn.example.com/new.png")
		repo.On("Save", ctx, p).Return(nil)
		cache.On("Invalidate", ctx, []uuid.UUID{p.ID}).Return(nil)

		resp, err := svc.UploadImage(ctx, sellerID, p.ID, "image/png", png)
		require.NoError(t, err)

		assert.Equal(t, "https://cdn.example.com/new.png", resp.ImageURL)
		storage.AssertExpectations(t)
	})

	t.Run("save failure removes the uploaded object", func(t *testing.T) {
		repo := new(apptest.Products)
		storage := new(apptest.Images)
		svc := NewProductService(repo, WithImageStorage(storage, 0))
		p := newProduct(t, sellerID)

		repo.On("FindByIDForSeller", ctx, sellerID, p.ID).Return(p, nil)
		storage.On("Upload", ctx, mock.Anything, png, "image/png").Return(nil)
		storage.On("PublicURL", mock.Anything).Return("https://cdn.example.com/new.png")
		repo.On("Save", ctx, p).Return(errors.New("db down"))
		storage.On("DeleteObject", ctx, mock.Anything).Return(nil).Once()

		_, err := svc.UploadImage(ctx, sellerID, p.ID, "image/png; charset=binary", png)
		require.Error(t, err)
		storage.AssertExpectations(t)
	})

	t.Run("rejects other content types", func(t *testing.T) {
		svc := NewProductService(new(apptest.Products), WithImageStorage(new(apptest.Images), 0))

		_, err := svc.UploadImage(ctx, sellerID, uuid.New(), "image/svg+xml", png)
		assert.ErrorIs(t, err, ErrInvalidImageType)
	})

	t.Run("rejects large images", func(t *testing.T) {
		svc := NewProductService(new(apptest.Products), WithImageStorage(new(apptest.Images), 4))

		_, err := svc.UploadImage(ctx, sellerID, uuid.New(), "image/png", png)
		assert.ErrorIs(t, err, ErrImageTooLarge)
	})

	t.Run("storage not configured", func(t *testing.T) {
		svc := NewProductService(new(apptest.Products))

		_, err := svc.UploadImage(ctx, sellerID, uuid.New(), "image/png", png)
		assert.ErrorIs(t, err, shared.ErrServiceUnavailable)
	})
}

func TestProductService_InvalidateSeller(t *testing.T) {
	ctx := context.Background()
	sellerID := uuid.New()
	repo := new(apptest.Products)
	cache := new(apptest.ProductCache)
	svc := NewProductService(repo, WithProductCache(cache))
	a, b := newProduct(t, sellerID), newProduct(t, sellerID)

	repo.On("FindBySeller", ctx, sellerID).Return([]catalog.Product{*a, *b}, nil)
	cache.On("Invalidate", ctx, []uuid.UUID{a.ID, b.ID}).Return(nil)

	require.NoError(t, svc.InvalidateSeller(ctx, sellerID))
	cache.AssertExpectations(t)

	// no cache configured is a no-op
	assert.NoError(t, NewProductService(repo).InvalidateSeller(ctx, sellerID))
}
