package controller

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klass-lk/crudboot"
	"github.com/klass-lk/crudboot/example/internal/domain"
	"github.com/klass-lk/crudboot/example/internal/service"
	"go.uber.org/zap"
)

const productPath = "/api/Product"

type RepriceRequest struct {
	CategoryID int64   `json:"categoryId" binding:"required"`
	Percent    float64 `json:"percent"`
}

type ProductController struct {
	*crudboot.CrudController[*domain.Product, *domain.ProductItem, int64, int64]
	productService  *service.ProductService
	logger          *zap.Logger
	writeMiddleware []gin.HandlerFunc
	images          crudboot.FileService
}

func NewProductController(productService *service.ProductService, logger *zap.Logger, writeMiddleware ...gin.HandlerFunc) *ProductController {
	crud := crudboot.NewCrudController[*domain.Product, *domain.ProductItem, int64, int64](
		"Product", productPath, productService, logger,
	).EnableWrites(writeMiddleware...)
	return &ProductController{
		CrudController:  crud,
		productService:  productService,
		logger:          logger,
		writeMiddleware: writeMiddleware,
	}
}

// WithImages stores one image per product in files.
func (c *ProductController) WithImages(files crudboot.FileService) *ProductController {
	c.images = files
	return c
}

func (c *ProductController) Routes() []crudboot.Route {
	routes := append(c.CrudController.Routes(), crudboot.Route{
		Method:     http.MethodPost,
		Path:       productPath + "/Reprice",
		Handler:    c.Reprice,
		Middleware: c.writeMiddleware,
	})
	if c.images != nil {
		routes = append(routes,
			crudboot.Route{Method: http.MethodGet, Path: productPath + "/Get/:id/Image", Handler: c.Image},
			crudboot.Route{Method: http.MethodPost, Path: productPath + "/:id/Image", Handler: c.ImageUploadURL, Middleware: c.writeMiddleware},
		)
	}
	return routes
}

func (c *ProductController) Reprice(ctx *gin.Context) {
	request, err := crudboot.BuildRequest[RepriceRequest](ctx)
	if err != nil {
		return
	}

	changed, err := c.productService.Reprice(ctx.Request.Context(), request.CategoryID, request.Percent)
	if err != nil {
		crudboot.NewContext(ctx, c.logger).SendError(err)
		return
	}
	if changed > 0 {
		c.Invalidate(ctx.Request.Context())
	}
	ctx.JSON(http.StatusOK, gin.H{"changed": changed})
}

func imageKey(id int64) string {
	return "products/" + strconv.FormatInt(id, 10)
}

// Image redirects to a short lived download URL of the product image.
func (c *ProductController) Image(ctx *gin.Context) {
	cc := crudboot.NewContext(ctx, c.logger)
	id, err := crudboot.ParseKey[int64](ctx.Param("id"))
	if err != nil {
		cc.SendError(crudboot.ErrBadRequest.New("invalid id: " + ctx.Param("id")))
		return
	}
	key := imageKey(id)
	exists, err := c.images.Exists(ctx.Request.Context(), key)
	if err != nil {
		cc.SendError(err)
		return
	}
	if !exists {
		cc.SendError(crudboot.ErrNotFound.New("product " + ctx.Param("id") + " has no image"))
		return
	}
	url, err := c.images.DownloadURL(ctx.Request.Context(), key, 5*time.Minute)
	if err != nil {
		cc.SendError(err)
		return
	}
	ctx.Redirect(http.StatusTemporaryRedirect, url)
}

// ImageUploadURL returns a presigned URL the client uploads the image to.
func (c *ProductController) ImageUploadURL(ctx *gin.Context) {
	cc := crudboot.NewContext(ctx, c.logger)
	id, err := crudboot.ParseKey[int64](ctx.Param("id"))
	if err != nil {
		cc.SendError(crudboot.ErrBadRequest.New("invalid id: " + ctx.Param("id")))
		return
	}
	if _, err := c.productService.Load(ctx.Request.Context(), id); err != nil {
		cc.SendError(err)
		return
	}
	url, err := c.images.UploadURL(ctx.Request.Context(), imageKey(id), 15*time.Minute)
	if err != nil {
		cc.SendError(err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"uploadUrl": url})
}
