package crudboot

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CrudController exposes a CRUDService under a base path:
//
//	GET  {base}/Test
//	GET  {base}/Get/:id
//	GET  {base}/List?foreignKey=&currentPage=&rowCount=&sort=&searchPhrase=
//
// EnableWrites adds POST {base}, PUT {base}/:id and DELETE {base}/:id and
// WithCache puts a response cache in front of Get and List.
type CrudController[D DomainObject, L DomainObject, PK comparable, FK any] struct {
	name            string
	basePath        string
	service         CRUDService[D, L, PK, FK]
	logger          *zap.Logger
	writes          bool
	writeMiddleware []gin.HandlerFunc
	cache           CacheService
	cacheTTL        time.Duration
}

func NewCrudController[D DomainObject, L DomainObject, PK comparable, FK any](
	name, basePath string,
	service CRUDService[D, L, PK, FK],
	logger *zap.Logger,
) *CrudController[D, L, PK, FK] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CrudController[D, L, PK, FK]{
		name:     name,
		basePath: strings.TrimSuffix(basePath, "/"),
		service:  service,
		logger:   logger.With(zap.String("controller", name)),
	}
}

// EnableWrites registers the create, update and delete routes behind
// middleware, normally JWTAuthMiddleware.
func (ctl *CrudController[D, L, PK, FK]) EnableWrites(middleware ...gin.HandlerFunc) *CrudController[D, L, PK, FK] {
	ctl.writes = true
	ctl.writeMiddleware = middleware
	return ctl
}

// WithCache serves Get and List from cache for ttl. Successful writes through
// this controller drop the cached responses.
func (ctl *CrudController[D, L, PK, FK]) WithCache(cache CacheService, ttl time.Duration) *CrudController[D, L, PK, FK] {
	ctl.cache = cache
	ctl.cacheTTL = ttl
	return ctl
}

// CacheTag is the tag of every response cached for this controller.
func (ctl *CrudController[D, L, PK, FK]) CacheTag() string {
	return "crud:" + ctl.name
}

// Invalidate drops the cached responses of this controller. A cache failure
// is logged and otherwise ignored.
func (ctl *CrudController[D, L, PK, FK]) Invalidate(ctx context.Context) {
	if ctl.cache == nil {
		return
	}
	if err := ctl.cache.Invalidate(ctx, ctl.CacheTag()); err != nil {
		ctl.logger.Warn("unable to invalidate cache", zap.Error(err))
	}
}

func (ctl *CrudController[D, L, PK, FK]) Routes() []Route {
	var readMiddleware []gin.HandlerFunc
	if ctl.cache != nil {
		readMiddleware = append(readMiddleware, CacheMiddleware(ctl.cache, ctl.cacheTTL, TagsOf(ctl.CacheTag()), nil))
	}
	routes := []Route{
		{Method: http.MethodGet, Path: ctl.basePath + "/Test", Handler: ctl.Test},
		{Method: http.MethodGet, Path: ctl.basePath + "/Get/:id", Handler: ctl.Get, Middleware: readMiddleware},
		{Method: http.MethodGet, Path: ctl.basePath + "/List", Handler: ctl.List, Middleware: readMiddleware},
	}
	if ctl.writes {
		routes = append(routes,
			Route{Method: http.MethodPost, Path: ctl.basePath, Handler: ctl.Create, Middleware: ctl.writeMiddleware},
			Route{Method: http.MethodPut, Path: ctl.basePath + "/:id", Handler: ctl.Update, Middleware: ctl.writeMiddleware},
			Route{Method: http.MethodDelete, Path: ctl.basePath + "/:id", Handler: ctl.Delete, Middleware: ctl.writeMiddleware},
		)
	}
	return routes
}

func (ctl *CrudController[D, L, PK, FK]) Test(c *gin.Context) {
	ctx := NewContext(c, ctl.logger)
	ctx.Logger().Info("controller is reachable")
	c.String(http.StatusOK, ctl.name)
}

func (ctl *CrudController[D, L, PK, FK]) Get(c *gin.Context) {
	ctx := NewContext(c, ctl.logger)
	id, err := ParseKey[PK](c.Param("id"))
	if err != nil {
		ctx.SendError(ErrBadRequest.New("invalid id: " + c.Param("id")))
		return
	}

	domain, err := ctl.service.Load(c.Request.Context(), id)
	if err != nil {
		ctx.SendError(err)
		return
	}
	c.JSON(http.StatusOK, domain)
}

func (ctl *CrudController[D, L, PK, FK]) List(c *gin.Context) {
	ctx := NewContext(c, ctl.logger)
	request, err := BuildListRequest[FK](c)
	if err != nil {
		ctx.SendError(err)
		return
	}

	if request.Unbounded() {
		items, err := ctl.service.All(c.Request.Context(), request.ForeignKey, "", "")
		if err != nil {
			ctl.internalError(ctx, err)
			return
		}
		if len(items) == 0 {
			c.Status(http.StatusNoContent)
			return
		}
		c.JSON(http.StatusOK, items)
		return
	}

	page, err := ctl.service.List(c.Request.Context(), request.ForeignKey,
		request.Page(), request.Size(), request.Sort, request.SearchPhrase)
	if err != nil {
		ctl.internalError(ctx, err)
		return
	}
	if len(page.Items) == 0 {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (ctl *CrudController[D, L, PK, FK]) Create(c *gin.Context) {
	ctx := NewContext(c, ctl.logger)
	domain, err := BuildRequest[D](c)
	if err != nil {
		return
	}

	id, err := ctl.service.Create(c.Request.Context(), domain)
	if err != nil {
		ctx.SendError(err)
		return
	}
	ctl.Invalidate(c.Request.Context())
	ctx.Logger().Info("created", zap.String("id", keyString(id)))
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (ctl *CrudController[D, L, PK, FK]) Update(c *gin.Context) {
	ctx := NewContext(c, ctl.logger)
	id, err := ParseKey[PK](c.Param("id"))
	if err != nil {
		ctx.SendError(ErrBadRequest.New("invalid id: " + c.Param("id")))
		return
	}
	domain, err := BuildRequest[D](c)
	if err != nil {
		return
	}
	if identifiable, ok := any(domain).(interface{ SetID(PK) }); ok {
		identifiable.SetID(id)
	}

	updated, err := ctl.service.Update(c.Request.Context(), domain)
	if err != nil {
		ctx.SendError(err)
		return
	}
	if !updated {
		ctx.SendError(ErrNotFound.New(ctl.name + " " + keyString(id) + " not found"))
		return
	}
	ctl.Invalidate(c.Request.Context())
	ctx.Logger().Info("updated", zap.String("id", keyString(id)))
	c.JSON(http.StatusOK, domain)
}

func (ctl *CrudController[D, L, PK, FK]) Delete(c *gin.Context) {
	ctx := NewContext(c, ctl.logger)
	id, err := ParseKey[PK](c.Param("id"))
	if err != nil {
		ctx.SendError(ErrBadRequest.New("invalid id: " + c.Param("id")))
		return
	}

	deleted, err := ctl.service.Delete(c.Request.Context(), id)
	if err != nil {
		ctx.SendError(err)
		return
	}
	if !deleted {
		ctx.SendError(ErrNotFound.New(ctl.name + " " + keyString(id) + " not found"))
		return
	}
	ctl.Invalidate(c.Request.Context())
	ctx.Logger().Info("deleted", zap.String("id", keyString(id)))
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (ctl *CrudController[D, L, PK, FK]) internalError(ctx *Context, err error) {
	ctx.Logger().Error("list failed", zap.Error(err))
	ctx.JSON(http.StatusInternalServerError, ErrInternalError)
}
