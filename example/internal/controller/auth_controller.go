package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/klass-lk/crudboot"
	"github.com/klass-lk/crudboot/example/internal/service"
	"go.uber.org/zap"
)

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type AuthController struct {
	authService *service.AuthService
	logger      *zap.Logger
}

func NewAuthController(authService *service.AuthService, logger *zap.Logger) *AuthController {
	return &AuthController{
		authService: authService,
		logger:      logger.With(zap.String("controller", "Auth")),
	}
}

func (c *AuthController) Routes() []crudboot.Route {
	return []crudboot.Route{
		{Method: http.MethodPost, Path: "/api/Auth/Login", Handler: c.Login},
		{Method: http.MethodPost, Path: "/api/Auth/Refresh", Handler: c.Refresh},
	}
}

func (c *AuthController) Login(ctx *gin.Context) {
	request, err := crudboot.BuildRequest[LoginRequest](ctx)
	if err != nil {
		return
	}
	tokens, err := c.authService.Login(ctx.Request.Context(), request.Username, request.Password)
	if err != nil {
		crudboot.NewContext(ctx, c.logger).SendError(err)
		return
	}
	ctx.JSON(http.StatusOK, tokens)
}

func (c *AuthController) Refresh(ctx *gin.Context) {
	request, err := crudboot.BuildRequest[RefreshRequest](ctx)
	if err != nil {
		return
	}
	tokens, err := c.authService.Refresh(ctx.Request.Context(), request.RefreshToken)
	if err != nil {
		crudboot.NewContext(ctx, c.logger).SendError(err)
		return
	}
	ctx.JSON(http.StatusOK, tokens)
}
