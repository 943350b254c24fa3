package crudboot

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthContext struct {
	UserID string
	Role   string
}

// Context wraps a gin context with the logger of the controller serving it.
type Context struct {
	*gin.Context
	logger *zap.Logger
}

func NewContext(c *gin.Context, logger *zap.Logger) *Context {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Context{
		Context: c,
		logger:  logger,
	}
}

// Logger returns the controller logger annotated with the request route and,
// when authenticated, the caller.
func (c *Context) Logger() *zap.Logger {
	fields := []zap.Field{
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
	}
	if auth, ok := c.GetAuthContext(); ok {
		fields = append(fields, zap.String("user_id", auth.UserID))
	}
	return c.logger.With(fields...)
}

// GetAuthContext returns the identity stored by JWTAuthMiddleware.
func (c *Context) GetAuthContext() (AuthContext, bool) {
	userID := c.GetString(contextUserID)
	if userID == "" {
		return AuthContext{}, false
	}
	return AuthContext{
		UserID: userID,
		Role:   c.GetString(contextRole),
	}, true
}

// SendError logs err and writes it as an ApiError body.
func (c *Context) SendError(err error) {
	c.Logger().Error("request failed", zap.Error(err))
	SendError(c.Context, err)
}
