package crudboot

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestServer_New(t *testing.T) {
	gin.SetMode(gin.TestMode)
	server := New(nil)

	assert.NotNil(t, server)
	assert.NotNil(t, server.Engine())
	assert.NotNil(t, server.Logger())
	assert.Equal(t, RuntimeHTTP, server.runtime)
}

func TestServer_LambdaRuntime(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Setenv("LAMBDA_RUNTIME", "true")

	server := New(zap.NewNop())
	assert.Equal(t, RuntimeLambda, server.runtime)

	server.SetRuntime(RuntimeHTTP)
	assert.Equal(t, RuntimeHTTP, server.runtime)
}

func TestServer_Recovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	server := New(zap.NewNop())
	server.Engine().GET("/panic", func(c *gin.Context) {
		panic("handler failed")
	})

	w := serve(server.Engine(), http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestServer_DefaultCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	server := New(zap.NewNop()).DefaultCORS()
	server.Engine().GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := serve(server.Engine(), http.MethodOptions, "/test", "",
		"Origin", "http://localhost:3000",
		"Access-Control-Request-Method", "DELETE")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Request-Id")
}

func TestServer_CustomCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	server := New(zap.NewNop())

	origins := []string{"http://localhost:3000"}
	methods := []string{"GET", "POST"}
	headers := []string{"Content-Type"}
	maxAge := 24 * time.Hour

	server.CustomCORS(origins, methods, headers, maxAge)

	server.Engine().GET("/test", func(c *gin.Context) {
		c.Status(200)
	})

	w := serve(server.Engine(), http.MethodOptions, "/test", "",
		"Origin", "http://localhost:3000",
		"Access-Control-Request-Method", "GET")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET,POST", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", w.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
}

func TestServer_Start(t *testing.T) {
	gin.SetMode(gin.TestMode)
	server := New(zap.NewNop())

	assert.Error(t, server.Start(-1))
	assert.Error(t, server.Start(70000))
}
