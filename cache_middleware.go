package crudboot

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const cacheHeader = "X-Cache"

// CacheKeyGenerator derives the cache key of a request.
type CacheKeyGenerator func(c *gin.Context) string

// TagGenerator returns the tags stored with a cached response.
type TagGenerator func(c *gin.Context) []string

type cacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *cacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *cacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// DefaultKeyGenerator hashes the request URL including its query string.
func DefaultKeyGenerator(c *gin.Context) string {
	hash := sha256.Sum256([]byte(c.Request.URL.String()))
	return hex.EncodeToString(hash[:])
}

// TagsOf returns a TagGenerator yielding fixed tags.
func TagsOf(tags ...string) TagGenerator {
	return func(*gin.Context) []string {
		return tags
	}
}

// CacheMiddleware serves GET requests from service and stores 200 responses
// for duration. Cache failures never fail the request; they are attached to
// the gin context and show up in the request log.
func CacheMiddleware(service CacheService, duration time.Duration, tagGen TagGenerator, keyGen CacheKeyGenerator) gin.HandlerFunc {
	if keyGen == nil {
		keyGen = DefaultKeyGenerator
	}

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := keyGen(c)
		cached, err := service.Get(c.Request.Context(), key)
		if err != nil {
			_ = c.Error(err)
		}
		if err == nil && cached != nil {
			c.Header(cacheHeader, "HIT")
			c.Data(http.StatusOK, "application/json; charset=utf-8", cached)
			c.Abort()
			return
		}

		c.Header(cacheHeader, "MISS")
		writer := &cacheWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = writer

		c.Next()

		if c.Writer.Status() != http.StatusOK {
			return
		}
		tags := []string{}
		if tagGen != nil {
			tags = tagGen(c)
		}
		if err := service.Set(context.WithoutCancel(c.Request.Context()), key, writer.body.Bytes(), tags, duration); err != nil {
			_ = c.Error(err)
		}
	}
}
