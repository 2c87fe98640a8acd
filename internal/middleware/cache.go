package middleware

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vongdev/E-learning--sub001/internal/services"
)

// bodyCapture перехватывает тело ответа для кеширования
type bodyCapture struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func (w *bodyCapture) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// CachePage кеширует успешные GET ответы. Ключ — путь с query, бакет
// определяет вызывающий, чтобы мутации комнаты могли сбросить его целиком.
func CachePage(cacheSvc *services.CacheService, ttl time.Duration, bucketFn func(c *gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cacheSvc == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			key += "?" + c.Request.URL.RawQuery
		}

		if data, ok := cacheSvc.Get(key); ok {
			c.Data(http.StatusOK, "application/json; charset=utf-8", data)
			c.Abort()
			return
		}

		capture := &bodyCapture{ResponseWriter: c.Writer, buf: &bytes.Buffer{}}
		c.Writer = capture

		c.Next()

		if c.Writer.Status() == http.StatusOK {
			cacheSvc.Set(bucketFn(c), key, capture.buf.Bytes(), ttl)
		}
	}
}
