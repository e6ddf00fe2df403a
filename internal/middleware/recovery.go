package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	apperrors "antigravity2api-go/internal/errors"
	"antigravity2api-go/internal/httpformat"
)

// Recovery 把 panic 转成请求面对应的 500 错误信封。
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(log.Fields{
					"error":     r,
					"stack":     string(debug.Stack()),
					"path":      c.Request.URL.Path,
					"method":    c.Request.Method,
					"client_ip": c.ClientIP(),
				}).Error("panic recovered")

				apiErr := apperrors.New(http.StatusInternalServerError, "panic_recovered", "server_error", "Internal server error")
				payload, _ := apiErr.ToJSON(httpformat.DetectFromContext(c))
				c.Abort()
				c.Data(http.StatusInternalServerError, "application/json", payload)
			}
		}()
		c.Next()
	}
}

// SafeGo runs fn on its own goroutine with panic containment, for
// background work that must never take the process down.
func SafeGo(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(log.Fields{
					"goroutine": name,
					"error":     r,
					"stack":     string(debug.Stack()),
				}).Error("goroutine panic recovered")
			}
		}()
		fn()
	}()
}
