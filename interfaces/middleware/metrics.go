package middleware

import (
	"brandhub/infrastructure/metrics"

	"github.com/gin-gonic/gin"
)

// RequestMetrics counts served requests by matched route.
func RequestMetrics() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Next()
		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequest(ctx.Request.Method, route, ctx.Writer.Status())
	}
}
