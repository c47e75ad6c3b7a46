package middleware

import (
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const slowRequestThreshold = 2 * time.Second

// RequestLogger logs one structured line per request, tagged with the
// request ID assigned by the requestid middleware.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		entry := logrus.WithFields(logrus.Fields{
			"request_id": requestid.Get(c),
			"method":     c.Request.Method,
			"path":       path,
			"status":     status,
			"duration":   duration.String(),
			"client_ip":  c.ClientIP(),
		})

		if userID, ok := UserIDFromContext(c); ok {
			entry = entry.WithField("user_id", userID.Hex())
		}

		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			entry.Error("Request failed")
		case status >= 400:
			entry.Warn("Request rejected")
		case duration > slowRequestThreshold:
			entry.Warn("Slow request")
		default:
			entry.Info("Request completed")
		}
	}
}

// Recovery converts panics into 500 responses with a logged stack line
// instead of tearing down the connection.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logrus.WithFields(logrus.Fields{
			"request_id": requestid.Get(c),
			"path":       c.Request.URL.Path,
			"panic":      recovered,
		}).Error("Panic recovered in handler")

		c.AbortWithStatusJSON(500, gin.H{
			"error":   "Internal server error",
			"message": "An unexpected error occurred",
		})
	})
}
