package server

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// logWriter turns each line gin writes into a record of logger.
func logWriter(logger *slog.Logger, level slog.Level) io.Writer {
	return slog.NewLogLogger(logger.Handler(), level).Writer()
}

// requestLogger is gin's access log written through slog.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return gin.LoggerWithConfig(gin.LoggerConfig{
		Output:    logWriter(logger, slog.LevelInfo),
		SkipPaths: []string{"/health"},
		Formatter: func(p gin.LogFormatterParams) string {
			line := fmt.Sprintf("%s %s %d %s %s", p.Method, p.Path, p.StatusCode, p.Latency.Round(time.Microsecond), p.ClientIP)
			if p.ErrorMessage != "" {
				line += " error=" + p.ErrorMessage
			}
			return line + "\n"
		},
	})
}

// recovery is gin's panic recovery with stack traces sent to slog.
func recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.RecoveryWithWriter(logWriter(logger, slog.LevelError))
}
