package utils

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	SpanContextKey   = "span_context"
	RequestIDKey     = "request_id"
	SearchOutcomeKey = "search_outcome"
)

// SearchOutcome is what a widget request did, for the logging and tracing
// middlewares.
type SearchOutcome struct {
	View      string
	ErrorKind string
	Rejected  bool
}

func SetSearchOutcome(c *gin.Context, outcome SearchOutcome) {
	c.Set(SearchOutcomeKey, outcome)
}

func GetSearchOutcome(c *gin.Context) (SearchOutcome, bool) {
	if value, exists := c.Get(SearchOutcomeKey); exists {
		outcome, ok := value.(SearchOutcome)
		return outcome, ok
	}
	return SearchOutcome{}, false
}

// GetSpanFromGinContext extracts the span context from Gin context
func GetSpanFromGinContext(c *gin.Context) trace.Span {
	if spanCtx, exists := c.Get(SpanContextKey); exists {
		if ctx, ok := spanCtx.(context.Context); ok {
			return trace.SpanFromContext(ctx)
		}
	}
	return trace.SpanFromContext(c.Request.Context())
}

// GetContextFromGinContext extracts the context with span from Gin context
func GetContextFromGinContext(c *gin.Context) context.Context {
	if spanCtx, exists := c.Get(SpanContextKey); exists {
		if ctx, ok := spanCtx.(context.Context); ok {
			return ctx
		}
	}
	return c.Request.Context()
}

// GetRequestIDFromGinContext extracts request ID from Gin context
func GetRequestIDFromGinContext(c *gin.Context) string {
	if requestID, exists := c.Get(RequestIDKey); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return ""
}

// RequestLogger returns logger tagged with the request id and, when the
// request is traced, the trace id.
func RequestLogger(c *gin.Context, logger *zap.Logger) *zap.Logger {
	fields := []zap.Field{zap.String("request_id", GetRequestIDFromGinContext(c))}
	if sc := GetSpanFromGinContext(c).SpanContext(); sc.HasTraceID() {
		fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
	}
	return logger.With(fields...)
}
