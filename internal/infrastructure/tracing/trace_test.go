package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/rkshawon/interprep/internal/logging"
)

func TestStartSpanPropagation(t *testing.T) {
	tracer := New("test", logging.NewNop())

	parent, ctx := tracer.StartSpan(context.Background(), "outer")
	if parent.TraceID == "" || parent.SpanID == "" {
		t.Fatalf("span missing ids: %+v", parent)
	}
	if parent.ParentID != "" {
		t.Errorf("root span has parent %q", parent.ParentID)
	}

	child, _ := tracer.StartSpan(ctx, "inner")
	if child.TraceID != parent.TraceID {
		t.Errorf("child trace = %s, want %s", child.TraceID, parent.TraceID)
	}
	if child.ParentID != parent.SpanID {
		t.Errorf("child parent = %s, want %s", child.ParentID, parent.SpanID)
	}
}

func TestGetTraceIDFromContext(t *testing.T) {
	tracer := New("test", logging.NewNop())

	span, ctx := tracer.StartSpan(context.Background(), "op")
	if got := GetTraceID(ctx); got != span.TraceID {
		t.Errorf("GetTraceID = %s, want %s", got, span.TraceID)
	}
	if got := GetSpanID(ctx); got != span.SpanID {
		t.Errorf("GetSpanID = %s, want %s", got, span.SpanID)
	}
	if got := GetTraceID(context.Background()); got != "" {
		t.Errorf("empty context trace = %q", got)
	}
}

func TestHTTPMiddlewareHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tracer := New("test", logging.NewNop())

	router := gin.New()
	router.Use(HTTPMiddleware(tracer))
	router.GET("/ping", func(c *gin.Context) {
		if GetTraceID(c.Request.Context()) == "" {
			t.Error("handler context missing trace id")
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Header().Get("X-Trace-ID") == "" {
		t.Error("response missing X-Trace-ID")
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Trace-ID", "trace_upstream")
	router.ServeHTTP(w, req)
	if got := w.Header().Get("X-Trace-ID"); got != "trace_upstream" {
		t.Errorf("trace id = %q, want trace_upstream", got)
	}
}
