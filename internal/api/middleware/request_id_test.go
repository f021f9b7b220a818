package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/healthbridge/healthbridge/internal/api/middleware"
)

func serveRequestID(header string) (ctxID, respID string) {
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = middleware.GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	if header != "" {
		req.Header.Set("X-Request-Id", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return ctxID, rec.Header().Get("X-Request-Id")
}

func TestRequestID_Generates(t *testing.T) {
	ctxID, respID := serveRequestID("")

	assert.True(t, strings.HasPrefix(ctxID, "req_"))
	assert.Len(t, ctxID, len("req_")+32)
	assert.Equal(t, ctxID, respID)

	other, _ := serveRequestID("")
	assert.NotEqual(t, ctxID, other)
}

func TestRequestID_PreservesCallerID(t *testing.T) {
	ctxID, respID := serveRequestID("client-req-123")

	assert.Equal(t, "client-req-123", ctxID)
	assert.Equal(t, "client-req-123", respID)
}

func TestRequestID_ReplacesUnsafeIDs(t *testing.T) {
	for name, id := range map[string]string{
		"control chars": "abc\ndef",
		"spaces":        "a b",
		"too long":      strings.Repeat("x", 129),
	} {
		t.Run(name, func(t *testing.T) {
			ctxID, _ := serveRequestID(id)
			assert.True(t, strings.HasPrefix(ctxID, "req_"))
		})
	}
}

func TestGetRequestID_Empty(t *testing.T) {
	assert.Empty(t, middleware.GetRequestID(context.Background()))
}
