package logger_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"checkout-service/common/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_TeesExtraSinks(t *testing.T) {
	var sink bytes.Buffer
	log, err := logger.New("production", &sink)
	require.NoError(t, err)

	log.Info("checkout session created", zap.String("session_id", "cs_test_1"))
	_ = log.Sync()

	assert.Contains(t, sink.String(), `"msg":"checkout session created"`)
	assert.Contains(t, sink.String(), `"session_id":"cs_test_1"`)
	assert.Contains(t, sink.String(), `"timestamp"`)
}

func TestRequestLogger_GeneratesAndEchoesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)

	r := gin.New()
	r.Use(logger.RequestLogger(zap.New(core)))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	requestID := w.Header().Get(logger.RequestIDHeader)
	assert.NotEmpty(t, requestID)

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, requestID, entries[0].ContextMap()["request_id"])
}

func TestRequestLogger_LevelFollowsStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)

	r := gin.New()
	r.Use(logger.RequestLogger(zap.New(core)))
	r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	for _, path := range []string{"/bad", "/boom"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set(logger.RequestIDHeader, "req-"+path[1:])
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "req-bad", entries[0].ContextMap()["request_id"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
}

func TestFromContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Set(logger.RequestIDKey, "abc")
	logger.FromContext(c, base).Info("verifying session")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "abc", logs.All()[0].ContextMap()["request_id"])
}
