package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type logCall struct {
	level string
	msg   string
	args  []any
}

type fakeLogger struct {
	calls []logCall
}

func (l *fakeLogger) Info(msg string, v ...any) {
	l.calls = append(l.calls, logCall{"info", msg, v})
}

func (l *fakeLogger) Error(msg string, v ...any) {
	l.calls = append(l.calls, logCall{"error", msg, v})
}

func TestLoggerMiddleware(t *testing.T) {
	t.Run("log request", func(t *testing.T) {
		l := &fakeLogger{}
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
			_, err := w.Write([]byte("hi"))
			require.NoError(t, err, "should write response")
		})

		srv := httptest.NewServer(LoggerMiddleware(l)(h))
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/test")
		require.NoError(t, err, "should make request to test server")
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err, "should read response body")
		defer resp.Body.Close() // nolint:errcheck

		require.Equalf(t, http.StatusTeapot, resp.StatusCode, "should return status Teapot. Resp: %s", string(body))
		require.Equal(t, "hi", string(body), "should return 'hi' in response")

		require.Len(t, l.calls, 1, "logger should be called once")
		call := l.calls[0]
		require.Equal(t, "info", call.level)
		require.Equal(t, "got HTTP request", call.msg, "logger should log 'got HTTP request'")
		require.Len(t, call.args, 10, "logger should log 10 fields")
		require.Equal(t, "method", call.args[0])
		require.Equal(t, "GET", call.args[1])
		require.Equal(t, "uri", call.args[2])
		require.Equal(t, "/test", call.args[3])
		require.Equal(t, "duration", call.args[4])
		require.NotEmpty(t, call.args[5], "duration should not be empty")
		require.Equal(t, "status", call.args[6])
		require.Equal(t, http.StatusTeapot, call.args[7])
		require.Equal(t, "size", call.args[8])
		require.Equal(t, 2, call.args[9], "size should be 2 (length of 'hi')")
	})

	t.Run("server error logged as error", func(t *testing.T) {
		l := &fakeLogger{}
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		w := httptest.NewRecorder()
		LoggerMiddleware(l)(h).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/orders/app_place", nil))

		require.Len(t, l.calls, 1)
		require.Equal(t, "error", l.calls[0].level)
		require.Equal(t, http.StatusBadGateway, l.calls[0].args[7])
	})
}
