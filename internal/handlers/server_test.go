package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/smsorders/internal/logger"
	"github.com/nkiryanov/smsorders/internal/repository"
	"github.com/nkiryanov/smsorders/internal/repository/postgres"
	"github.com/nkiryanov/smsorders/internal/service/auth"
	"github.com/nkiryanov/smsorders/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/smsorders/internal/service/order"
	"github.com/nkiryanov/smsorders/internal/service/provision"
	"github.com/nkiryanov/smsorders/internal/service/user"
	"github.com/nkiryanov/smsorders/internal/testutil"
)

const testSenderKey = "test-sender-key"

// Number provider answering with configured status
type fakeProvider struct {
	status atomic.Int32
	calls  atomic.Int32
}

func (p *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.calls.Add(1)

	status := int(p.status.Load())
	if status != http.StatusOK {
		w.WriteHeader(status)
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]string{
		"activationId": gofakeit.UUID(),
		"number":       gofakeit.Numerify("7##########"),
	})
}

type testServer struct {
	URL      string
	auth     *auth.AuthService
	users    *user.UserService
	storage  repository.Storage
	provider *fakeProvider
}

// Run the whole service on top of transaction, rolled back when test stops
func withServer(dbpool *pgxpool.Pool, t *testing.T, fn func(s testServer)) {
	testutil.InTx(dbpool, t, func(tx pgx.Tx) {
		l := logger.NewNoOpLogger()
		storage := postgres.NewStorage(tx)

		provider := &fakeProvider{}
		provider.status.Store(http.StatusOK)
		providerSrv := httptest.NewServer(provider)
		defer providerSrv.Close()

		client, err := provision.NewClient(provision.Config{URL: providerSrv.URL}, l)
		require.NoError(t, err)

		tokenManager, err := tokenmanager.New(tokenmanager.Config{SecretKey: "test-secret"}, storage)
		require.NoError(t, err, "token manager should be created without errors")

		users := user.NewService(user.DefaultHasher, storage)
		authService, err := auth.NewService(auth.Config{}, tokenManager, users, storage)
		require.NoError(t, err, "auth service starting error", err)

		orders := order.NewService(storage, client, l)

		srv := httptest.NewServer(NewRouter(authService, orders, users, testSenderKey, l))
		defer srv.Close()

		fn(testServer{
			URL:      srv.URL,
			auth:     authService,
			users:    users,
			storage:  storage,
			provider: provider,
		})
	})
}

// Send request and return response with its body read
func doRequest(t *testing.T, method string, url string, body string, headers map[string]string) (*http.Response, string) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(t.Context(), method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close() // nolint:errcheck

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, string(b)
}

// Register user and return auth header to act on its behalf
func registerUser(t *testing.T, s testServer, username string) map[string]string {
	t.Helper()

	pair, err := s.auth.Register(t.Context(), username, "StrongEnoughPassword")
	require.NoError(t, err)

	return map[string]string{"Authorization": "Bearer " + pair.Access.Value}
}
