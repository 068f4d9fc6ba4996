package remote_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/niksmo/pos-terminal/internal/adapter/remote"
	"github.com/niksmo/pos-terminal/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, h http.Handler) *remote.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := remote.NewClient(remote.Config{BaseURL: srv.URL})
	require.NoError(t, err)
	return c
}

func TestClient_ListProducts(t *testing.T) {

	t.Run("WalksAllPages", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/collections/products/records",
			func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "owner='cashier-1'",
					r.URL.Query().Get("filter"))

				page := r.URL.Query().Get("page")
				item := map[string]any{
					"id": "p-" + page, "name": "Product " + page,
					"price": "9.99", "stock": 3,
				}
				b, _ := json.Marshal(item)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"page":        atoiOr(t, page),
					"total_pages": 2,
					"items":       []json.RawMessage{b},
				})
			})

		c := newClient(t, mux)

		ps, err := c.ListProducts(t.Context(), "cashier-1")
		require.NoError(t, err)
		require.Len(t, ps, 2)
		assert.Equal(t, "p-1", ps[0].ProductID)
		assert.Equal(t, "p-2", ps[1].ProductID)
		assert.Equal(t, "9.99", ps[0].UnitPrice.String())
		assert.Equal(t, 3, ps[0].Stock)
	})
}

func TestClient_WriteStock(t *testing.T) {

	t.Run("PatchesRecord", func(t *testing.T) {
		var got map[string]int
		mux := http.NewServeMux()
		mux.HandleFunc("PATCH /api/collections/products/records/p-1",
			func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			})

		c := newClient(t, mux)

		require.NoError(t, c.WriteStock(t.Context(), "p-1", 7))
		assert.Equal(t, map[string]int{"stock": 7}, got)
	})

	t.Run("RetriesOnServerError", func(t *testing.T) {
		var n atomic.Int32
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if n.Add(1) < 3 {
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		})

		c := newClient(t, h)

		require.NoError(t, c.WriteStock(t.Context(), "p-1", 7))
		assert.Equal(t, int32(3), n.Load())
	})

	t.Run("NotFound", func(t *testing.T) {
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		})

		c := newClient(t, h)

		err := c.WriteStock(t.Context(), "p-gone", 7)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestClient_Authenticate(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/with-password",
		func(w http.ResponseWriter, r *http.Request) {
			var req map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "cashier@example.com", req["identity"])

			_ = json.NewEncoder(w).Encode(map[string]any{
				"token": "tok-abc",
				"record": map[string]string{
					"id": "u-1", "email": "cashier@example.com",
				},
			})
		})
	mux.HandleFunc("PATCH /api/collections/products/records/p-1",
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer tok-abc",
				r.Header.Get("Authorization"))
		})

	c := newClient(t, mux)

	var observed []domain.Session
	c.OnAuthChange(func(s domain.Session) {
		observed = append(observed, s)
	})

	s, err := c.Authenticate(t.Context(), "cashier@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", s.Token)
	assert.Equal(t, "u-1", s.UserID)

	// subsequent requests carry the token
	require.NoError(t, c.WriteStock(t.Context(), "p-1", 7))

	c.Logout()
	require.Len(t, observed, 2)
	assert.Equal(t, "tok-abc", observed[0].Token)
	assert.Empty(t, observed[1].Token)
}

func atoiOr(t *testing.T, s string) int {
	t.Helper()
	switch s {
	case "", "1":
		return 1
	case "2":
		return 2
	}
	t.Fatalf("unexpected page %q", s)
	return 0
}
