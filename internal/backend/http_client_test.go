package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/carpool/internal/models"
)

func TestHTTPClient_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rides/search", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		var q models.SearchQuery
		require.NoError(t, json.NewDecoder(r.Body).Decode(&q))
		json.NewEncoder(w).Encode(map[string]any{"rides": []models.RideOffer{{ID: "ride-1", Source: q.Source, Destination: q.Destination}}})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL + "/")
	offers, err := c.Search(context.Background(), models.SearchQuery{Source: "A", Destination: "B"})
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, "A", offers[0].Source)
}

func TestHTTPClient_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, models.ErrAuth},
		{http.StatusConflict, models.ErrInsufficientSeats},
		{http.StatusNotFound, models.ErrNotFound},
		{http.StatusBadRequest, models.ErrValidation},
		{http.StatusGatewayTimeout, models.ErrTimeout},
		{http.StatusInternalServerError, models.ErrNetwork},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":"nope","fields":["email"]}`))
			}))
			defer srv.Close()
			_, err := NewHTTPClient(srv.URL).Authenticate(context.Background(), "a@b.com", "pw")
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestHTTPClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	_, err := NewHTTPClient(url).PopularRoutes(context.Background())
	require.ErrorIs(t, err, models.ErrNetwork)
}
