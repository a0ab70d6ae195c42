package logging

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestInitLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := Init(Config{Level: "warn", Output: &buf})
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "shown")

	Init(Config{Level: "bogus", Output: &buf})
	require.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestMiddlewareWritesAccessLine(t *testing.T) {
	var buf bytes.Buffer
	logger := Init(Config{Level: "debug", Output: &buf})

	r := chi.NewRouter()
	r.Use(middleware.RequestID, Middleware(logger))
	r.Get("/api/facilities/{id}", func(w http.ResponseWriter, r *http.Request) {
		Ctx(r.Context()).Debug().Msg("inside")
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/facilities/7", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var inside map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &inside))
	require.NotEmpty(t, inside["request_id"])

	var access map[string]any
	require.NoError(t, json.Unmarshal(lines[1], &access))
	require.Equal(t, "warn", access["level"])
	require.Equal(t, "/api/facilities/{id}", access["route"])
	require.EqualValues(t, 404, access["status"])
	require.Equal(t, inside["request_id"], access["request_id"])
}
