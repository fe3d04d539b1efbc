package client

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"BitcaskDB/internal/domain"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/db/clave", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req SaveEntryRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		assert.NoError(t, err)
		assert.Equal(t, "valor", req.Value)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(EntryResponse{Key: "clave", Value: req.Value})
	}))
	defer server.Close()

	cli := NewKvClient(server.URL)
	resp, err := cli.Set("clave", "valor")

	assert.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Equal(t, "clave", resp.Key)
	assert.Equal(t, "valor", resp.Value)
}

func TestGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		if r.URL.Path != "/db/known" {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(EntryResponse{Key: "known", Value: "42"})
	}))
	defer server.Close()

	cli := NewKvClient(server.URL)

	value, found, err := cli.Get("known")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "42", value)

	_, found, err = cli.Get("unknown")
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestRemove(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		if r.URL.Path != "/db/known" {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(EntryResponse{Key: "known", Tombstone: true})
	}))
	defer server.Close()

	cli := NewKvClient(server.URL)

	assert.NoError(t, cli.Remove("known"))
	assert.ErrorIs(t, cli.Remove("unknown"), domain.ErrKeyNotFound)
}
