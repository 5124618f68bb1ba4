package content

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	ref, err := s.Put(ctx, []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, Ref([]byte("hello")), ref)
	require.Len(t, ref, 64)

	again, err := s.Put(ctx, []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, ref, again)
	require.Equal(t, 1, s.Len())

	data, err := s.Get(ctx, ref)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data)

	// Returned data is a copy
	data[0] = 'j'
	data, _ = s.Get(ctx, ref)
	require.Equal(t, []byte("hello"), data)

	_, err = s.Get(ctx, Ref([]byte("other")))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryStore().Put(ctx, []byte("x"))
	require.ErrorIs(t, err, context.Canceled)
}

// fakeIPFS serves the two API calls IPFSStore uses from a MemoryStore.
func fakeIPFS(t *testing.T) *httptest.Server {
	t.Helper()

	docs := NewMemoryStore()
	r := chi.NewRouter()
	r.Post("/api/v0/add", func(w http.ResponseWriter, r *http.Request) {
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		ref, _ := docs.Put(r.Context(), data)
		json.NewEncoder(w).Encode(&ipfsAddResponse{Name: "document", Hash: ref, Size: "5"})
	})
	r.Post("/api/v0/cat", func(w http.ResponseWriter, r *http.Request) {
		data, err := docs.Get(r.Context(), r.URL.Query().Get("arg"))
		if err != nil {
			http.Error(w, `{"Message":"block was not found locally"}`, http.StatusInternalServerError)
			return
		}
		w.Write(data)
	})

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

func TestIPFSStore(t *testing.T) {
	ctx := context.Background()
	ts := fakeIPFS(t)
	s := NewIPFSStore(ts.URL+"/", nil)

	ref, err := s.Put(ctx, []byte("some document"))
	require.NoError(t, err)
	require.Equal(t, Ref([]byte("some document")), ref)

	data, err := s.Get(ctx, ref)
	require.NoError(t, err)
	require.Equal(t, []byte("some document"), data)

	_, err = s.Get(ctx, "QmMissing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestIPFSStoreErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer ts.Close()

	s := NewIPFSStore(ts.URL, ts.Client())
	_, err := s.Put(context.Background(), []byte("x"))
	require.ErrorContains(t, err, "502")

	_, err = s.Get(context.Background(), "ref")
	require.ErrorContains(t, err, "boom")
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestNewIPFSStoreDefaults(t *testing.T) {
	s := NewIPFSStore("", nil)
	require.Equal(t, DefaultIPFSAPI, s.apiURL)
	require.NotNil(t, s.httpClient)
}
