package mosque

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClientSearchCachesResults(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/mosques", r.URL.Path)
		assert.Equal(t, "masjid negara", r.URL.Query().Get("search"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"1","name":"Masjid Negara","city":"Kuala Lumpur","qrContent":"0002010102"}]}`))
	}))
	defer srv.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	client := NewClient(Config{
		BaseURL:  srv.URL,
		CacheTTL: time.Hour,
		Clock:    func() time.Time { return now },
	}, srv.Client(), testLogger())

	got, err := client.Search(context.Background(), "  Masjid Negara ")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Masjid Negara", got[0].Name)

	_, err = client.Search(context.Background(), "masjid negara")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "second lookup should be served from cache")

	now = now.Add(2 * time.Hour)
	_, err = client.Search(context.Background(), "masjid negara")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load(), "expired entry should refetch")
}

func TestClientSearchCollapsesConcurrentMisses(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, CacheTTL: time.Minute}, srv.Client(), testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := client.Search(context.Background(), "penang")
			assert.NoError(t, err)
			assert.Empty(t, got)
		}()
	}

	// Give the goroutines time to join the in-flight request.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestClientSearchCancelledCallerDoesNotFailOthers(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		started <- struct{}{}
		<-release
		_, _ = w.Write([]byte(`{"data":[{"id":"7","name":"Masjid Kapitan Keling"}]}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, CacheTTL: time.Minute, Timeout: 5 * time.Second}, srv.Client(), testLogger())

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := client.Search(firstCtx, "penang")
		firstErr <- err
	}()
	<-started

	type result struct {
		got []Mosque
		err error
	}
	second := make(chan result, 1)
	go func() {
		got, err := client.Search(context.Background(), "penang")
		second <- result{got, err}
	}()

	// Let the second caller join the in-flight request.
	time.Sleep(50 * time.Millisecond)
	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	res := <-second
	require.NoError(t, res.err)
	require.Len(t, res.got, 1)
	assert.Equal(t, "Masjid Kapitan Keling", res.got[0].Name)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientSearchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, CacheTTL: time.Minute}, srv.Client(), testLogger())

	_, err := client.Search(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestClientSearchEmptyQueryOmitsParameter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.RawQuery)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL + "/", CacheTTL: time.Minute}, srv.Client(), testLogger())

	got, err := client.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
