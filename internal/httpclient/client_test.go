package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fd1az/brl-arbitrage-bot/internal/ratelimit"
)

type depth struct {
	Bids [][]string `json:"bids"`
}

func newTestClient(t *testing.T, srv *httptest.Server, opts ...ClientOption) *InstrumentedClient {
	t.Helper()
	opts = append([]ClientOption{WithBaseURL(srv.URL), WithProviderName("test")}, opts...)
	c, err := NewInstrumentedClient(opts...)
	if err != nil {
		t.Fatalf("NewInstrumentedClient: %v", err)
	}
	return c
}

func TestRequest_DecodesResultAndEncodesQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"bids":[["100.5","1"]]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	var out depth
	_, err := c.NewRequest().
		SetQueryParam("symbol", "BTCBRL").
		SetQueryParam("limit", "20").
		SetResult(&out).
		Get(context.Background(), "/api/v3/depth")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if gotQuery != "limit=20&symbol=BTCBRL" {
		t.Errorf("query = %q", gotQuery)
	}
	if len(out.Bids) != 1 || out.Bids[0][0] != "100.5" {
		t.Errorf("decoded = %+v", out)
	}
}

func TestRequest_DecodeFailureIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	var out depth
	_, err := newTestClient(t, srv).NewRequest().SetResult(&out).Get(context.Background(), "/book")
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("err = %v, want ErrDecode", err)
	}
}

func TestRequest_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	_, err := c.NewRequest().Get(context.Background(), "/x")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("err = %v, want StatusError 400", err)
	}

	errCustom := errors.New("venue rejected")
	_, err = c.NewRequestWithOptions(WithResponseErrorHandler(func(status int, body []byte) error {
		return errCustom
	})).Get(context.Background(), "/x")
	if !errors.Is(err, errCustom) {
		t.Fatalf("err = %v, want handler error", err)
	}
}

func TestRequest_PostsJSONBody(t *testing.T) {
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).NewRequest().
		SetBody(map[string]string{"content": "stuck"}).
		Post(context.Background(), "/hook")
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if contentType != "application/json" {
		t.Errorf("Content-Type = %q", contentType)
	}
}

func TestRequest_WaitsOnRateLimiter(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	limiter := ratelimit.NewFromQuota(ratelimit.Quota{MaxRequests: 10, Window: 200 * time.Millisecond})
	c := newTestClient(t, srv, WithRateLimiter(limiter))

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := c.NewRequest().Get(context.Background(), "/"); err != nil {
			t.Fatalf("Get %d: %v", i, err)
		}
	}

	if elapsed := time.Since(start); elapsed < 35*time.Millisecond {
		t.Errorf("3 requests at 20ms spacing took %v, want >= 40ms", elapsed)
	}
	if hits.Load() != 3 {
		t.Errorf("hits = %d", hits.Load())
	}
}
