package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// TestNewClient tests client construction with various options.
func TestNewClient(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := NewClient("https://api.example.com", "test-token")

		if c.baseURL != "https://api.example.com" {
			t.Errorf("baseURL = %q, want %q", c.baseURL, "https://api.example.com")
		}
		if c.token != "test-token" {
			t.Errorf("token = %q, want %q", c.token, "test-token")
		}
		if c.httpClient.Timeout != 10*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 10*time.Second)
		}
		if c.maxRetries != 3 {
			t.Errorf("maxRetries = %d, want %d", c.maxRetries, 3)
		}
		if c.logger == nil {
			t.Error("logger should not be nil")
		}
	})

	t.Run("with multiple options", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		c := NewClient("https://api.example.com", "",
			WithTimeout(15*time.Second),
			WithRetries(10, 500*time.Millisecond),
			WithLogger(logger),
		)
		if c.httpClient.Timeout != 15*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 15*time.Second)
		}
		if c.maxRetries != 10 {
			t.Errorf("maxRetries = %d, want %d", c.maxRetries, 10)
		}
		if c.retryBackoff != 500*time.Millisecond {
			t.Errorf("retryBackoff = %v, want %v", c.retryBackoff, 500*time.Millisecond)
		}
		if c.logger != logger {
			t.Error("logger not set correctly")
		}
	})

	t.Run("with custom HTTP client", func(t *testing.T) {
		customClient := &http.Client{Timeout: 10 * time.Second}
		c := NewClient("https://api.example.com", "", WithHTTPClient(customClient))
		if c.httpClient != customClient {
			t.Error("custom HTTP client not set")
		}
	})
}

// TestAPIError tests the APIError type.
func TestAPIError(t *testing.T) {
	err := &APIError{StatusCode: 404, Message: "Not Found"}
	if err.Error() != "auction api error 404: Not Found" {
		t.Errorf("Error() = %q", err.Error())
	}

	tests := []struct {
		code     int
		expected bool
	}{
		{500, true},
		{503, true},
		{429, true},
		{400, false},
		{404, false},
		{409, false},
	}

	for _, tt := range tests {
		err := &APIError{StatusCode: tt.code}
		if got := err.IsRetryable(); got != tt.expected {
			t.Errorf("IsRetryable() for status %d = %v, want %v", tt.code, got, tt.expected)
		}
	}
}

// TestDoRequest tests the HTTP request functionality.
func TestDoRequest(t *testing.T) {
	t.Run("sets headers", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Accept") != "application/json" {
				t.Errorf("Accept header = %q, want %q", r.Header.Get("Accept"), "application/json")
			}
			if r.Header.Get("Authorization") != "Bearer test-token" {
				t.Errorf("Authorization header = %q, want %q", r.Header.Get("Authorization"), "Bearer test-token")
			}
			if r.Header.Get("X-Request-ID") == "" {
				t.Error("X-Request-ID header should be set")
			}
			w.Write([]byte(`{"success": true}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "test-token")
		body, err := c.doRequest(context.Background(), http.MethodGet, "/test", nil, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(body) != `{"success": true}` {
			t.Errorf("body = %q", string(body))
		}
	})

	t.Run("request without token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "" {
				t.Errorf("Authorization header should be empty, got %q", r.Header.Get("Authorization"))
			}
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "")
		if _, err := c.doRequest(context.Background(), http.MethodGet, "/test", nil, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("4xx error returns APIError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error": "not found"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "")
		_, err := c.doRequest(context.Background(), http.MethodGet, "/test", nil, nil)

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *APIError, got %T", err)
		}
		if apiErr.StatusCode != 404 {
			t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, 404)
		}
		if !strings.Contains(string(apiErr.Body), "not found") {
			t.Errorf("Body should contain 'not found', got %q", string(apiErr.Body))
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(100 * time.Millisecond)
		}))
		defer server.Close()

		c := NewClient(server.URL, "")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.doRequest(ctx, http.MethodGet, "/test", nil, nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error should wrap context.Canceled, got %v", err)
		}
	})
}

// TestDoWithRetry tests the retry logic.
func TestDoWithRetry(t *testing.T) {
	t.Run("retries on 5xx and succeeds", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&attempts, 1) < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte(`{"ok": true}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "", WithRetries(3, 10*time.Millisecond))
		if _, err := c.doWithRetry(context.Background(), http.MethodGet, "/test", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := atomic.LoadInt32(&attempts); got != 3 {
			t.Errorf("attempts = %d, want 3", got)
		}
	})

	t.Run("does not retry on 4xx", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		c := NewClient(server.URL, "", WithRetries(3, 10*time.Millisecond))
		if _, err := c.doWithRetry(context.Background(), http.MethodGet, "/test", nil); err == nil {
			t.Fatal("expected error, got nil")
		}
		if got := atomic.LoadInt32(&attempts); got != 1 {
			t.Errorf("attempts = %d, want 1", got)
		}
	})

	t.Run("max retries exceeded", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		c := NewClient(server.URL, "", WithRetries(2, 5*time.Millisecond))
		_, err := c.doWithRetry(context.Background(), http.MethodGet, "/test", nil)
		if err == nil || !strings.Contains(err.Error(), "max retries exceeded") {
			t.Errorf("error = %v, want max retries exceeded", err)
		}
		if got := atomic.LoadInt32(&attempts); got != 3 {
			t.Errorf("attempts = %d, want 3", got)
		}
	})
}

func TestGetAuctionSnapshot(t *testing.T) {
	t.Run("decodes snapshot", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/auctions/A-1" {
				t.Errorf("path = %q, want /auctions/A-1", r.URL.Path)
			}
			w.Write([]byte(`{"success":true,"data":{"auctionId":"A-1","currentHighestBid":10000,"bidCount":3,
				"highestBidderNickname":"kim","endAt":"2026-03-01T12:00:00","minBidStep":1000,"status":"LIVE"}}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "")
		snap, err := c.GetAuctionSnapshot(context.Background(), "A-1")
		if err != nil {
			t.Fatalf("GetAuctionSnapshot failed: %v", err)
		}

		if snap.CurrentHighestBid != 10000 {
			t.Errorf("CurrentHighestBid = %d, want 10000", snap.CurrentHighestBid)
		}
		if snap.BidCount != 3 {
			t.Errorf("BidCount = %d, want 3", snap.BidCount)
		}
		if snap.HighestBidderLabel != "kim" {
			t.Errorf("HighestBidderLabel = %q, want kim", snap.HighestBidderLabel)
		}
		want := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		if !snap.EndAt.Equal(want) {
			t.Errorf("EndAt = %v, want %v", snap.EndAt, want)
		}
		if snap.MinBidStep != 1000 {
			t.Errorf("MinBidStep = %d, want 1000", snap.MinBidStep)
		}
	})

	t.Run("unparseable shape is a malformed snapshot", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"success":true,"data":{"auctionId":"A-1","bidCount":3,"endAt":"soon"}}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "")
		_, err := c.GetAuctionSnapshot(context.Background(), "A-1")
		if !errors.Is(err, ErrMalformedSnapshot) {
			t.Errorf("error = %v, want ErrMalformedSnapshot", err)
		}
	})

	t.Run("missing data", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"success":true}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "")
		_, err := c.GetAuctionSnapshot(context.Background(), "A-1")
		if !errors.Is(err, ErrMalformedResponse) {
			t.Errorf("error = %v, want ErrMalformedResponse", err)
		}
	})
}

func TestPlaceBid(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("method = %s, want POST", r.Method)
			}
			body, _ := io.ReadAll(r.Body)
			var req PlaceBidRequest
			if err := json.Unmarshal(body, &req); err != nil {
				t.Fatalf("bad body: %v", err)
			}
			if req.BidAmount != 12000 {
				t.Errorf("BidAmount = %d, want 12000", req.BidAmount)
			}
			w.Write([]byte(`{"success":true,"data":{"currentHighestBid":12000,"bidCount":4,"highestBidderNickname":"me"}}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "")
		res, err := c.PlaceBid(context.Background(), "A-1", 12000)
		if err != nil {
			t.Fatalf("PlaceBid failed: %v", err)
		}
		if res.CurrentHighestBid != 12000 || res.BidCount != 4 {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("rejection message is verbatim", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"success":false,"message":"auction already ended"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "")
		_, err := c.PlaceBid(context.Background(), "A-1", 12000)

		var rej *RejectedError
		if !errors.As(err, &rej) {
			t.Fatalf("expected *RejectedError, got %v", err)
		}
		if rej.Message != "auction already ended" {
			t.Errorf("Message = %q, want %q", rej.Message, "auction already ended")
		}
	})

	t.Run("success=false with 200", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"success":false,"message":"amount superseded"}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, "")
		_, err := c.PlaceBid(context.Background(), "A-1", 12000)

		var rej *RejectedError
		if !errors.As(err, &rej) || rej.Message != "amount superseded" {
			t.Fatalf("expected rejection, got %v", err)
		}
	})

	t.Run("never retried on 5xx", func(t *testing.T) {
		var attempts int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&attempts, 1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		c := NewClient(server.URL, "", WithRetries(5, time.Millisecond))
		if _, err := c.PlaceBid(context.Background(), "A-1", 12000); err == nil {
			t.Fatal("expected error, got nil")
		}
		if got := atomic.LoadInt32(&attempts); got != 1 {
			t.Errorf("attempts = %d, want 1", got)
		}
	})
}

func TestGetFeedPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("status") != "LIVE" {
			t.Errorf("status = %q, want LIVE", q.Get("status"))
		}
		if q.Get("cursor") != "c1" {
			t.Errorf("cursor = %q, want c1", q.Get("cursor"))
		}
		if q.Get("size") != "20" {
			t.Errorf("size = %q, want 20", q.Get("size"))
		}
		if q.Has("keyword") {
			t.Error("empty keyword should not be sent")
		}
		w.Write([]byte(`{"success":true,"data":{"items":[{"auctionId":"A-1","title":"lamp"},{"auctionId":"A-2"}],
			"cursor":"c2","hasNext":true}}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "")
	page, err := c.GetFeedPage(context.Background(), GetFeedOptions{Status: "LIVE", Cursor: "c1", Size: 20})
	if err != nil {
		t.Fatalf("GetFeedPage failed: %v", err)
	}

	if len(page.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(page.Items))
	}
	if page.Items[0].ID != "A-1" || page.Items[0].Title != "lamp" {
		t.Errorf("Items[0] = %+v", page.Items[0])
	}
	if page.Cursor != "c2" || !page.HasMore {
		t.Errorf("Cursor = %q, HasMore = %v; want c2, true", page.Cursor, page.HasMore)
	}
}

func TestGetBidsAndHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auctions/A-1/bids":
			if r.URL.Query().Get("size") != "5" {
				t.Errorf("size = %q, want 5", r.URL.Query().Get("size"))
			}
			w.Write([]byte(`{"success":true,"data":[
				{"bidder":"kim","bidAmount":12000,"bidTime":"2026-03-01T11:59:00"},
				{"bidder":"lee","bidAmount":11000,"bidTime":"2026-03-01T11:58:00"}]}`))
		case "/auctions/A-1/bids/history":
			if r.URL.Query().Get("page") != "1" {
				t.Errorf("page = %q, want 1", r.URL.Query().Get("page"))
			}
			w.Write([]byte(`{"success":true,"data":{"content":[{"bidder":"park","bidAmount":10000,"bidTime":"2026-03-01T11:00:00"}],
				"page":1,"totalPages":2,"totalElements":3,"isFirst":false,"isLast":true}}`))
		case "/auctions/A-1/bids/highest":
			w.Write([]byte(`{"success":true,"data":{"currentHighestBid":12000,"bidderNickname":"kim"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL, "")
	ctx := context.Background()

	bids, err := c.GetBids(ctx, "A-1", 5)
	if err != nil {
		t.Fatalf("GetBids failed: %v", err)
	}
	if len(bids) != 2 || bids[0].Bidder != "kim" || bids[0].BidAmount != 12000 {
		t.Errorf("bids = %+v", bids)
	}

	page, err := c.GetBidHistory(ctx, "A-1", GetBidHistoryOptions{Page: 1, Size: 2, Sort: "bidTime,desc"})
	if err != nil {
		t.Fatalf("GetBidHistory failed: %v", err)
	}
	if !page.IsLast || page.TotalElements != 3 || len(page.Content) != 1 {
		t.Errorf("page = %+v", page)
	}

	hb, err := c.GetHighestBid(ctx, "A-1")
	if err != nil {
		t.Fatalf("GetHighestBid failed: %v", err)
	}
	if hb.CurrentHighestBid != 12000 || hb.BidderNickname != "kim" {
		t.Errorf("highest = %+v", hb)
	}
}
