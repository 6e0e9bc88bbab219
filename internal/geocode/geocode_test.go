package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/randytsao24/carefinder/internal/models"
)

var vellore = models.Coordinates{Latitude: 12.9718, Longitude: 79.1589}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "carefinder-test", vellore, 2*time.Second)
}

func TestResolveFirstMatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %s, want /search", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("q") != "Katpadi" || q.Get("limit") != "1" || q.Get("format") != "json" {
			t.Errorf("unexpected query: %v", q)
		}
		if r.Header.Get("User-Agent") != "carefinder-test" {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		w.Write([]byte(`[{"lat":"12.9692","lon":"79.1456","display_name":"Katpadi, Vellore"}]`))
	})

	res, err := c.Resolve(context.Background(), "  Katpadi ")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.WasFallback {
		t.Error("genuine hit must not be flagged as fallback")
	}
	if res.Coordinates.Latitude != 12.9692 || res.Coordinates.Longitude != 79.1456 {
		t.Errorf("coordinates = %+v", res.Coordinates)
	}
	if res.NotFound() != nil {
		t.Error("NotFound should be nil for a hit")
	}
}

func TestResolveNoMatchFallsBack(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	res, err := c.Resolve(context.Background(), "VIT Vellore, Tamil Nadu, 632014")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.WasFallback {
		t.Fatal("expected fallback flag")
	}
	if res.Coordinates != vellore {
		t.Errorf("coordinates = %+v, want %+v", res.Coordinates, vellore)
	}
	if !errors.Is(res.NotFound(), ErrLocationNotFound) {
		t.Errorf("NotFound() = %v, want ErrLocationNotFound", res.NotFound())
	}
}

func TestResolveFailuresNeverFallBack(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		status  int
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) }, http.StatusInternalServerError},
		{"rate limited", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTooManyRequests) }, http.StatusTooManyRequests},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{not json`)) }, 0},
		{"bad latitude", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`[{"lat":"north","lon":"79.1"}]`)) }, 0},
		{"out of range", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`[{"lat":"123","lon":"79.1"}]`)) }, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, tc.handler)
			res, err := c.Resolve(context.Background(), "Vellore")

			var gerr *Error
			if !errors.As(err, &gerr) {
				t.Fatalf("error = %v, want *geocode.Error", err)
			}
			if gerr.StatusCode != tc.status {
				t.Errorf("StatusCode = %d, want %d", gerr.StatusCode, tc.status)
			}
			if res.WasFallback || res.Coordinates != (models.Coordinates{}) {
				t.Errorf("failed lookup must not substitute the default, got %+v", res)
			}
		})
	}
}

func TestResolveEmptyQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty query")
	})
	if _, err := c.Resolve(context.Background(), "   "); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("error = %v, want ErrEmptyQuery", err)
	}
}

func TestResolveHonorsContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Resolve(ctx, "Vellore")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want context.DeadlineExceeded in chain", err)
	}
}
