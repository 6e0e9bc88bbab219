package discovery

import (
	"context"
	"errors"
	"testing"
	"time"
)

// gatedSearcher blocks each search until released or cancelled
type gatedSearcher struct {
	started chan string
	release chan struct{}
}

func newGatedSearcher() *gatedSearcher {
	return &gatedSearcher{started: make(chan string, 4), release: make(chan struct{})}
}

func (g *gatedSearcher) Search(ctx context.Context, text string) (*Result, error) {
	g.started <- text
	select {
	case <-ctx.Done():
		return nil, &StageError{Stage: StageGeocode, Err: ctx.Err()}
	case <-g.release:
		return &Result{Query: text}, nil
	}
}

func TestSessionNewSearchSupersedesOld(t *testing.T) {
	g := newGatedSearcher()
	s := NewSession("s1", g)

	firstErr := make(chan error, 1)
	go func() {
		_, err := s.Search(context.Background(), "first")
		firstErr <- err
	}()
	<-g.started

	secondDone := make(chan *Result, 1)
	go func() {
		res, err := s.Search(context.Background(), "second")
		if err != nil {
			t.Errorf("second search: %v", err)
		}
		secondDone <- res
	}()
	<-g.started

	select {
	case err := <-firstErr:
		if !errors.Is(err, ErrSuperseded) {
			t.Fatalf("first search error = %v, want ErrSuperseded", err)
		}
	case <-time.After(time.Second):
		t.Fatal("first search was not cancelled")
	}

	close(g.release)
	res := <-secondDone
	if res == nil || res.Query != "second" {
		t.Fatalf("second result = %+v", res)
	}
	if cur := s.Current(); cur == nil || cur.Query != "second" {
		t.Errorf("Current = %+v, want second", cur)
	}
}

func TestSessionSameQueryJoinsInFlightSearch(t *testing.T) {
	g := newGatedSearcher()
	s := NewSession("s1", g)

	type outcome struct {
		res *Result
		err error
	}
	results := make(chan outcome, 2)
	search := func(text string) {
		res, err := s.Search(context.Background(), text)
		results <- outcome{res, err}
	}

	go search("Vellore")
	<-g.started
	go search("  Vellore ")

	select {
	case text := <-g.started:
		t.Fatalf("second search for the same text started its own run (%q)", text)
	case <-time.After(50 * time.Millisecond):
	}

	close(g.release)
	for i := 0; i < 2; i++ {
		o := <-results
		if o.err != nil {
			t.Fatalf("search %d: %v", i, o.err)
		}
		if o.res == nil || o.res.Query != "Vellore" {
			t.Fatalf("search %d result = %+v", i, o.res)
		}
	}
	if cur := s.Current(); cur == nil || cur.Query != "Vellore" {
		t.Errorf("Current = %+v", cur)
	}
}

func TestSessionFailedSearchKeepsCurrent(t *testing.T) {
	calls := 0
	s := NewSession("s1", SearcherFunc(func(ctx context.Context, text string) (*Result, error) {
		calls++
		if calls > 1 {
			return nil, &StageError{Stage: StageGeocode, Err: errors.New("upstream down")}
		}
		return &Result{Query: text}, nil
	}))

	if _, err := s.Search(context.Background(), "ok"); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if _, err := s.Search(context.Background(), "broken"); err == nil {
		t.Fatal("expected error from second search")
	}
	if cur := s.Current(); cur == nil || cur.Query != "ok" {
		t.Errorf("Current = %+v, want the last successful result", cur)
	}
}

func TestSessionRegistry(t *testing.T) {
	r := NewSessionRegistry(newGatedSearcher(), time.Minute)
	defer r.Close()

	a := r.Get("")
	if a.ID() != DefaultSessionID {
		t.Errorf("empty id mapped to %q", a.ID())
	}
	if r.Get(DefaultSessionID) != a {
		t.Error("Get should return the same session for the same id")
	}
	if _, ok := r.Lookup("unknown"); ok {
		t.Error("Lookup must not create sessions")
	}
	if r.Get("other") == a {
		t.Error("different ids must have different sessions")
	}
	if r.Len() != 2 {
		t.Errorf("Len = %d, want 2", r.Len())
	}
}

func TestSessionRegistryExpiryCancelsSearch(t *testing.T) {
	g := newGatedSearcher()
	r := NewSessionRegistry(g, 30*time.Millisecond)
	defer r.Close()

	errCh := make(chan error, 1)
	go func() {
		_, err := r.Get("idle").Search(context.Background(), "slow")
		errCh <- err
	}()
	<-g.started

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expired session search was not cancelled")
	}
}

func TestSessionRegistryReplacesStaleSession(t *testing.T) {
	g := newGatedSearcher()
	r := NewSessionRegistry(g, 20*time.Millisecond)
	// stop the janitor so the expired entry stays unswept
	r.Close()

	old := r.Get("a")
	errCh := make(chan error, 1)
	go func() {
		_, err := old.Search(context.Background(), "slow")
		errCh <- err
	}()
	<-g.started

	time.Sleep(50 * time.Millisecond)
	if fresh := r.Get("a"); fresh == old {
		t.Fatal("expired session was returned again")
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("search on the replaced session was not cancelled")
	}
}
