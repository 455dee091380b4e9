package warehouse

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countingSource struct {
	calls int
	err   error
}

func (s *countingSource) Identity() string { return "counting" }

func (s *countingSource) FetchReviewsWithShipping(context.Context) ([]RawRow, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []RawRow{{ColProduct: "Parka"}}, nil
}

func TestCachedSourceServesWithinTTL(t *testing.T) {
	src := &countingSource{}
	c := NewCachedSource(src, time.Minute, nil)
	for i := 0; i < 3; i++ {
		rows, err := c.FetchReviewsWithShipping(context.Background())
		if err != nil || len(rows) != 1 {
			t.Fatalf("fetch %d: rows=%d err=%v", i, len(rows), err)
		}
	}
	if src.calls != 1 {
		t.Fatalf("source calls = %d, want 1", src.calls)
	}
}

func TestCachedSourceInvalidate(t *testing.T) {
	src := &countingSource{}
	c := NewCachedSource(src, time.Minute, nil)
	_, first, _ := c.Fetch(context.Background())
	c.Invalidate()
	_, second, _ := c.Fetch(context.Background())
	if src.calls != 2 {
		t.Fatalf("source calls = %d, want 2 after invalidate", src.calls)
	}
	if second.Before(first) {
		t.Fatalf("refetch should not be older than first fetch")
	}
}

func TestCachedSourceExpires(t *testing.T) {
	src := &countingSource{}
	c := NewCachedSource(src, 20*time.Millisecond, nil)
	_, _ = c.FetchReviewsWithShipping(context.Background())
	time.Sleep(40 * time.Millisecond)
	_, _ = c.FetchReviewsWithShipping(context.Background())
	if src.calls != 2 {
		t.Fatalf("source calls = %d, want 2 after expiry", src.calls)
	}
}

func TestCachedSourceZeroTTLDisablesCaching(t *testing.T) {
	src := &countingSource{}
	c := NewCachedSource(src, 0, nil)
	_, _ = c.FetchReviewsWithShipping(context.Background())
	_, _ = c.FetchReviewsWithShipping(context.Background())
	if src.calls != 2 {
		t.Fatalf("source calls = %d, want 2", src.calls)
	}
}

func TestCachedSourceDoesNotCacheErrors(t *testing.T) {
	src := &countingSource{err: errors.New("boom")}
	c := NewCachedSource(src, time.Minute, nil)
	if _, err := c.FetchReviewsWithShipping(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	src.err = nil
	rows, err := c.FetchReviewsWithShipping(context.Background())
	if err != nil || len(rows) != 1 {
		t.Fatalf("expected recovery after error, rows=%d err=%v", len(rows), err)
	}
}

func TestCachedSourceKeyIncludesIdentity(t *testing.T) {
	a := NewCachedSource(NewCSVSource("a.csv"), time.Minute, nil)
	b := NewCachedSource(NewCSVSource("b.csv"), time.Minute, nil)
	if a.Key() == b.Key() {
		t.Fatalf("keys should differ across connections: %s", a.Key())
	}
}
