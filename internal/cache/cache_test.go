package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreGetSet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, ok, _ := s.Get(ctx, "missing"); ok {
		t.Fatal("expected miss for unknown key")
	}

	if err := s.SetEx(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("SetEx: %v", err)
	}
	v, ok, err := s.Get(ctx, "k")
	if err != nil || !ok || v != "v" {
		t.Fatalf("Get = (%q, %v, %v), want (v, true, nil)", v, ok, err)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()
	s.now = func() time.Time { return now }

	if err := s.SetEx(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("SetEx: %v", err)
	}

	now = now.Add(61 * time.Second)
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatal("expected entry to expire after TTL")
	}
}

func TestMemoryStoreIncr(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now()
	s.now = func() time.Time { return now }

	for i := int64(1); i <= 3; i++ {
		n, err := s.Incr(ctx, "c", time.Minute)
		if err != nil {
			t.Fatalf("Incr: %v", err)
		}
		if n != i {
			t.Fatalf("Incr = %d, want %d", n, i)
		}
	}

	// TTL is refreshed on every increment, so advancing less than a full
	// window past the last increment keeps the counter alive.
	now = now.Add(59 * time.Second)
	if n, _ := s.Incr(ctx, "c", time.Minute); n != 4 {
		t.Fatalf("counter reset early: got %d, want 4", n)
	}

	// a full window of silence expires it
	now = now.Add(61 * time.Second)
	if n, _ := s.Incr(ctx, "c", time.Minute); n != 1 {
		t.Fatalf("expected fresh counter after expiry, got %d", n)
	}
}

func TestMemoryStoreIncrByFloat(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if v, err := s.IncrByFloat(ctx, "f", 1.5); err != nil || v != 1.5 {
		t.Fatalf("IncrByFloat = (%v, %v), want (1.5, nil)", v, err)
	}
	if v, _ := s.IncrByFloat(ctx, "f", 2.25); v != 3.75 {
		t.Fatalf("IncrByFloat accumulate = %v, want 3.75", v)
	}
}

type book struct {
	Title string `json:"title"`
	Year  int    `json:"year"`
}

func TestGatewayRoundtrip(t *testing.T) {
	ctx := context.Background()
	g := NewGateway(NewMemoryStore())

	g.Set(ctx, MetaKey("walden"), book{Title: "Walden", Year: 1854}, time.Minute)

	var got book
	if !g.Get(ctx, MetaKey("walden"), &got) {
		t.Fatal("expected cache hit")
	}
	if got.Title != "Walden" || got.Year != 1854 {
		t.Fatalf("got %+v", got)
	}
}

// failingStore simulates a broken backend.
type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("connection refused")
}
func (failingStore) SetEx(context.Context, string, string, time.Duration) error {
	return errors.New("connection refused")
}
func (failingStore) IncrByFloat(context.Context, string, float64) (float64, error) {
	return 0, errors.New("connection refused")
}
func (failingStore) Incr(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("connection refused")
}
func (failingStore) Ping(context.Context) error { return errors.New("connection refused") }

func TestGatewayBackendErrorsAreSoft(t *testing.T) {
	ctx := context.Background()
	g := NewGateway(failingStore{})

	var got book
	if g.Get(ctx, "k", &got) {
		t.Fatal("backend read error must surface as a miss")
	}
	// must not panic or propagate
	g.Set(ctx, "k", book{Title: "x"}, time.Minute)
}

func TestScanKey(t *testing.T) {
	if got := ScanKey("abc123", true); got != "scan:abc123:groq_true" {
		t.Errorf("ScanKey = %q", got)
	}
	if got := ScanKey("abc123", false); got != "scan:abc123:groq_false" {
		t.Errorf("ScanKey = %q", got)
	}
}

func TestBooksHash(t *testing.T) {
	a := BooksHash([]int{3, 1, 2})
	b := BooksHash([]int{1, 2, 3, 3, 2})
	if a != b {
		t.Errorf("BooksHash not order/duplicate independent: %q vs %q", a, b)
	}
	if a == BooksHash([]int{1, 2}) {
		t.Error("different sets must hash differently")
	}
}
