package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLimiterWaitDelaysSameHost(t *testing.T) {
	var (
		mu       sync.Mutex
		observed []string
	)
	// 10 requests per second = 100ms interval, burst 1.
	l := New(Config{PerHostRPS: 10, Burst: 1}, func(host string, _ time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		observed = append(observed, host)
	})
	ctx := context.Background()

	if err := l.Wait(ctx, "https://shop.example/products/a"); err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	if err := l.Wait(ctx, "https://shop.example/products/b"); err != nil {
		t.Fatal(err)
	}
	if dur := time.Since(start); dur < 80*time.Millisecond {
		t.Errorf("expected wait ~100ms, got %v", dur)
	}

	// A different host has its own bucket.
	start = time.Now()
	if err := l.Wait(ctx, "https://other.example/products/a"); err != nil {
		t.Fatal(err)
	}
	if dur := time.Since(start); dur > 50*time.Millisecond {
		t.Errorf("expected immediate token for new host, got %v", dur)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(observed) != 1 || observed[0] != "shop.example" {
		t.Fatalf("expected one observed delay for shop.example, got %v", observed)
	}
}

func TestLimiterDisabled(t *testing.T) {
	l := New(Config{}, nil)
	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 20; i++ {
		if err := l.Wait(ctx, "https://shop.example/a"); err != nil {
			t.Fatal(err)
		}
	}
	if dur := time.Since(start); dur > 50*time.Millisecond {
		t.Fatalf("expected unlimited limiter to be immediate, got %v", dur)
	}
}

func TestLimiterWaitHonorsContext(t *testing.T) {
	l := New(Config{PerHostRPS: 0.1, Burst: 1}, nil)
	if err := l.Wait(context.Background(), "https://shop.example"); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx, "https://shop.example"); err == nil {
		t.Fatal("expected context error")
	}
}

func TestHost(t *testing.T) {
	if got := Host("https://Shop.Example:8443/p"); got != "shop.example" {
		t.Fatalf("unexpected host %q", got)
	}
	if got := Host("::bad"); got != "unknown" {
		t.Fatalf("expected unknown, got %q", got)
	}
}
