package cache

import (
	"context"
	"testing"
	"time"
)

func TestKeys(t *testing.T) {
	if got := ListKey("u1"); got != "bookmarks:user:u1" {
		t.Fatalf("ListKey = %q", got)
	}
	if got := SyncedKey("u1"); got != "bookmarks:user:u1:synced_at" {
		t.Fatalf("SyncedKey = %q", got)
	}
}

func TestScoreOrdersByCreation(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	if !(score(base.Add(time.Millisecond)) > score(base)) {
		t.Fatal("score should grow with creation time at millisecond resolution")
	}
}

func TestConnectRequiresAddr(t *testing.T) {
	if _, err := Connect(context.Background(), ConnectOptions{}, nil); err == nil {
		t.Fatal("expected error for empty address")
	}
}

func TestConnectGivesUp(t *testing.T) {
	start := time.Now()
	_, err := Connect(context.Background(), ConnectOptions{
		Addr:           "127.0.0.1:1",
		ConnectTimeout: 150 * time.Millisecond,
		RetryInterval:  10 * time.Millisecond,
		MaxWait:        20 * time.Millisecond,
		PingTimeout:    50 * time.Millisecond,
	}, nil)
	if err == nil {
		t.Fatal("expected connection error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("Connect took %v, should honour ConnectTimeout", elapsed)
	}
}

func TestSetDefaults(t *testing.T) {
	var o ConnectOptions
	o.setDefaults()
	if o.ConnectTimeout != 5*time.Second || o.RetryInterval <= 0 || o.MaxWait <= 0 || o.PingTimeout <= 0 {
		t.Fatalf("defaults = %+v", o)
	}
}
