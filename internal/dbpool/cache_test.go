package dbpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/docbox-nz/docbox/internal/models"
)

func TestLFUCache_getOrCreate(t *testing.T) {
	c := newLFUCache[string](4, 0, 0, nil, 0)
	defer c.close()

	calls := 0
	create := func(context.Context) (string, error) {
		calls++
		return "value", nil
	}

	for range 3 {
		v, err := c.getOrCreate(context.Background(), "k", create)
		if err != nil {
			t.Fatal(err)
		}
		if v != "value" {
			t.Fatalf("got %q", v)
		}
	}
	if calls != 1 {
		t.Fatalf("create called %d times, want 1", calls)
	}
}

func TestLFUCache_createErrorNotCached(t *testing.T) {
	c := newLFUCache[string](4, 0, 0, nil, 0)
	defer c.close()

	boom := errors.New("boom")
	_, err := c.getOrCreate(context.Background(), "k", func(context.Context) (string, error) {
		return "", boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected create error, got %v", err)
	}

	// A later attempt retries the constructor.
	v, err := c.getOrCreate(context.Background(), "k", func(context.Context) (string, error) {
		return "recovered", nil
	})
	if err != nil || v != "recovered" {
		t.Fatalf("got %q, %v", v, err)
	}
}

func TestLFUCache_concurrentCreateCollapses(t *testing.T) {
	c := newLFUCache[string](4, 0, 0, nil, 0)
	defer c.close()

	var calls atomic.Int32
	create := func(context.Context) (string, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return "pool", nil
	}

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.getOrCreate(context.Background(), "tenant-a", create); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("create called %d times, want 1", got)
	}
}

func TestLFUCache_ttlExpiry(t *testing.T) {
	evicted := make(chan string, 4)
	c := newLFUCache[string](4, 30*time.Millisecond, 0, func(key string, _ string) {
		evicted <- key
	}, 0)
	defer c.close()

	c.insert("k", "v")
	if _, ok := c.get("k"); !ok {
		t.Fatal("entry should be live immediately")
	}

	time.Sleep(50 * time.Millisecond)
	if _, ok := c.get("k"); ok {
		t.Fatal("entry should have expired")
	}

	select {
	case key := <-evicted:
		if key != "k" {
			t.Fatalf("evicted %q", key)
		}
	default:
		t.Fatal("eviction callback did not run")
	}
}

func TestLFUCache_evictsLeastFrequent(t *testing.T) {
	var mu sync.Mutex
	var evicted []string
	c := newLFUCache[int](2, 0, 0, func(key string, _ int) {
		mu.Lock()
		evicted = append(evicted, key)
		mu.Unlock()
	}, 0)
	defer c.close()

	c.insert("hot", 1)
	c.insert("cold", 2)
	for range 5 {
		c.get("hot")
	}

	c.insert("new", 3)

	mu.Lock()
	defer mu.Unlock()
	if len(evicted) != 1 || evicted[0] != "cold" {
		t.Fatalf("evicted %v, want [cold]", evicted)
	}
	if _, ok := c.get("hot"); !ok {
		t.Fatal("frequently used entry should survive eviction")
	}
}

func TestLFUCache_removeAndFlush(t *testing.T) {
	var mu sync.Mutex
	evicted := map[string]bool{}
	c := newLFUCache[int](8, 0, 0, func(key string, _ int) {
		mu.Lock()
		evicted[key] = true
		mu.Unlock()
	}, 0)
	defer c.close()

	c.insert("a", 1)
	c.insert("b", 2)

	c.remove("a")
	if _, ok := c.get("a"); ok {
		t.Fatal("removed entry still present")
	}

	c.flush()
	if _, ok := c.get("b"); ok {
		t.Fatal("flushed entry still present")
	}

	mu.Lock()
	defer mu.Unlock()
	if !evicted["a"] || !evicted["b"] {
		t.Fatalf("eviction callbacks missing: %v", evicted)
	}
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.Port != 5432 {
		t.Errorf("Port = %d", cfg.Port)
	}
	if cfg.MaxConnectionsRoot >= cfg.MaxConnections {
		t.Error("root pool should have a smaller connection ceiling")
	}
	if cfg.AcquireTimeout != time.Minute {
		t.Errorf("AcquireTimeout = %v", cfg.AcquireTimeout)
	}
	if cfg.IdleTimeout != 10*time.Minute {
		t.Errorf("IdleTimeout = %v", cfg.IdleTimeout)
	}
}

func TestConfigDefaults_iamCapsPoolTTL(t *testing.T) {
	cfg := Config{RootIAM: true}
	cfg.ApplyDefaults()

	// IAM tokens last 15 minutes; the pool TTL must stay below that.
	if cfg.PoolTTL > 10*time.Minute {
		t.Errorf("PoolTTL = %v, want <= 10m under IAM", cfg.PoolTTL)
	}
}

func TestTenantCacheKeyDisambiguatesAuth(t *testing.T) {
	secret := "tenant-secret"
	iam := "tenant-role"

	bySecret := tenantCacheKey(&models.Tenant{DBName: "db", DBSecretName: &secret})
	byIAM := tenantCacheKey(&models.Tenant{DBName: "db", DBIAMUserName: &iam})
	if bySecret == byIAM {
		t.Fatal("secret and IAM keys must differ")
	}
	// The root database never shares a key with a tenant database.
	if bySecret == "secret-"+RootDatabaseName+"-"+secret {
		t.Fatal("tenant key must carry the tenant database name")
	}
}
