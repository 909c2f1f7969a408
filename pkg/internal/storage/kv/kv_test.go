package kv_test

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"fmt"
	mrand "math/rand"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yeisme/outputvault/pkg/configs"
	"github.com/yeisme/outputvault/pkg/internal/storage/kv"
)

// TestRegisteredTypes 各后端工厂应在 init 时注册.
func TestRegisteredTypes(t *testing.T) {
	registered := map[kv.KVType]bool{}
	for _, kt := range kv.GetRegisteredKVTypes() {
		registered[kt] = true
	}

	for _, want := range []kv.KVType{kv.KVTypeMemory, kv.KVTypeRedis, kv.KVTypeNATS, kv.KVTypeGroupcache} {
		if !registered[want] {
			t.Errorf("kv type %s not registered", want)
		}
	}
}

// TestNewKVStoreUnknownType 未注册的类型应报错.
func TestNewKVStoreUnknownType(t *testing.T) {
	if _, err := kv.NewKVStore(context.Background(), kv.KVType("etcd"), nil); err == nil {
		t.Error("expected error for unsupported kv type")
	}
}

// TestMemoryKVRoundTrip 内存后端的基本读写删语义.
func TestMemoryKVRoundTrip(t *testing.T) {
	ctx := context.Background()

	store, err := kv.NewKVStore(ctx, kv.KVTypeMemory, nil)
	if err != nil {
		t.Fatalf("create memory kv: %v", err)
	}
	defer store.Close()

	key := "farm-pools"
	value := []byte(`[{"name":"lighting"},{"name":"comp"}]`)

	if err := store.Set(ctx, key, value, 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if !bytes.Equal(got, value) {
		t.Errorf("get returned %q, want %q", got, value)
	}

	// 返回值应是副本，改写不影响存储
	got[0] = 'X'

	again, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get after mutation: %v", err)
	}

	if !bytes.Equal(again, value) {
		t.Error("stored value mutated through returned slice")
	}

	exists, err := store.Exists(ctx, key)
	if err != nil || !exists {
		t.Errorf("exists = (%v, %v), want (true, nil)", exists, err)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := store.Get(ctx, key); err == nil {
		t.Error("expected error after delete")
	}
}

// TestGroupcacheKVRoundTrip groupcache 后端的读写删语义.
func TestGroupcacheKVRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := &configs.GroupcacheKVConfig{
		Name:       "test-groupcache",
		CacheBytes: 1 << 20,
		Peers:      []string{},
		Self:       "http://127.0.0.1:0",
	}

	store, err := kv.NewKVStore(ctx, kv.KVTypeGroupcache, cfg)
	if err != nil {
		t.Fatalf("create groupcache kv: %v", err)
	}
	defer store.Close()

	if err := store.Set(ctx, "farm-token", []byte("sessToken-abc"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := store.Get(ctx, "farm-token")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if string(got) != "sessToken-abc" {
		t.Errorf("get returned %q", got)
	}

	exists, err := store.Exists(ctx, "farm-token")
	if err != nil || !exists {
		t.Errorf("exists = (%v, %v), want (true, nil)", exists, err)
	}

	if err := store.Delete(ctx, "farm-token"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	exists, err = store.Exists(ctx, "farm-token")
	if err != nil || exists {
		t.Errorf("exists after delete = (%v, %v), want (false, nil)", exists, err)
	}
}

func BenchmarkMemoryKV(b *testing.B) {
	store, err := kv.NewKVStore(context.Background(), kv.KVTypeMemory, nil)
	if err != nil {
		b.Fatalf("create memory kv: %v", err)
	}

	benchKV(b, "memory", store)
	benchKVParallel(b, "memory", store)
	_ = store.Close()
}

// Optional: enable with ENABLE_REDIS_BENCH=1 and REDIS_ADDR set (default 127.0.0.1:6379).
func BenchmarkRedisKV(b *testing.B) {
	if os.Getenv("ENABLE_REDIS_BENCH") == "" {
		b.Skip("set ENABLE_REDIS_BENCH=1 to enable")
	}

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "127.0.0.1:6379"
	}

	cfg := &configs.RedisKVConfig{Addr: addr, Password: "", DB: 0}

	store, err := kv.NewKVStore(context.Background(), kv.KVTypeRedis, cfg)
	if err != nil {
		b.Skipf("redis not available: %v", err)
		return
	}

	benchKV(b, "redis", store)
	benchKVParallel(b, "redis", store)
	_ = store.Close()
}

// randBytes returns n random bytes, seeded reproducibly for bench.
func randBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := crand.Read(b); err != nil {
		mr := mrand.New(mrand.NewSource(42))
		for i := range b {
			b[i] = byte(mr.Intn(256))
		}
	}

	return b
}

// benchKV 执行基本的 Set/Get/Delete 基准测试.
func benchKV(b *testing.B, name string, store kv.KVStore) {
	ctx := context.Background()
	sizes := []int{32, 1024, 64 * 1024}
	ttls := []time.Duration{0, 5 * time.Second}

	for _, size := range sizes {
		payload := randBytes(size)
		for _, ttl := range ttls {
			b.Run(fmt.Sprintf("%s/size=%d/ttl=%s", name, size, ttl), func(b *testing.B) {
				b.ReportAllocs()

				for i := 0; b.Loop(); i++ {
					// Use hyphens to ensure keys are valid for NATS KV
					key := fmt.Sprintf("pool-%s-%d", name, i)
					if err := store.Set(ctx, key, payload, ttl); err != nil {
						b.Fatalf("set failed: %v", err)
					}

					if _, err := store.Get(ctx, key); err != nil {
						b.Fatalf("get failed: %v", err)
					}

					if err := store.Delete(ctx, key); err != nil {
						b.Fatalf("delete failed: %v", err)
					}
				}
			})
		}
	}
}

// benchKVParallel 执行并行的 Set/Get/Delete 基准测试.
func benchKVParallel(b *testing.B, name string, store kv.KVStore) {
	ctx := context.Background()
	payload := randBytes(1024)

	var ctr uint64

	b.Run(fmt.Sprintf("%s/parallel", name), func(b *testing.B) {
		b.ReportAllocs()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				i := atomic.AddUint64(&ctr, 1)

				key := fmt.Sprintf("pool-%s-p-%d", name, i)
				if err := store.Set(ctx, key, payload, 0); err != nil {
					b.Fatalf("set failed: %v", err)
				}

				if _, err := store.Get(ctx, key); err != nil {
					b.Fatalf("get failed: %v", err)
				}

				if err := store.Delete(ctx, key); err != nil {
					b.Fatalf("delete failed: %v", err)
				}
			}
		})
	})
}
