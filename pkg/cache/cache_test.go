package cache_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/yeisme/outputvault/pkg/cache"
)

// farmPool 渲染池条目，农场资源查询的缓存值形态.
type farmPool struct {
	Name      string `json:"name"`
	Instances int    `json:"instances"`
}

// mockKVStore 模拟KV存储实现.
type mockKVStore struct {
	data map[string][]byte
}

func newMockKVStore() *mockKVStore {
	return &mockKVStore{
		data: make(map[string][]byte),
	}
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if value, exists := m.data[key]; exists {
		return value, nil
	}

	return nil, fmt.Errorf("key not found")
}

func (m *mockKVStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *mockKVStore) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *mockKVStore) Exists(ctx context.Context, key string) (bool, error) {
	_, exists := m.data[key]
	return exists, nil
}

func (m *mockKVStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	keys := make([]string, 0, len(m.data))
	for key := range m.data {
		keys = append(keys, key)
	}

	return keys, nil
}

func (m *mockKVStore) Close() error {
	return nil
}

// TestNewCache 测试 NewCache 函数.
func TestNewCache(t *testing.T) {
	mockStore := newMockKVStore()
	c := cache.NewCache(mockStore)

	if c == nil {
		t.Fatal("NewCache returned nil")
	}
}

// TestCache_Get 测试 Get 方法.
func TestCache_Get(t *testing.T) {
	mockStore := newMockKVStore()
	c := cache.NewCache(mockStore)
	ctx := context.Background()

	// 获取不存在的键
	_, err := cache.Get[farmPool](ctx, c, "farm:pool:nonexistent")
	if err == nil {
		t.Error("Expected error for nonexistent key")
	}

	pool := farmPool{Name: "lighting", Instances: 24}

	if err := cache.Set(ctx, c, "farm:pool:lighting", pool, 0); err != nil {
		t.Fatalf("Failed to set cache: %v", err)
	}

	got, err := cache.Get[farmPool](ctx, c, "farm:pool:lighting")
	if err != nil {
		t.Fatalf("Failed to get cache: %v", err)
	}

	if got.Name != pool.Name || got.Instances != pool.Instances {
		t.Errorf("Retrieved pool %+v does not match original %+v", got, pool)
	}
}

// TestCache_Set 测试 Set 方法.
func TestCache_Set(t *testing.T) {
	mockStore := newMockKVStore()
	c := cache.NewCache(mockStore)
	ctx := context.Background()

	pool := farmPool{Name: "comp", Instances: 12}

	if err := cache.Set(ctx, c, "farm:pool:comp", pool, 0); err != nil {
		t.Fatalf("Failed to set cache: %v", err)
	}

	data, exists := mockStore.data["farm:pool:comp"]
	if !exists {
		t.Fatal("Data not stored in mock store")
	}

	if len(data) == 0 {
		t.Error("Stored data is empty")
	}
}

// TestCache_Delete 测试 Delete 方法.
func TestCache_Delete(t *testing.T) {
	mockStore := newMockKVStore()
	c := cache.NewCache(mockStore)
	ctx := context.Background()

	pool := farmPool{Name: "fx", Instances: 8}

	if err := cache.Set(ctx, c, "farm:pool:fx", pool, 0); err != nil {
		t.Fatalf("Failed to set cache: %v", err)
	}

	exists, err := c.Exists(ctx, "farm:pool:fx")
	if err != nil {
		t.Fatalf("Failed to check existence: %v", err)
	}

	if !exists {
		t.Error("Key should exist before deletion")
	}

	if err := c.Delete(ctx, "farm:pool:fx"); err != nil {
		t.Fatalf("Failed to delete cache: %v", err)
	}

	exists, err = c.Exists(ctx, "farm:pool:fx")
	if err != nil {
		t.Fatalf("Failed to check existence after deletion: %v", err)
	}

	if exists {
		t.Error("Key should not exist after deletion")
	}
}

// TestCache_Exists 测试 Exists 方法.
func TestCache_Exists(t *testing.T) {
	mockStore := newMockKVStore()
	c := cache.NewCache(mockStore)
	ctx := context.Background()

	exists, err := c.Exists(ctx, "farm:instances")
	if err != nil {
		t.Fatalf("Failed to check existence: %v", err)
	}

	if exists {
		t.Error("Nonexistent key should not exist")
	}

	if err := cache.Set(ctx, c, "farm:instances", []string{"node-01", "node-02"}, 0); err != nil {
		t.Fatalf("Failed to set cache: %v", err)
	}

	exists, err = c.Exists(ctx, "farm:instances")
	if err != nil {
		t.Fatalf("Failed to check existence: %v", err)
	}

	if !exists {
		t.Error("Existing key should exist")
	}
}

// TestGetOrSet 测试 GetOrSet 方法，农场池列表按键只拉取一次.
func TestGetOrSet(t *testing.T) {
	mockStore := newMockKVStore()
	c := cache.NewCache(mockStore)
	ctx := context.Background()

	callCount := 0
	getter := func() ([]farmPool, error) {
		callCount++
		return []farmPool{{Name: "lighting", Instances: 24}, {Name: "comp", Instances: 12}}, nil
	}

	// 第一次调用，应该调用getter
	pools1, err := cache.GetOrSet(ctx, c, "farm:pools", getter, 0)
	if err != nil {
		t.Fatalf("Failed to get or set: %v", err)
	}

	if callCount != 1 {
		t.Errorf("Expected getter to be called once, got %d", callCount)
	}

	// 第二次调用，应该从缓存获取
	pools2, err := cache.GetOrSet(ctx, c, "farm:pools", getter, 0)
	if err != nil {
		t.Fatalf("Failed to get or set: %v", err)
	}

	if callCount != 1 {
		t.Errorf("Expected getter to be called only once, got %d", callCount)
	}

	if len(pools1) != len(pools2) {
		t.Fatalf("Results don't match: %+v vs %+v", pools1, pools2)
	}

	for i := range pools1 {
		if pools1[i] != pools2[i] {
			t.Errorf("Pool %d mismatch: %+v vs %+v", i, pools1[i], pools2[i])
		}
	}
}

// TestGetOrSet_GetterError 测试 GetOrSet 方法中 getter 返回错误的情况.
func TestGetOrSet_GetterError(t *testing.T) {
	mockStore := newMockKVStore()
	c := cache.NewCache(mockStore)
	ctx := context.Background()

	getter := func() ([]farmPool, error) {
		return nil, errors.New("render manager unreachable")
	}

	_, err := cache.GetOrSet(ctx, c, "farm:pools", getter, 0)
	if err == nil {
		t.Error("Expected error from getter")
	}

	if err.Error() != "render manager unreachable" {
		t.Errorf("Expected 'render manager unreachable', got '%s'", err.Error())
	}
}

// TestCache_Clear 测试 Clear 方法.
func TestCache_Clear(t *testing.T) {
	mockStore := newMockKVStore()
	c := cache.NewCache(mockStore)
	ctx := context.Background()

	pools := []farmPool{
		{Name: "lighting", Instances: 24},
		{Name: "comp", Instances: 12},
		{Name: "fx", Instances: 8},
	}

	for i, pool := range pools {
		key := fmt.Sprintf("farm:pool:%s", pool.Name)

		if err := cache.Set(ctx, c, key, pool, 0); err != nil {
			t.Fatalf("Failed to set cache for pool %d: %v", i, err)
		}
	}

	if len(mockStore.data) != len(pools) {
		t.Errorf("Expected %d items, got %d", len(pools), len(mockStore.data))
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Failed to clear cache: %v", err)
	}

	if len(mockStore.data) != 0 {
		t.Errorf("Expected 0 items after clear, got %d", len(mockStore.data))
	}
}

// TestCache_GenericTypes 测试缓存对不同数据类型的支持.
func TestCache_GenericTypes(t *testing.T) {
	mockStore := newMockKVStore()
	c := cache.NewCache(mockStore)
	ctx := context.Background()

	// 字符串：认证令牌
	if err := cache.Set(ctx, c, "farm:token", "sessToken-abc123", 0); err != nil {
		t.Fatalf("Failed to set string: %v", err)
	}

	token, err := cache.Get[string](ctx, c, "farm:token")
	if err != nil {
		t.Fatalf("Failed to get string: %v", err)
	}

	if token != "sessToken-abc123" {
		t.Errorf("Expected 'sessToken-abc123', got '%s'", token)
	}

	// 整数：下一修订号
	if err := cache.Set(ctx, c, "revision:next", 42, 0); err != nil {
		t.Fatalf("Failed to set int: %v", err)
	}

	rev, err := cache.Get[int](ctx, c, "revision:next")
	if err != nil {
		t.Fatalf("Failed to get int: %v", err)
	}

	if rev != 42 {
		t.Errorf("Expected 42, got %d", rev)
	}

	// 切片：节点名列表
	instances := []string{"node-01", "node-02", "node-03"}

	if err := cache.Set(ctx, c, "farm:instances", instances, 0); err != nil {
		t.Fatalf("Failed to set slice: %v", err)
	}

	got, err := cache.Get[[]string](ctx, c, "farm:instances")
	if err != nil {
		t.Fatalf("Failed to get slice: %v", err)
	}

	if len(got) != len(instances) {
		t.Errorf("Slice length mismatch: expected %d, got %d", len(instances), len(got))
	}

	for i, v := range instances {
		if got[i] != v {
			t.Errorf("Slice element %d mismatch: expected %s, got %s", i, v, got[i])
		}
	}
}
