package kv

import (
	"bytes"
	"testing"
	"time"
)

// TestEncodeWithTTLPassthrough ttl<=0 时不包装，原样透传.
func TestEncodeWithTTLPassthrough(t *testing.T) {
	value := []byte(`{"pools":["lighting","comp"]}`)

	out, wrapped, err := encodeWithTTL(value, 0)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if wrapped {
		t.Error("zero ttl should not wrap")
	}

	if !bytes.Equal(out, value) {
		t.Errorf("passthrough mutated value: %q", out)
	}
}

// TestTTLRoundTrip 未过期的包装值可解出原始字节.
func TestTTLRoundTrip(t *testing.T) {
	value := []byte("sessToken-abc")

	encoded, wrapped, err := encodeWithTTL(value, time.Minute)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if !wrapped {
		t.Fatal("positive ttl should wrap")
	}

	got, expired, wasWrapped, err := decodeWithTTL(encoded, time.Now())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if expired || !wasWrapped {
		t.Errorf("decode flags = (expired=%v, wrapped=%v)", expired, wasWrapped)
	}

	if !bytes.Equal(got, value) {
		t.Errorf("decoded %q, want %q", got, value)
	}
}

// TestTTLExpiry 过期时间之后的解码应报告 expired.
func TestTTLExpiry(t *testing.T) {
	encoded, _, err := encodeWithTTL([]byte("stale"), time.Second)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	_, expired, _, err := decodeWithTTL(encoded, time.Now().Add(2*time.Second))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if !expired {
		t.Error("value past its expiry should decode as expired")
	}
}

// TestDecodeUnwrapped 无魔数前缀的值按未包装处理.
func TestDecodeUnwrapped(t *testing.T) {
	raw := []byte("plain-value")

	got, expired, wrapped, err := decodeWithTTL(raw, time.Now())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if expired || wrapped {
		t.Errorf("flags = (expired=%v, wrapped=%v), want (false, false)", expired, wrapped)
	}

	if !bytes.Equal(got, raw) {
		t.Errorf("decoded %q, want %q", got, raw)
	}
}
