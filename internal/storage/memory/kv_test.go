package memory

import (
	"context"
	"errors"
	"testing"

	"dexy/internal/storage"
)

func TestKV_GetSet(t *testing.T) {
	kv := NewKV()
	ctx := context.Background()

	if _, err := kv.Get(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing key, got %v", err)
	}

	if err := kv.Set(ctx, "k", []byte("v1")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, err := kv.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(v) != "v1" {
		t.Errorf("Expected v1, got %s", v)
	}

	// Last write wins
	if err := kv.Set(ctx, "k", []byte("v2")); err != nil {
		t.Fatalf("Set (2) failed: %v", err)
	}
	v, _ = kv.Get(ctx, "k")
	if string(v) != "v2" {
		t.Errorf("Expected v2, got %s", v)
	}
}

func TestKV_EmptyKeyRejected(t *testing.T) {
	kv := NewKV()
	if err := kv.Set(context.Background(), "", []byte("v")); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestKV_DefensiveCopies(t *testing.T) {
	kv := NewKV()
	ctx := context.Background()

	buf := []byte("original")
	if err := kv.Set(ctx, "k", buf); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	buf[0] = 'X'

	v, err := kv.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(v) != "original" {
		t.Errorf("Stored value mutated through caller's buffer: %s", v)
	}

	v[0] = 'Y'
	v2, _ := kv.Get(ctx, "k")
	if string(v2) != "original" {
		t.Errorf("Stored value mutated through returned buffer: %s", v2)
	}
}
