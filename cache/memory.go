package cache

import (
	"bytes"
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// Memory is an in-process Store with LRU eviction.
type Memory struct {
	lru *lru.Cache
}

// NewMemory creates Memory holding up to size entries.
func NewMemory(size int) (*Memory, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create LRU cache: %w", err)
	}
	return &Memory{lru: c}, nil
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.lru.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(v.([]byte)), nil
}

// Set implements Store.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.lru.Add(key, bytes.Clone(value))
	return nil
}
