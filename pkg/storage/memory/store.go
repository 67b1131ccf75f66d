// Package memory 提供一个进程内的 BlobStore，主要用于测试和临时服务
package memory

import (
	"bytes"
	"context"
	"hash"
	"io"
	"sync"

	"dagao/pkg/storage"
	"dagao/pkg/types"
)

type Store struct {
	algo storage.HashAlgo

	mu    sync.RWMutex
	blobs map[types.Hash][]byte
}

var _ storage.BlobStore = (*Store)(nil)

func New(algo storage.HashAlgo) *Store {
	if algo == "" {
		algo = storage.HashSHA256
	}
	return &Store{
		algo:  algo,
		blobs: make(map[types.Hash][]byte),
	}
}

func (s *Store) OpenInserter(ctx context.Context) (storage.Inserter, error) {
	return &inserter{store: s, hasher: s.algo.New()}, nil
}

func (s *Store) OpenReader(ctx context.Context, hash types.Hash) (io.ReadCloser, error) {
	s.mu.RLock()
	data, ok := s.blobs[hash]
	s.mu.RUnlock()
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Store) Has(ctx context.Context, hash types.Hash) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blobs[hash]
	return ok, nil
}

// Len 返回已提交的 Blob 数量
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

type inserter struct {
	store  *Store
	hasher hash.Hash
	buf    bytes.Buffer
	closed bool
}

func (i *inserter) Write(p []byte) (int, error) {
	if i.closed {
		return 0, storage.ErrInserterClosed
	}
	i.hasher.Write(p)
	return i.buf.Write(p)
}

func (i *inserter) Commit(ctx context.Context) (types.Hash, error) {
	if i.closed {
		return types.Hash{}, storage.ErrInserterClosed
	}
	i.closed = true

	h, err := types.HashFromBytes(i.hasher.Sum(nil))
	if err != nil {
		return types.Hash{}, err
	}

	i.store.mu.Lock()
	defer i.store.mu.Unlock()
	if _, ok := i.store.blobs[h]; !ok {
		i.store.blobs[h] = bytes.Clone(i.buf.Bytes())
	}
	return h, nil
}

func (i *inserter) Abort() error {
	i.closed = true
	i.buf.Reset()
	return nil
}
