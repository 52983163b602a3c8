package service

import (
	"context"
	"errors"
	"sync"
)

type fakeStore struct {
	mu      sync.Mutex
	signed  []string
	deleted []string
	failing bool
}

func newFakeStore() *fakeStore { return &fakeStore{} }

func (f *fakeStore) SignedUploadURL(_ context.Context, key, contentType string) (string, error) {
	return f.sign("PUT", key)
}

func (f *fakeStore) SignedDownloadURL(_ context.Context, key string) (string, error) {
	return f.sign("GET", key)
}

func (f *fakeStore) sign(method, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return "", errors.New("signing unavailable")
	}
	f.signed = append(f.signed, method+" "+key)
	return "https://storage.example.com/bucket/" + key + "?method=" + method, nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return nil
}

type recordingQueue struct {
	mu   sync.Mutex
	keys []string
}

func (q *recordingQueue) Enqueue(_ context.Context, keys ...string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.keys = append(q.keys, keys...)
	return nil
}

func (q *recordingQueue) Keys() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.keys...)
}
