// Package testutil provides test utilities and mocks for upload runs.
// This package is internal and should only be used for testing within the module.
package testutil

import (
	"context"
	"sync"
	"sync/atomic"
)

// StoreCall records one invocation of MockBlobStore.Store.
type StoreCall struct {
	Container string
	BlobName  string
	Payload   []byte
}

// MockBlobStore is a mock implementation of blobtypes.BlobStore for testing.
// Behaviour is customised through StoreFunc; every call is recorded and the
// number of concurrent callers is tracked.
type MockBlobStore struct {
	StoreFunc func(ctx context.Context, container, blobName string, payload []byte) error

	mu    sync.Mutex
	calls []StoreCall

	inFlight    atomic.Int64
	maxInFlight atomic.Int64
}

// Store mocks the store operation.
func (m *MockBlobStore) Store(ctx context.Context, container, blobName string, payload []byte) error {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)

	for {
		peak := m.maxInFlight.Load()
		if n <= peak || m.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	m.mu.Lock()
	m.calls = append(m.calls, StoreCall{
		Container: container,
		BlobName:  blobName,
		Payload:   append([]byte(nil), payload...),
	})
	m.mu.Unlock()

	if m.StoreFunc != nil {
		return m.StoreFunc(ctx, container, blobName, payload)
	}
	return nil
}

// Calls returns a copy of the recorded calls in arrival order.
func (m *MockBlobStore) Calls() []StoreCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]StoreCall(nil), m.calls...)
}

// CallCount returns the number of Store calls so far.
func (m *MockBlobStore) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Stored returns the payload recorded for blobName.
func (m *MockBlobStore) Stored(blobName string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.calls {
		if c.BlobName == blobName {
			return c.Payload, true
		}
	}
	return nil, false
}

// MaxInFlight returns the highest number of concurrent Store calls observed.
func (m *MockBlobStore) MaxInFlight() int {
	return int(m.maxInFlight.Load())
}

// ErrorOnBlob returns a StoreFunc that fails with err for blobName only.
func ErrorOnBlob(blobName string, err error) func(context.Context, string, string, []byte) error {
	return func(_ context.Context, _, name string, _ []byte) error {
		if name == blobName {
			return err
		}
		return nil
	}
}

// ErrorAlways returns a StoreFunc that always fails with err.
func ErrorAlways(err error) func(context.Context, string, string, []byte) error {
	return func(context.Context, string, string, []byte) error {
		return err
	}
}
