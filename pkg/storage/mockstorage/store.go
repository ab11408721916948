// Package mockstorage provides a mock for the storage.Store interface,
// with overridable function fields.
package mockstorage

import (
	"context"
	"io"

	"github.com/dataprov/dataprov/pkg/storage"
	"github.com/dataprov/dataprov/pkg/storage/status"
)

var _ storage.Store = &StoreMock{}

// StoreMock mocks the storage.Store interface. Methods without a
// corresponding function field return a not supported error.
type StoreMock struct {
	StringFunc     func() string
	HasFunc        func(context.Context, string) (bool, error)
	GetFunc        func(context.Context, string) (io.ReadCloser, error)
	PutFunc        func(context.Context, string, io.Reader, bool) error
	DeleteFunc     func(context.Context, string) error
	KeysFunc       func(context.Context) ([]string, error)
	KeysPrefixFunc func(context.Context, string, string, string, int) ([]string, string, error)
}

func (s *StoreMock) String() string {
	if s.StringFunc == nil {
		return "mock"
	}
	return s.StringFunc()
}

func (s *StoreMock) Has(ctx context.Context, key string) (bool, error) {
	if s.HasFunc == nil {
		return false, status.ErrNotSupported
	}
	return s.HasFunc(ctx, key)
}

func (s *StoreMock) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if s.GetFunc == nil {
		return nil, status.ErrNotSupported
	}
	return s.GetFunc(ctx, key)
}

func (s *StoreMock) Put(ctx context.Context, key string, source io.Reader, exclusive bool) error {
	if s.PutFunc == nil {
		return status.ErrNotSupported
	}
	return s.PutFunc(ctx, key, source, exclusive)
}

func (s *StoreMock) Delete(ctx context.Context, key string) error {
	if s.DeleteFunc == nil {
		return status.ErrNotSupported
	}
	return s.DeleteFunc(ctx, key)
}

func (s *StoreMock) Keys(ctx context.Context) ([]string, error) {
	if s.KeysFunc == nil {
		return nil, status.ErrNotSupported
	}
	return s.KeysFunc(ctx)
}

func (s *StoreMock) KeysPrefix(ctx context.Context, token, prefix, delimiter string, count int) ([]string, string, error) {
	if s.KeysPrefixFunc == nil {
		return nil, "", status.ErrNotSupported
	}
	return s.KeysPrefixFunc(ctx, token, prefix, delimiter, count)
}
