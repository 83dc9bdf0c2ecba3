package providers

import (
	"context"
)

// MockEncryptor reverses nothing and encrypts nothing; it prefixes the
// payload so tests can see which provider handled it. Real deployments
// register a KMS-backed implementation instead.
type MockEncryptor struct {
	name string
	err  error
}

type MockEncryptorOption func(*MockEncryptor)

// WithError makes every Encrypt call fail, for exercising failure paths.
func WithError(err error) MockEncryptorOption {
	return func(e *MockEncryptor) { e.err = err }
}

func NewMockEncryptor(name string, opts ...MockEncryptorOption) *MockEncryptor {
	e := &MockEncryptor{name: name}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *MockEncryptor) Name() string { return e.name }

func (e *MockEncryptor) Encrypt(_ context.Context, payload []byte) ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([]byte, 0, len(e.name)+1+len(payload))
	out = append(out, e.name...)
	out = append(out, ':')
	out = append(out, payload...)
	return out, nil
}
