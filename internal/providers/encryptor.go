package providers

import (
	"context"
	"fmt"

	domainErrors "github.com/festivo/ticketing/internal/domain/errors"
)

// Encryptor encrypts a payload for one downstream provider. The key
// material lives in an external key-management service; implementations
// here only wrap its API.
type Encryptor interface {
	// Name returns the provider id the implementation serves.
	Name() string
	// Encrypt returns the encrypted blob for the payload.
	Encrypt(ctx context.Context, payload []byte) ([]byte, error)
}

// Registry routes encryption calls to the implementation registered for a
// provider id.
type Registry struct {
	encryptors map[string]Encryptor
}

func NewRegistry(encryptorsList ...Encryptor) *Registry {
	r := &Registry{encryptors: make(map[string]Encryptor)}
	if len(encryptorsList) == 0 {
		r.Register(NewMockEncryptor("chain"))
		r.Register(NewMockEncryptor("sms"))
	} else {
		for _, e := range encryptorsList {
			r.Register(e)
		}
	}
	return r
}

func (r *Registry) Register(e Encryptor) {
	r.encryptors[e.Name()] = e
}

// Encrypt implements the service-layer Encryptor port.
func (r *Registry) Encrypt(ctx context.Context, payload []byte, providerID string) ([]byte, error) {
	e, ok := r.encryptors[providerID]
	if !ok {
		return nil, fmt.Errorf("provider %q: %w", providerID, domainErrors.ErrEncryptionProviderNotFound)
	}
	return e.Encrypt(ctx, payload)
}
