package biometric

import "sync"

// Vault holds the registration secret. Retrieve wraps ErrNotRegistered when
// nothing is stored; Delete of a missing secret succeeds. Secrets round-trip
// byte for byte.
type Vault interface {
	Store(secret string) error
	Retrieve() (string, error)
	Delete() error
}

// MemoryVault keeps the secret in process memory.
type MemoryVault struct {
	mu     sync.Mutex
	secret string
	set    bool
}

func NewMemoryVault() *MemoryVault {
	return &MemoryVault{}
}

func (v *MemoryVault) Store(secret string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.secret, v.set = secret, true
	return nil
}

func (v *MemoryVault) Retrieve() (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.set {
		return "", ErrNotRegistered
	}
	return v.secret, nil
}

func (v *MemoryVault) Delete() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.secret, v.set = "", false
	return nil
}
