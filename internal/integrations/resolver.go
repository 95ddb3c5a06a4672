package integrations

import (
	"context"
	"errors"

	"github.com/junglehq/jungle/internal/faults"
	"github.com/junglehq/jungle/internal/secrets"
)

// Resolver is the single decryption path for stored credentials. Every caller
// that needs a plaintext API key goes through here; a credential that is
// missing or fails to decrypt is a configuration error and the operation is
// rejected. There is no fallback secret.
type Resolver struct {
	store  Store
	cipher *secrets.Cipher
}

// NewResolver wires the credential store to the cipher.
func NewResolver(store Store, cipher *secrets.Cipher) *Resolver {
	if store == nil || cipher == nil {
		panic("integrations: resolver requires store and cipher")
	}
	return &Resolver{store: store, cipher: cipher}
}

// APIKey fetches and decrypts the credential for (org, type).
func (r *Resolver) APIKey(ctx context.Context, orgID string, typ ProviderType) (string, error) {
	cred, err := r.store.Get(ctx, orgID, typ)
	if err != nil {
		if errors.Is(err, ErrCredentialNotFound) {
			return "", &faults.ConfigurationError{Reason: string(typ) + " integration not configured"}
		}
		return "", err
	}
	plaintext, err := r.cipher.Decrypt(cred.EncryptedKey)
	if err != nil {
		return "", &faults.ConfigurationError{Reason: "failed to decrypt " + string(typ) + " credential", Err: err}
	}
	return plaintext, nil
}
