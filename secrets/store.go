// Package secrets resolves named credentials (client id/secret, API
// keys) from whatever backs the deployment. The bridge only ever reads
// secrets; it never writes them.
package secrets

import (
	"context"
	"os"
	"strings"

	"github.com/flairlondon/freeagent-bridge/internal/errors"
)

// Store resolves a named credential to its current value.
type Store interface {
	Get(ctx context.Context, name string) (string, error)
}

// EnvStore reads secrets from environment variables. Secret names such
// as "freeagent-client-id" map to "FREEAGENT_CLIENT_ID".
type EnvStore struct{}

var _ Store = EnvStore{}

func NewEnvStore() EnvStore {
	return EnvStore{}
}

func (EnvStore) Get(_ context.Context, name string) (string, error) {
	envVar := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	value, ok := os.LookupEnv(envVar)
	if !ok {
		return "", errors.Wrapf(errors.ErrSecretMissing, "secrets.EnvStore.Get %q", name)
	}
	return strings.TrimSpace(value), nil
}
