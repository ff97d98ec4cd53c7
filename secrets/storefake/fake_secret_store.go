package storefake

import (
	"context"
	"sync"

	"github.com/flairlondon/freeagent-bridge/internal/errors"
	"github.com/flairlondon/freeagent-bridge/secrets"
)

var _ secrets.Store = (*FakeSecretStore)(nil)

type FakeSecretStore struct {
	values map[string]string
	lock   sync.RWMutex
}

func NewFakeSecretStore(values map[string]string) *FakeSecretStore {
	if values == nil {
		values = make(map[string]string)
	}
	return &FakeSecretStore{values: values}
}

func (s *FakeSecretStore) Get(_ context.Context, name string) (string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	value, ok := s.values[name]
	if !ok {
		return "", errors.Wrapf(errors.ErrSecretMissing, "storefake.Get %q", name)
	}
	return value, nil
}

func (s *FakeSecretStore) Set(name, value string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.values[name] = value
}
