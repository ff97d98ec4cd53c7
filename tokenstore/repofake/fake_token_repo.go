package repofake

import (
	"context"
	"sort"
	"sync"

	"github.com/flairlondon/freeagent-bridge/internal/errors"
	"github.com/flairlondon/freeagent-bridge/tokenstore"
)

var _ tokenstore.Repo = (*FakeTokenRepo)(nil)

type FakeTokenRepo struct {
	records map[string]*tokenstore.TokenRecord
	lock    sync.RWMutex
}

func NewFakeTokenRepo() *FakeTokenRepo {
	return &FakeTokenRepo{
		records: make(map[string]*tokenstore.TokenRecord),
	}
}

func (r *FakeTokenRepo) Get(_ context.Context, userID string) (*tokenstore.TokenRecord, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	record, ok := r.records[userID]
	if !ok {
		return nil, errors.Wrapf(errors.ErrUserNotFound, "repofake.Get %q", userID)
	}
	copied := *record
	return &copied, nil
}

func (r *FakeTokenRepo) Upsert(_ context.Context, record *tokenstore.TokenRecord) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	copied := *record
	r.records[record.UserID] = &copied
	return nil
}

func (r *FakeTokenRepo) List(_ context.Context) ([]*tokenstore.TokenRecord, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	records := make([]*tokenstore.TokenRecord, 0, len(r.records))
	for _, record := range r.records {
		copied := *record
		records = append(records, &copied)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].UserID < records[j].UserID })
	return records, nil
}
