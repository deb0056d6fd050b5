package inmemdb

import (
	"context"

	"github.com/officialmikal/elimusmart/core/messaging"
)

type broadcastRepository struct {
	db *broadcastTable
}

var _ messaging.Repository = (*broadcastRepository)(nil)

func NewBroadcastRepository(db *DB) messaging.Repository {
	return &broadcastRepository{db: db.broadcast}
}

func (repo *broadcastRepository) SaveBroadcast(_ context.Context, b messaging.Broadcast) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table = append(repo.db.table, b)
	return nil
}

// QueryBroadcasts returns the broadcasts, most recent first.
func (repo *broadcastRepository) QueryBroadcasts(_ context.Context) ([]messaging.Broadcast, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	n := len(repo.db.table)
	broadcasts := make([]messaging.Broadcast, n)
	for i, b := range repo.db.table {
		broadcasts[n-1-i] = b
	}
	return broadcasts, nil
}
