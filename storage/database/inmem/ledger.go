package inmemdb

import (
	"context"

	"github.com/officialmikal/elimusmart/core/finance"
)

type ledgerRepository struct {
	db *ledgerTable
}

var _ finance.Repository = (*ledgerRepository)(nil)

func NewLedgerRepository(db *DB) finance.Repository {
	return &ledgerRepository{db: db.ledger}
}

func (repo *ledgerRepository) AddEntries(_ context.Context, entries ...finance.Entry) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table = append(repo.db.table, entries...)
	return nil
}

func (repo *ledgerRepository) QueryEntries(_ context.Context, filter finance.EntryFilter) ([]finance.Entry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var ids, kinds map[string]bool
	if filter.StudentIDs != nil {
		ids = toSet(filter.StudentIDs)
	}
	if filter.Kinds != nil {
		kinds = toSet(filter.Kinds)
	}

	entries := make([]finance.Entry, 0)
	for _, e := range repo.db.table {
		if ids != nil && !ids[e.StudentID] {
			continue
		}
		if kinds != nil && !kinds[e.Kind] {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (repo *ledgerRepository) NextSequence(_ context.Context, name string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.sequences[name]++
	return repo.db.sequences[name], nil
}

func toSet(vals []string) map[string]bool {
	set := make(map[string]bool, len(vals))
	for _, v := range vals {
		set[v] = true
	}
	return set
}
