package inmemdb

import (
	"sync"

	"github.com/officialmikal/elimusmart/core/academics"
	"github.com/officialmikal/elimusmart/core/finance"
	"github.com/officialmikal/elimusmart/core/messaging"
	"github.com/officialmikal/elimusmart/core/student"
	"github.com/officialmikal/elimusmart/core/subject"
)

type (
	// DB holds every table in memory. Each table has its own lock; rows are copied in & out.
	DB struct {
		student   *studentTable
		subject   *subjectTable
		mark      *markTable
		ledger    *ledgerTable
		broadcast *broadcastTable
	}

	studentTable struct {
		sync.RWMutex
		seq   int
		table map[string]*studentRow
	}
	studentRow struct {
		seq int // insertion order
		student.Student
	}

	subjectTable struct {
		sync.RWMutex
		table []subject.Subject
	}

	markKey struct {
		studentID string
		subjectID string
	}
	markTable struct {
		sync.RWMutex
		table map[markKey]academics.Mark
	}

	ledgerTable struct {
		sync.RWMutex
		table     []finance.Entry // append-only
		sequences map[string]int
	}

	broadcastTable struct {
		sync.RWMutex
		table []messaging.Broadcast
	}
)

func Open() (*DB, error) {
	db := &DB{
		student:   &studentTable{table: make(map[string]*studentRow)},
		subject:   &subjectTable{},
		mark:      &markTable{table: make(map[markKey]academics.Mark)},
		ledger:    &ledgerTable{sequences: make(map[string]int)},
		broadcast: &broadcastTable{},
	}
	return db, nil
}

// Reset empties every table.
func (db *DB) Reset() {
	db.student.Lock()
	db.student.seq = 0
	db.student.table = make(map[string]*studentRow)
	db.student.Unlock()

	db.subject.Lock()
	db.subject.table = nil
	db.subject.Unlock()

	db.mark.Lock()
	db.mark.table = make(map[markKey]academics.Mark)
	db.mark.Unlock()

	db.ledger.Lock()
	db.ledger.table = nil
	db.ledger.sequences = make(map[string]int)
	db.ledger.Unlock()

	db.broadcast.Lock()
	db.broadcast.table = nil
	db.broadcast.Unlock()
}
