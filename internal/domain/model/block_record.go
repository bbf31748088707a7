package model

import "time"

// BlockRecord is one entry of the block ledger: a block this service has
// processed. Rows are only removed by a rollback.
type BlockRecord struct {
	Network   string    `db:"network"`
	Number    int64     `db:"number"`
	Hash      string    `db:"hash"`
	Timestamp time.Time `db:"timestamp"`
	CreatedAt time.Time `db:"created_at"`
}
