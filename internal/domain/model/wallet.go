package model

// Wallet addresses one internal balance: an account's holding of an asset.
type Wallet struct {
	AccountID int64  `db:"account_id"`
	Asset     string `db:"asset"`
}
