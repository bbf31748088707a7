package model

import (
	"strings"
	"time"
)

// DepositAddress binds an exchange-controlled address to one internal account
// on one network. (network, address) is unique and never changes.
type DepositAddress struct {
	ID        int64     `db:"id"`
	Network   string    `db:"network"`
	Address   string    `db:"address"`
	AccountID int64     `db:"account_id"`
	CreatedAt time.Time `db:"created_at"`
}

// CanonicalAddress is the form addresses are stored and matched in. Hex
// addresses are case-insensitive and are lowercased; base58 addresses are
// case-sensitive and kept as given.
func CanonicalAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if len(addr) > 2 && (addr[:2] == "0x" || addr[:2] == "0X") {
		return "0x" + strings.ToLower(addr[2:])
	}
	return addr
}
