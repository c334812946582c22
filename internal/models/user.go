package models

import "time"

// PlayerSession is the server-side stand-in for one browser profile: it owns
// an account key, a contract address and a plea history.
type PlayerSession struct {
	ID             string    `json:"id" redis:"id"`
	AccountAddress string    `json:"account_address" redis:"account_address"`
	CreatedAt      time.Time `json:"created_at" redis:"created_at"`
	LastAccessed   time.Time `json:"last_accessed" redis:"last_accessed"`
}
