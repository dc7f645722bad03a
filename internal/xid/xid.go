package xid

import "github.com/google/uuid"

// New returns a random row identifier in the UUID form the hosted store uses.
func New() string {
	return uuid.NewString()
}
