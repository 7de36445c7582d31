package domain

import "time"

// Instance is the server's singleton configuration record. Emperor is a
// personal server: one instance, one owner, one password.
type Instance struct {
	ID           string    `json:"id"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SetupComplete reports whether the owner has set a password yet.
func (i *Instance) SetupComplete() bool {
	return i != nil && i.PasswordHash != ""
}
