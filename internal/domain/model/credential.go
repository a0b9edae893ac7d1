package model

import "time"

// Credential is a persisted, encrypted provider secret. The plaintext never
// leaves the resolver and is never cached beyond a single request.
type Credential struct {
	ID              string    `json:"id"`
	Service         Provider  `json:"service"`
	Name            string    `json:"name"`
	EncryptedSecret string    `json:"-"`
	OwnerID         string    `json:"owner_id"`
	CreatedAt       time.Time `json:"created_at"`
}
