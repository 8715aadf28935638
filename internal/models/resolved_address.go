package models

import "time"

// ResolvedAddress is a persisted resolution record. A record without coordinates
// is a known miss: the address was looked up and no provider found it.
type ResolvedAddress struct {
	ID          int64        // ID is the storage identifier of the record.
	Address     Address      // Address is the identity the record is stored under.
	Coordinates *Coordinates // Coordinates is nil for a known miss.
	ResolvedAt  time.Time    // ResolvedAt is the time the record was first written.
}

// IsMiss reports whether the record marks an address no provider could resolve.
func (r ResolvedAddress) IsMiss() bool {
	return r.Coordinates == nil
}
