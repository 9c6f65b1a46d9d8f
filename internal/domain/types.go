package domain

import (
	"strconv"
	"time"
)

// EntryID identifies a diary entry. It is assigned by the store on creation.
type EntryID int64

// UserID identifies the owner of entries.
type UserID int64

type Timestamp = time.Time

// DefaultUsername is the single fixed identity the system runs under.
const DefaultUsername = "default"

func (id EntryID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseEntryID parses a decimal entry id. Zero and negative ids are rejected.
func ParseEntryID(s string) (EntryID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, ErrInvalidEntryID
	}
	return EntryID(n), nil
}
