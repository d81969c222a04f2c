package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewRecordID returns a unique record id. The millisecond prefix keeps ids
// roughly in creation order, which the ledger uses as a sort tiebreaker for
// records sharing a timestamp.
func NewRecordID(t time.Time) string {
	return fmt.Sprintf("%013d-%s", t.UnixMilli(), uuid.NewString()[:8])
}
