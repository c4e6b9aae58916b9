package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/samber/lo"
)

// Snapshot is the full, ordered set of account records from one fetch cycle.
type Snapshot struct {
	Accounts []Account
}

// ParseSnapshot decodes a JSON array of account records, validating each one.
func ParseSnapshot(data []byte) (Snapshot, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return Snapshot{}, fmt.Errorf("%w: snapshot is not a JSON array: %v", ErrInvalidAccount, err)
	}

	accounts := make([]Account, 0, len(raws))
	for i, raw := range raws {
		a, err := ParseAccount(raw)
		if err != nil {
			return Snapshot{}, fmt.Errorf("account %d: %w", i, err)
		}
		accounts = append(accounts, a)
	}
	return Snapshot{Accounts: accounts}, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	parsed, err := ParseSnapshot(data)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MarshalJSON writes the snapshot as a JSON array of the original records.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, a := range s.Accounts {
		if i > 0 {
			buf.WriteByte(',')
		}
		raw, err := a.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(raw)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// Newest returns the most recent lastUpdatedDate in the snapshot, or the Unix
// epoch when the snapshot is empty.
func (s Snapshot) Newest() time.Time {
	if len(s.Accounts) == 0 {
		return time.Unix(0, 0).UTC()
	}
	return lo.MaxBy(s.Accounts, func(a, b Account) bool {
		return a.LastUpdated.After(b.LastUpdated)
	}).LastUpdated
}

// Len returns the number of accounts.
func (s Snapshot) Len() int {
	return len(s.Accounts)
}
