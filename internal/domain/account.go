package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidAccount indicates an account record that fails ingestion checks.
var ErrInvalidAccount = errors.New("invalid account record")

// AccountType is the aggregator's account classification tag.
type AccountType string

const (
	AccountTypeBank          AccountType = "BankAccount"
	AccountTypeInvestment    AccountType = "InvestmentAccount"
	AccountTypeCredit        AccountType = "CreditAccount"
	AccountTypeLoan          AccountType = "LoanAccount"
	AccountTypeRealEstate    AccountType = "RealEstateAccount"
	AccountTypeVehicle       AccountType = "VehicleAccount"
	AccountTypeOtherProperty AccountType = "OtherPropertyAccount"
)

// Eligible reports whether accounts of this type are published as sensors.
func (t AccountType) Eligible() bool {
	return t == AccountTypeBank || t == AccountTypeInvestment
}

// BankAccountTypeChecking is the bankAccountType value of checking accounts.
const BankAccountTypeChecking = "CHECKING"

// Account is one aggregator account record. The typed fields are validated
// when the record is decoded; the original bytes are kept untouched.
type Account struct {
	ID              string
	Name            string
	FIName          string
	FILoginID       string
	Type            AccountType
	Currency        string
	BankAccountType string
	LastUpdated     time.Time

	AvailableBalance decimal.NullDecimal
	CurrentBalance   decimal.NullDecimal
	Value            decimal.NullDecimal
	InterestRate     decimal.NullDecimal

	raw    json.RawMessage
	fields map[string]any
}

// ParseAccount decodes and validates a single account record.
func ParseAccount(data []byte) (Account, error) {
	var a Account
	if err := a.UnmarshalJSON(data); err != nil {
		return Account{}, err
	}
	return a, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Account) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAccount, err)
	}
	if fields == nil {
		return fmt.Errorf("%w: record is null", ErrInvalidAccount)
	}

	parsed := Account{
		raw:    append(json.RawMessage(nil), data...),
		fields: fields,
	}

	typ, err := requiredString(fields, "type")
	if err != nil {
		return err
	}
	parsed.Type = AccountType(typ)

	if parsed.LastUpdated, err = lastUpdated(fields); err != nil {
		return err
	}

	// Ineligible records only feed the staleness check, so beyond type and
	// lastUpdatedDate they are kept as they come.
	if !parsed.Type.Eligible() {
		parsed.ID = optionalString(fields, "id")
		parsed.Name = optionalString(fields, "name")
		parsed.FIName = optionalString(fields, "fiName")
		parsed.FILoginID = optionalString(fields, "fiLoginId")
		parsed.Currency = optionalString(fields, "currency")
		*a = parsed
		return nil
	}

	for _, f := range []struct {
		key string
		dst *string
	}{
		{"id", &parsed.ID},
		{"name", &parsed.Name},
		{"fiName", &parsed.FIName},
		{"fiLoginId", &parsed.FILoginID},
		{"currency", &parsed.Currency},
	} {
		if *f.dst, err = requiredString(fields, f.key); err != nil {
			return err
		}
	}

	if parsed.Type == AccountTypeBank {
		if parsed.BankAccountType, err = requiredString(fields, "bankAccountType"); err != nil {
			return err
		}
	}

	for key, dst := range map[string]*decimal.NullDecimal{
		"availableBalance": &parsed.AvailableBalance,
		"currentBalance":   &parsed.CurrentBalance,
		"value":            &parsed.Value,
		"interestRate":     &parsed.InterestRate,
	} {
		if *dst, err = optionalDecimal(fields, key); err != nil {
			return err
		}
	}

	*a = parsed
	return nil
}

// MarshalJSON returns the record exactly as it was received.
func (a Account) MarshalJSON() ([]byte, error) {
	if a.raw == nil {
		return []byte("null"), nil
	}
	return a.raw, nil
}

// Raw returns a copy of the original record bytes.
func (a Account) Raw() json.RawMessage {
	return append(json.RawMessage(nil), a.raw...)
}

// Fields returns the decoded top-level fields of the record. Numbers are json.Number.
// The map is shared; callers must not modify it.
func (a Account) Fields() map[string]any {
	return a.fields
}

// IsChecking reports whether the account is a checking bank account.
func (a Account) IsChecking() bool {
	return a.Type == AccountTypeBank && a.BankAccountType == BankAccountTypeChecking
}

// Balance returns the most specific balance the record carries: available,
// then current, then value.
func (a Account) Balance() (decimal.Decimal, bool) {
	for _, d := range []decimal.NullDecimal{a.AvailableBalance, a.CurrentBalance, a.Value} {
		if d.Valid {
			return d.Decimal, true
		}
	}
	return decimal.Zero, false
}

func requiredString(fields map[string]any, key string) (string, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return "", fmt.Errorf("%w: missing %s", ErrInvalidAccount, key)
	}
	switch s := v.(type) {
	case string:
		if strings.TrimSpace(s) == "" {
			return "", fmt.Errorf("%w: empty %s", ErrInvalidAccount, key)
		}
		return s, nil
	case json.Number:
		return s.String(), nil
	default:
		return "", fmt.Errorf("%w: %s has type %T, want string", ErrInvalidAccount, key, v)
	}
}

func optionalString(fields map[string]any, key string) string {
	s, err := requiredString(fields, key)
	if err != nil {
		return ""
	}
	return s
}

func optionalDecimal(fields map[string]any, key string) (decimal.NullDecimal, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return decimal.NullDecimal{}, nil
	}
	n, ok := v.(json.Number)
	if !ok {
		return decimal.NullDecimal{}, fmt.Errorf("%w: %s has type %T, want number", ErrInvalidAccount, key, v)
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%w: parsing %s: %v", ErrInvalidAccount, key, err)
	}
	return decimal.NewNullDecimal(d), nil
}

func lastUpdated(fields map[string]any) (time.Time, error) {
	meta, ok := fields["metaData"].(map[string]any)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: missing metaData", ErrInvalidAccount)
	}
	raw, ok := meta["lastUpdatedDate"].(string)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: missing metaData.lastUpdatedDate", ErrInvalidAccount)
	}
	t, err := ParseTimestamp(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: metaData.lastUpdatedDate: %v", ErrInvalidAccount, err)
	}
	return t, nil
}
