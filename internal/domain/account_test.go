package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

const checkingJSON = `{
	"id": "43327567_11427789",
	"name": "Everyday Checking",
	"fiName": "First Bank",
	"fiLoginId": "login-1",
	"type": "BankAccount",
	"bankAccountType": "CHECKING",
	"currency": "USD",
	"availableBalance": 1234.56,
	"currentBalance": 1300.00,
	"isError": false,
	"metaData": {"lastUpdatedDate": "2026-10-17T08:30:00Z"}
}`

func TestParseAccountValid(t *testing.T) {
	a, err := ParseAccount([]byte(checkingJSON))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID != "43327567_11427789" {
		t.Errorf("ID = %q", a.ID)
	}
	if a.Type != AccountTypeBank {
		t.Errorf("Type = %q, want BankAccount", a.Type)
	}
	if !a.IsChecking() {
		t.Error("IsChecking() = false, want true")
	}
	want := time.Date(2026, 10, 17, 8, 30, 0, 0, time.UTC)
	if !a.LastUpdated.Equal(want) {
		t.Errorf("LastUpdated = %v, want %v", a.LastUpdated, want)
	}
	if !a.AvailableBalance.Valid || a.AvailableBalance.Decimal.String() != "1234.56" {
		t.Errorf("AvailableBalance = %+v", a.AvailableBalance)
	}
	if a.Value.Valid {
		t.Error("Value should be absent")
	}
}

func TestParseAccountNumericID(t *testing.T) {
	a, err := ParseAccount([]byte(`{"id": 42, "name": "Brokerage", "fiName": "Broker", "fiLoginId": "l",
		"type": "InvestmentAccount", "currency": "USD", "metaData": {"lastUpdatedDate": "2026-01-01"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID != "42" {
		t.Errorf("ID = %q, want 42", a.ID)
	}
}

func TestParseAccountMissingFields(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"missing id", `{"name":"n","fiName":"f","fiLoginId":"l","type":"InvestmentAccount","currency":"USD","metaData":{"lastUpdatedDate":"2026-01-01"}}`},
		{"missing metaData", `{"id":"1","name":"n","fiName":"f","fiLoginId":"l","type":"InvestmentAccount","currency":"USD"}`},
		{"missing lastUpdatedDate", `{"id":"1","name":"n","fiName":"f","fiLoginId":"l","type":"InvestmentAccount","currency":"USD","metaData":{}}`},
		{"bad lastUpdatedDate", `{"id":"1","name":"n","fiName":"f","fiLoginId":"l","type":"InvestmentAccount","currency":"USD","metaData":{"lastUpdatedDate":"yesterday"}}`},
		{"bank without bankAccountType", `{"id":"1","name":"n","fiName":"f","fiLoginId":"l","type":"BankAccount","currency":"USD","metaData":{"lastUpdatedDate":"2026-01-01"}}`},
		{"balance not a number", `{"id":"1","name":"n","fiName":"f","fiLoginId":"l","type":"InvestmentAccount","currency":"USD","currentBalance":"lots","metaData":{"lastUpdatedDate":"2026-01-01"}}`},
		{"null record", `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAccount([]byte(tt.json))
			if !errors.Is(err, ErrInvalidAccount) {
				t.Errorf("err = %v, want ErrInvalidAccount", err)
			}
		})
	}
}

func TestAccountMarshalReturnsOriginalBytes(t *testing.T) {
	a, err := ParseAccount([]byte(checkingJSON))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var compacted, original any
	if err := json.Unmarshal(out, &compacted); err != nil {
		t.Fatalf("unmarshal output: %v", err)
	}
	if err := json.Unmarshal([]byte(checkingJSON), &original); err != nil {
		t.Fatalf("unmarshal input: %v", err)
	}
	if string(mustJSON(t, compacted)) != string(mustJSON(t, original)) {
		t.Errorf("marshaled account differs from input:\n%s", out)
	}
}

func TestAccountBalancePrecedence(t *testing.T) {
	a, err := ParseAccount([]byte(`{"id":"1","name":"n","fiName":"f","fiLoginId":"l","type":"InvestmentAccount",
		"currency":"USD","currentBalance":100,"value":250,"metaData":{"lastUpdatedDate":"2026-01-01"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bal, ok := a.Balance()
	if !ok || bal.String() != "100" {
		t.Errorf("Balance() = %s, %v; want 100, true", bal, ok)
	}
}

func TestAccountTypeEligible(t *testing.T) {
	for typ, want := range map[AccountType]bool{
		AccountTypeBank:       true,
		AccountTypeInvestment: true,
		AccountTypeCredit:     false,
		AccountTypeLoan:       false,
		AccountType("Bogus"):  false,
	} {
		if got := typ.Eligible(); got != want {
			t.Errorf("%s.Eligible() = %v, want %v", typ, got, want)
		}
	}
}

func TestParseTimestampLayouts(t *testing.T) {
	for _, s := range []string{
		"2026-10-17T08:30:00Z",
		"2026-10-17T08:30:00.123456Z",
		"2026-10-17T08:30:00-07:00",
		"2026-10-17T08:30:00+0000",
		"2026-10-17T08:30:00",
		"2026-10-17",
	} {
		if _, err := ParseTimestamp(s); err != nil {
			t.Errorf("ParseTimestamp(%q) error: %v", s, err)
		}
	}
	if _, err := ParseTimestamp("17/10/2026"); err == nil {
		t.Error("expected error for non ISO-8601 input")
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}
