package wire

import (
	"encoding/json"
	"testing"
)

func TestStringifyBooleansNested(t *testing.T) {
	in := []byte(`{"a":true,"b":[false,{"c":true}],"d":null,"e":"true"}`)
	want := `{"a":"true","b":["false",{"c":"true"}],"d":null,"e":"true"}`

	got, err := StringifyBooleans(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != want {
		t.Errorf("StringifyBooleans() = %s, want %s", got, want)
	}

	again, err := StringifyBooleans(got)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(again) != string(got) {
		t.Errorf("StringifyBooleans() not idempotent: %s then %s", got, again)
	}
}

func TestStringifyBooleansScalars(t *testing.T) {
	for in, want := range map[string]string{
		`true`:  `"true"`,
		`false`: `"false"`,
		`null`:  `null`,
		`"x"`:   `"x"`,
		`1.50`:  `1.50`,
		`[]`:    `[]`,
		`{}`:    `{}`,
	} {
		got, err := StringifyBooleans([]byte(in))
		if err != nil {
			t.Errorf("StringifyBooleans(%s) error: %v", in, err)
			continue
		}
		if string(got) != want {
			t.Errorf("StringifyBooleans(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestStringifyBooleansRejectsInvalid(t *testing.T) {
	for _, in := range []string{`{"a":`, `[1,2`, `true false`} {
		if _, err := StringifyBooleans([]byte(in)); err == nil {
			t.Errorf("StringifyBooleans(%s) expected error", in)
		}
	}
}

func TestEncodeStructKeepsFieldOrder(t *testing.T) {
	type payload struct {
		Name        string `json:"name"`
		UniqueID    string `json:"unique_id"`
		ForceUpdate bool   `json:"force_update"`
		Icon        string `json:"icon,omitempty"`
	}

	out, err := Encode(payload{Name: "x", UniqueID: "1_balance", ForceUpdate: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != `{"name":"x","unique_id":"1_balance","force_update":"true"}` {
		t.Errorf("Encode() = %s", out)
	}
}

func TestEncodeRawMessageKeepsNumbersAndOrder(t *testing.T) {
	raw := json.RawMessage(`{"isError":false,"currentBalance":100.10,"metaData":{"stale":true}}`)

	out, err := Encode(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"isError":"false","currentBalance":100.10,"metaData":{"stale":"true"}}`
	if string(out) != want {
		t.Errorf("Encode() = %s, want %s", out, want)
	}
	if string(raw) != `{"isError":false,"currentBalance":100.10,"metaData":{"stale":true}}` {
		t.Error("Encode mutated its input")
	}
}

func TestEncodeMap(t *testing.T) {
	out, err := Encode(map[string]any{"b": true, "a": json.Number("2")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != `{"a":2,"b":"true"}` {
		t.Errorf("Encode() = %s", out)
	}
}

func TestEncodeInvalid(t *testing.T) {
	if _, err := Encode(make(chan int)); err == nil {
		t.Error("expected error for unmarshalable value")
	}
}
