// Package wire prepares payloads for MQTT transmission.
//
// Home Assistant's template engine compares rendered strings, so native JSON
// booleans are rewritten to "true"/"false" before anything is sent.
package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Encode serializes v to JSON with every boolean, at any depth, replaced by
// its lower-case string form. Object keys keep the order v marshals to, so
// struct payloads go out in field order; numbers keep their original text.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling payload: %w", err)
	}
	return StringifyBooleans(data)
}

// StringifyBooleans rewrites the booleans of a JSON document as strings.
// data is not modified.
func StringifyBooleans(data []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var buf bytes.Buffer
	if err := rewriteValue(dec, &buf); err != nil {
		return nil, fmt.Errorf("rewriting payload: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("rewriting payload: trailing data after JSON value")
	}
	return buf.Bytes(), nil
}

func rewriteValue(dec *json.Decoder, buf *bytes.Buffer) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return rewriteObject(dec, buf)
		case '[':
			return rewriteArray(dec, buf)
		default:
			return fmt.Errorf("unexpected delimiter %q", t)
		}
	case bool:
		buf.WriteString(strconv.Quote(strconv.FormatBool(t)))
	case json.Number:
		buf.WriteString(t.String())
	case string:
		return writeString(buf, t)
	case nil:
		buf.WriteString("null")
	default:
		return fmt.Errorf("unexpected token %T", tok)
	}
	return nil
}

func rewriteObject(dec *json.Decoder, buf *bytes.Buffer) error {
	buf.WriteByte('{')
	for first := true; dec.More(); first = false {
		if !first {
			buf.WriteByte(',')
		}
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("object key has type %T", tok)
		}
		if err := writeString(buf, key); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := rewriteValue(dec, buf); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil { // closing '}'
		return err
	}
	buf.WriteByte('}')
	return nil
}

func rewriteArray(dec *json.Decoder, buf *bytes.Buffer) error {
	buf.WriteByte('[')
	for first := true; dec.More(); first = false {
		if !first {
			buf.WriteByte(',')
		}
		if err := rewriteValue(dec, buf); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil { // closing ']'
		return err
	}
	buf.WriteByte(']')
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
