package tlv

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeDecodeFieldsRoundTripPreservesUnknown(t *testing.T) {
	in := []Field{
		StringField(1, "gateway"),
		BytesField(9999, []byte{0xAA, 0xBB}), // unknown field id
	}
	out, err := DecodeFields(EncodeFields(in))
	if err != nil {
		t.Fatalf("decode fields: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(out))
	}
	if out[1].ID != 9999 || out[1].Type != TypeBytes || !bytes.Equal(out[1].Value, []byte{0xAA, 0xBB}) {
		t.Fatalf("unknown field not preserved: %+v", out[1])
	}
}

func TestDecodeFieldsMalformedHeaderIsDeterministic(t *testing.T) {
	_, err := DecodeFields([]byte{1, 2, 3})
	if !errors.Is(err, ErrShortFieldHeader) {
		t.Fatalf("expected ErrShortFieldHeader, got %v", err)
	}
}

func TestDecodeFieldsMalformedLengthIsDeterministic(t *testing.T) {
	// id=1, type=string, len=5, value only 2 bytes
	payload := []byte{0, 1, TypeString, 0, 0, 0, 5, 'a', 'b'}
	_, err := DecodeFields(payload)
	if !errors.Is(err, ErrShortFieldValue) {
		t.Fatalf("expected ErrShortFieldValue, got %v", err)
	}
}

func TestDecodeFieldsRejectsDuplicateID(t *testing.T) {
	b := EncodeFields([]Field{StringField(1, "a"), StringField(1, "b")})
	if _, err := DecodeFields(b); !errors.Is(err, ErrDuplicateField) {
		t.Fatalf("expected ErrDuplicateField, got %v", err)
	}
}

func TestF64FieldRoundTrip(t *testing.T) {
	f := F64Field(3, 1712345678.25)
	if err := MustType(f, TypeU64); err != nil {
		t.Fatalf("must type: %v", err)
	}
	got, err := F64FromBytes(f.Value)
	if err != nil || got != 1712345678.25 {
		t.Fatalf("float round trip: got=%v err=%v", got, err)
	}
	if _, err := F64FromBytes([]byte{1, 2}); err == nil {
		t.Fatalf("expected short value error")
	}
}
