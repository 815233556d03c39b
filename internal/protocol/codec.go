package protocol

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// Marshal encodes v as MessagePack with named struct fields. Integers use
// their most compact form and map keys are sorted, so equal values always
// produce equal bytes.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseCompactInts(true)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes exactly one value from b into v.
func Unmarshal(b []byte, v any) error {
	r := bytes.NewReader(b)
	dec := msgpack.NewDecoder(r)
	if err := dec.Decode(v); err != nil {
		return &DecodeError{Size: len(b), Err: err}
	}
	if r.Len() != 0 {
		return &DecodeError{Size: len(b), Err: fmt.Errorf("%w: %d", ErrTrailingBytes, r.Len())}
	}
	return nil
}

// readTag reads the head of an externally tagged union value. A bare string
// is a unit variant (unit=true) and nothing follows it. A single-entry map
// leaves the decoder positioned at the payload.
func readTag(dec *msgpack.Decoder) (name string, unit bool, err error) {
	c, err := dec.PeekCode()
	if err != nil {
		return "", false, err
	}
	if msgpcode.IsString(c) {
		name, err = dec.DecodeString()
		return name, true, err
	}
	n, err := dec.DecodeMapLen()
	if err != nil {
		return "", false, err
	}
	if n != 1 {
		return "", false, fmt.Errorf("%w: map with %d entries", ErrNotTagged, n)
	}
	name, err = dec.DecodeString()
	return name, false, err
}

// writeTagged writes {name: payload}.
func writeTagged(enc *msgpack.Encoder, name string, payload any) error {
	if err := enc.EncodeMapLen(1); err != nil {
		return err
	}
	if err := enc.EncodeString(name); err != nil {
		return err
	}
	return enc.Encode(payload)
}

// skipUnitPayload accepts the {Name: nil} spelling of a unit variant.
func skipUnitPayload(dec *msgpack.Decoder) error {
	c, err := dec.PeekCode()
	if err != nil {
		return err
	}
	if c != msgpcode.Nil {
		return fmt.Errorf("unit variant carries a payload (code 0x%02x)", c)
	}
	return dec.DecodeNil()
}

func isNext(dec *msgpack.Decoder, code byte) (bool, error) {
	c, err := dec.PeekCode()
	if err != nil {
		return false, err
	}
	return c == code, nil
}

func decodeOptionalUint(dec *msgpack.Decoder) (*uint64, error) {
	if null, err := isNext(dec, msgpcode.Nil); err != nil || null {
		if err == nil {
			err = dec.DecodeNil()
		}
		return nil, err
	}
	v, err := dec.DecodeUint64()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Bytes is a byte payload carried as a sequence of small integers, which is
// how the server serialises its byte vectors. Bin-encoded payloads are
// accepted on decode as well.
type Bytes []byte

func (b Bytes) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(len(b)); err != nil {
		return err
	}
	for _, v := range b {
		if err := enc.EncodeUint(uint64(v)); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bytes) DecodeMsgpack(dec *msgpack.Decoder) error {
	c, err := dec.PeekCode()
	if err != nil {
		return err
	}
	if msgpcode.IsBin(c) {
		raw, err := dec.DecodeBytes()
		if err != nil {
			return err
		}
		*b = raw
		return nil
	}
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n < 0 {
		*b = nil
		return nil
	}
	out := make([]byte, n)
	for i := range out {
		v, err := dec.DecodeUint8()
		if err != nil {
			return err
		}
		out[i] = v
	}
	*b = out
	return nil
}
