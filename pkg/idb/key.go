package idb

import (
	"bytes"
	"encoding/binary"
	"math"
	"reflect"
	"time"
)

// Key is a valid record key: float64, string, time.Time or []byte after
// normalization. Integer kinds are accepted on input and stored as float64.
type Key = any

// Key type tags. Their order defines the cross-type key order.
const (
	tagNumber byte = 0x10
	tagDate   byte = 0x20
	tagString byte = 0x30
	tagBinary byte = 0x40
)

// NormalizeKey validates k and converts numeric kinds to float64.
func NormalizeKey(k any) (Key, error) {
	switch v := k.(type) {
	case nil:
		return nil, newError(NameData, "key is missing")
	case float64:
		if math.IsNaN(v) {
			return nil, newError(NameData, "NaN is not a valid key")
		}
		return v, nil
	case string:
		return v, nil
	case time.Time:
		return v, nil
	case []byte:
		return append([]byte(nil), v...), nil
	}

	rv := reflect.ValueOf(k)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), nil
	case reflect.Float32:
		return NormalizeKey(rv.Float())
	case reflect.String:
		return rv.String(), nil
	}
	return nil, newError(NameData, "%T is not a valid key", k)
}

// encodeKey produces an order-preserving byte form of a normalized key.
func encodeKey(k Key) []byte {
	switch v := k.(type) {
	case float64:
		return append([]byte{tagNumber}, encodeFloat(v)...)
	case time.Time:
		return append([]byte{tagDate}, encodeFloat(float64(v.UnixMilli()))...)
	case string:
		return append([]byte{tagString}, v...)
	case []byte:
		return append([]byte{tagBinary}, v...)
	}
	return nil
}

// normalizeAndEncode is the common path for caller-supplied keys.
func normalizeAndEncode(k any) (Key, []byte, error) {
	nk, err := NormalizeKey(k)
	if err != nil {
		return nil, nil, err
	}
	return nk, encodeKey(nk), nil
}

func decodeKey(b []byte) (Key, error) {
	if len(b) == 0 {
		return nil, newError(NameUnknown, "empty stored key")
	}
	body := b[1:]
	switch b[0] {
	case tagNumber:
		return decodeFloat(body)
	case tagDate:
		ms, err := decodeFloat(body)
		if err != nil {
			return nil, err
		}
		return time.UnixMilli(int64(ms)).UTC(), nil
	case tagString:
		return string(body), nil
	case tagBinary:
		return append([]byte(nil), body...), nil
	}
	return nil, newError(NameUnknown, "unknown key tag 0x%02x", b[0])
}

// encodeFloat maps float64 to 8 bytes whose unsigned order matches numeric
// order: positive values get the sign bit set, negative values are inverted.
func encodeFloat(f float64) []byte {
	if f == 0 {
		f = 0 // fold -0 into +0
	}
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], bits)
	return buf[:]
}

func decodeFloat(b []byte) (float64, error) {
	if len(b) != 8 {
		return 0, newError(NameUnknown, "bad numeric key length %d", len(b))
	}
	bits := binary.BigEndian.Uint64(b)
	if bits&(1<<63) != 0 {
		bits &^= 1 << 63
	} else {
		bits = ^bits
	}
	return math.Float64frombits(bits), nil
}

// CompareKeys orders two keys the way the engine stores them. It returns
// -1, 0 or 1, or an error when either key is invalid.
func CompareKeys(a, b any) (int, error) {
	_, ea, err := normalizeAndEncode(a)
	if err != nil {
		return 0, err
	}
	_, eb, err := normalizeAndEncode(b)
	if err != nil {
		return 0, err
	}
	return bytes.Compare(ea, eb), nil
}

// KeyRange is a contiguous interval of keys. A nil bound is unbounded.
type KeyRange struct {
	Lower     Key
	Upper     Key
	LowerOpen bool
	UpperOpen bool
}

// Only matches exactly one key.
func Only(k Key) *KeyRange { return &KeyRange{Lower: k, Upper: k} }

// LowerBound matches keys at or above (or strictly above, when open) k.
func LowerBound(k Key, open bool) *KeyRange { return &KeyRange{Lower: k, LowerOpen: open} }

// UpperBound matches keys at or below (or strictly below, when open) k.
func UpperBound(k Key, open bool) *KeyRange { return &KeyRange{Upper: k, UpperOpen: open} }

// Bound matches keys between lower and upper.
func Bound(lower, upper Key, lowerOpen, upperOpen bool) *KeyRange {
	return &KeyRange{Lower: lower, Upper: upper, LowerOpen: lowerOpen, UpperOpen: upperOpen}
}

// encodedRange is a KeyRange with encoded bounds.
type encodedRange struct {
	lower, upper         []byte
	lowerOpen, upperOpen bool
}

// toRange converts a query argument (nil, a key or a *KeyRange) into an
// encoded range. A nil query matches every key.
func toRange(query any) (*encodedRange, error) {
	switch q := query.(type) {
	case nil:
		return &encodedRange{}, nil
	case *KeyRange:
		if q == nil {
			return &encodedRange{}, nil
		}
		r := &encodedRange{lowerOpen: q.LowerOpen, upperOpen: q.UpperOpen}
		if q.Lower != nil {
			_, b, err := normalizeAndEncode(q.Lower)
			if err != nil {
				return nil, err
			}
			r.lower = b
		}
		if q.Upper != nil {
			_, b, err := normalizeAndEncode(q.Upper)
			if err != nil {
				return nil, err
			}
			r.upper = b
		}
		if r.lower != nil && r.upper != nil {
			c := bytes.Compare(r.lower, r.upper)
			if c > 0 || (c == 0 && (r.lowerOpen || r.upperOpen)) {
				return nil, newError(NameData, "key range lower bound is above its upper bound")
			}
		}
		return r, nil
	}
	_, b, err := normalizeAndEncode(query)
	if err != nil {
		return nil, err
	}
	return &encodedRange{lower: b, upper: b}, nil
}

// where renders the range as SQL conditions on column.
func (r *encodedRange) where(column string) (string, []any) {
	var sql string
	var args []any
	if r.lower != nil {
		op := " >= ?"
		if r.lowerOpen {
			op = " > ?"
		}
		sql += " AND " + column + op
		args = append(args, r.lower)
	}
	if r.upper != nil {
		op := " <= ?"
		if r.upperOpen {
			op = " < ?"
		}
		sql += " AND " + column + op
		args = append(args, r.upper)
	}
	return sql, args
}
