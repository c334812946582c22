package genlayer

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
)

// GenVM calldata: every value starts with a ULEB128 head whose low three bits
// carry the type and whose remaining bits carry a length, count or integer.
const (
	typeSpecial = 0
	typePInt    = 1
	typeNInt    = 2
	typeBytes   = 3
	typeStr     = 4
	typeArr     = 5
	typeMap     = 6

	bitsInType = 3

	specialNull  = 0
	specialFalse = 1
	specialTrue  = 2
	specialAddr  = 3
)

var ErrMalformedCalldata = errors.New("malformed calldata")

// MethodCall builds the calldata object for a contract method invocation.
func MethodCall(method string, args []any) map[string]any {
	call := map[string]any{"method": method}
	if len(args) > 0 {
		call["args"] = args
	}
	return call
}

func EncodeCalldata(v any) ([]byte, error) {
	var buf []byte
	return appendValue(buf, v)
}

func appendValue(buf []byte, v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return appendTyped(buf, big.NewInt(specialNull), typeSpecial), nil
	case bool:
		if val {
			return appendTyped(buf, big.NewInt(specialTrue), typeSpecial), nil
		}
		return appendTyped(buf, big.NewInt(specialFalse), typeSpecial), nil
	case common.Address:
		buf = appendTyped(buf, big.NewInt(specialAddr), typeSpecial)
		return append(buf, val.Bytes()...), nil
	case int:
		return appendInt(buf, big.NewInt(int64(val))), nil
	case int32:
		return appendInt(buf, big.NewInt(int64(val))), nil
	case int64:
		return appendInt(buf, big.NewInt(val)), nil
	case uint64:
		return appendInt(buf, new(big.Int).SetUint64(val)), nil
	case *big.Int:
		return appendInt(buf, val), nil
	case string:
		buf = appendTyped(buf, big.NewInt(int64(len(val))), typeStr)
		return append(buf, val...), nil
	case []byte:
		buf = appendTyped(buf, big.NewInt(int64(len(val))), typeBytes)
		return append(buf, val...), nil
	case []string:
		items := make([]any, len(val))
		for i, s := range val {
			items[i] = s
		}
		return appendValue(buf, items)
	case []any:
		buf = appendTyped(buf, big.NewInt(int64(len(val))), typeArr)
		var err error
		for _, item := range val {
			if buf, err = appendValue(buf, item); err != nil {
				return nil, err
			}
		}
		return buf, nil
	case map[string]any:
		return appendMap(buf, val)
	default:
		return nil, fmt.Errorf("calldata: unsupported type %T", v)
	}
}

func appendInt(buf []byte, n *big.Int) []byte {
	if n.Sign() >= 0 {
		return appendTyped(buf, n, typePInt)
	}
	// -n - 1
	abs := new(big.Int).Neg(n)
	abs.Sub(abs, big.NewInt(1))
	return appendTyped(buf, abs, typeNInt)
}

func appendMap(buf []byte, m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Keys are ordered by their UTF-8 bytes, which is what Go's string
	// comparison does.
	sort.Strings(keys)

	buf = appendTyped(buf, big.NewInt(int64(len(keys))), typeMap)
	var err error
	for _, k := range keys {
		buf = appendUleb(buf, big.NewInt(int64(len(k))))
		buf = append(buf, k...)
		if buf, err = appendValue(buf, m[k]); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func appendTyped(buf []byte, n *big.Int, typ int64) []byte {
	head := new(big.Int).Lsh(n, bitsInType)
	head.Or(head, big.NewInt(typ))
	return appendUleb(buf, head)
}

func appendUleb(buf []byte, n *big.Int) []byte {
	v := new(big.Int).Set(n)
	mask := big.NewInt(0x7f)
	low := new(big.Int)
	for {
		b := byte(low.And(v, mask).Uint64())
		v.Rsh(v, 7)
		if v.Sign() == 0 {
			return append(buf, b)
		}
		buf = append(buf, b|0x80)
	}
}

// DecodeCalldata decodes a single calldata value that must span all of data.
// Integers come back as int64 when they fit and *big.Int otherwise.
func DecodeCalldata(data []byte) (any, error) {
	d := &decoder{data: data}
	v, err := d.value()
	if err != nil {
		return nil, err
	}
	if d.pos != len(d.data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformedCalldata, len(d.data)-d.pos)
	}
	return v, nil
}

type decoder struct {
	data []byte
	pos  int
}

func (d *decoder) uleb() (*big.Int, error) {
	result := new(big.Int)
	var shift uint
	for {
		if d.pos >= len(d.data) {
			return nil, fmt.Errorf("%w: truncated integer", ErrMalformedCalldata)
		}
		b := d.data[d.pos]
		d.pos++
		chunk := new(big.Int).SetUint64(uint64(b & 0x7f))
		result.Or(result, chunk.Lsh(chunk, shift))
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
}

func (d *decoder) take(n *big.Int) ([]byte, error) {
	if !n.IsInt64() || n.Int64() > int64(len(d.data)-d.pos) {
		return nil, fmt.Errorf("%w: length %s exceeds input", ErrMalformedCalldata, n)
	}
	end := d.pos + int(n.Int64())
	out := d.data[d.pos:end]
	d.pos = end
	return out, nil
}

func (d *decoder) count(n *big.Int) (int, error) {
	// Every element needs at least one byte, so a count beyond the remaining
	// input is malformed.
	if !n.IsInt64() || n.Int64() > int64(len(d.data)-d.pos) {
		return 0, fmt.Errorf("%w: count %s exceeds input", ErrMalformedCalldata, n)
	}
	return int(n.Int64()), nil
}

func (d *decoder) value() (any, error) {
	head, err := d.uleb()
	if err != nil {
		return nil, err
	}
	typ := new(big.Int).And(head, big.NewInt(1<<bitsInType-1)).Int64()
	arg := head.Rsh(head, bitsInType)

	switch typ {
	case typeSpecial:
		if !arg.IsInt64() {
			return nil, fmt.Errorf("%w: unknown special value", ErrMalformedCalldata)
		}
		switch arg.Int64() {
		case specialNull:
			return nil, nil
		case specialFalse:
			return false, nil
		case specialTrue:
			return true, nil
		case specialAddr:
			raw, err := d.take(big.NewInt(common.AddressLength))
			if err != nil {
				return nil, err
			}
			return common.BytesToAddress(raw), nil
		}
		return nil, fmt.Errorf("%w: unknown special value %s", ErrMalformedCalldata, arg)
	case typePInt:
		return normalizeInt(arg), nil
	case typeNInt:
		n := new(big.Int).Neg(arg)
		return normalizeInt(n.Sub(n, big.NewInt(1))), nil
	case typeBytes:
		raw, err := d.take(arg)
		if err != nil {
			return nil, err
		}
		return bytes.Clone(raw), nil
	case typeStr:
		raw, err := d.take(arg)
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(raw) {
			return nil, fmt.Errorf("%w: invalid utf-8 string", ErrMalformedCalldata)
		}
		return string(raw), nil
	case typeArr:
		n, err := d.count(arg)
		if err != nil {
			return nil, err
		}
		items := make([]any, 0, n)
		for i := 0; i < n; i++ {
			item, err := d.value()
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	case typeMap:
		n, err := d.count(arg)
		if err != nil {
			return nil, err
		}
		m := make(map[string]any, n)
		for i := 0; i < n; i++ {
			keyLen, err := d.uleb()
			if err != nil {
				return nil, err
			}
			key, err := d.take(keyLen)
			if err != nil {
				return nil, err
			}
			val, err := d.value()
			if err != nil {
				return nil, err
			}
			m[string(key)] = val
		}
		return m, nil
	}

	return nil, fmt.Errorf("%w: unknown type tag %d", ErrMalformedCalldata, typ)
}

func normalizeInt(n *big.Int) any {
	if n.IsInt64() {
		return n.Int64()
	}
	return n
}
