// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

package bstore

import (
	"fmt"
	"io"

	"github.com/gameraccoon/easy-photo-backup-sub000/pkg/wire"
)

// Limits bounds the length prefixes Decode will accept. The zero value
// means "use MaxLength", i.e. no effective limit beyond uint32 range.
type Limits struct {
	MaxLength uint32
}

func defaultLimits(l Limits) Limits {
	if l.MaxLength == 0 {
		l.MaxLength = wire.NoLimit
	}
	return l
}

// Encode writes a fully tagged Value: a one-byte Tag followed by the
// variant's payload.
func Encode(w io.Writer, v Value) error {
	if err := wire.WriteU8(w, uint8(v.Tag())); err != nil {
		return err
	}
	return encodeUntagged(w, v)
}

// encodeUntagged writes a Value's payload without its leading tag byte; used
// for Array elements, which share one tag byte for the whole array.
func encodeUntagged(w io.Writer, v Value) error {
	switch val := v.(type) {
	case U8Value:
		return wire.WriteU8(w, uint8(val))
	case U32Value:
		return wire.WriteU32(w, uint32(val))
	case U64Value:
		return wire.WriteU64(w, uint64(val))
	case StringValue:
		return wire.WriteString(w, string(val))
	case ByteArrayValue:
		return wire.WriteBytes(w, []byte(val))
	case TupleValue:
		if err := wire.WriteU32(w, uint32(len(val))); err != nil {
			return err
		}
		for _, elem := range val {
			if err := Encode(w, elem); err != nil {
				return err
			}
		}
		return nil
	case OptionValue:
		if val.Inner == nil {
			return wire.WriteU8(w, 0)
		}
		if err := wire.WriteU8(w, 1); err != nil {
			return err
		}
		return Encode(w, val.Inner)
	case ObjectValue:
		if err := wire.WriteU32(w, uint32(len(val.Fields))); err != nil {
			return err
		}
		for _, f := range val.Fields {
			if err := wire.WriteString(w, f.Name); err != nil {
				return err
			}
			if err := Encode(w, f.Value); err != nil {
				return err
			}
		}
		return nil
	case ArrayValue:
		if err := wire.WriteU32(w, uint32(len(val.Elems))); err != nil {
			return err
		}
		if err := wire.WriteU8(w, uint8(val.ElemTag)); err != nil {
			return err
		}
		for _, elem := range val.Elems {
			if elem.Tag() != val.ElemTag {
				return fmt.Errorf("bstore: array element tag %v does not match declared %v", elem.Tag(), val.ElemTag)
			}
			if err := encodeUntagged(w, elem); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("bstore: unsupported value type %T", v)
	}
}

// Decode reads one fully tagged Value under the given Limits.
func Decode(r io.Reader, limits Limits) (Value, error) {
	limits = defaultLimits(limits)

	tagByte, err := wire.ReadU8(r)
	if err != nil {
		return nil, err
	}
	return decodeUntagged(r, Tag(tagByte), limits)
}

func decodeUntagged(r io.Reader, tag Tag, limits Limits) (Value, error) {
	switch tag {
	case TagU8:
		v, err := wire.ReadU8(r)
		if err != nil {
			return nil, err
		}
		return U8Value(v), nil
	case TagU32:
		v, err := wire.ReadU32(r)
		if err != nil {
			return nil, err
		}
		return U32Value(v), nil
	case TagU64:
		v, err := wire.ReadU64(r)
		if err != nil {
			return nil, err
		}
		return U64Value(v), nil
	case TagString:
		s, err := wire.ReadString(r, limits.MaxLength)
		if err != nil {
			return nil, wrapMalformed(err)
		}
		return StringValue(s), nil
	case TagByteArray:
		b, err := wire.ReadBytes(r, limits.MaxLength)
		if err != nil {
			return nil, wrapMalformed(err)
		}
		return ByteArrayValue(b), nil
	case TagTuple:
		count, err := wire.ReadU32(r)
		if err != nil {
			return nil, err
		}
		if count > limits.MaxLength {
			return nil, fmt.Errorf("%w: tuple count %d exceeds max %d", ErrMalformedEncoding, count, limits.MaxLength)
		}
		elems := make(TupleValue, 0, count)
		for i := uint32(0); i < count; i++ {
			elem, err := Decode(r, limits)
			if err != nil {
				return nil, err
			}
			elems = append(elems, elem)
		}
		return elems, nil
	case TagOption:
		presence, err := wire.ReadU8(r)
		if err != nil {
			return nil, err
		}
		switch presence {
		case 0:
			return OptionValue{}, nil
		case 1:
			inner, err := Decode(r, limits)
			if err != nil {
				return nil, err
			}
			return OptionValue{Inner: inner}, nil
		default:
			return nil, fmt.Errorf("%w: option presence byte %d is not 0/1", ErrMalformedEncoding, presence)
		}
	case TagObject:
		count, err := wire.ReadU32(r)
		if err != nil {
			return nil, err
		}
		if count > limits.MaxLength {
			return nil, fmt.Errorf("%w: object field count %d exceeds max %d", ErrMalformedEncoding, count, limits.MaxLength)
		}
		obj := ObjectValue{Fields: make([]Field, 0, count)}
		seen := make(map[string]struct{}, count)
		for i := uint32(0); i < count; i++ {
			name, err := wire.ReadString(r, limits.MaxLength)
			if err != nil {
				return nil, wrapMalformed(err)
			}
			if _, dup := seen[name]; dup {
				return nil, fmt.Errorf("%w: duplicate object field %q", ErrMalformedEncoding, name)
			}
			seen[name] = struct{}{}
			val, err := Decode(r, limits)
			if err != nil {
				return nil, err
			}
			obj.Fields = append(obj.Fields, Field{Name: name, Value: val})
		}
		return obj, nil
	case TagArray:
		count, err := wire.ReadU32(r)
		if err != nil {
			return nil, err
		}
		if count > limits.MaxLength {
			return nil, fmt.Errorf("%w: array count %d exceeds max %d", ErrMalformedEncoding, count, limits.MaxLength)
		}
		elemTagByte, err := wire.ReadU8(r)
		if err != nil {
			return nil, err
		}
		elemTag := Tag(elemTagByte)
		arr := ArrayValue{ElemTag: elemTag, Elems: make([]Value, 0, count)}
		for i := uint32(0); i < count; i++ {
			elem, err := decodeUntagged(r, elemTag, limits)
			if err != nil {
				return nil, err
			}
			arr.Elems = append(arr.Elems, elem)
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("%w: unknown tag 0x%02x", ErrMalformedEncoding, byte(tag))
	}
}

func wrapMalformed(err error) error {
	return fmt.Errorf("%w: %v", ErrMalformedEncoding, err)
}
