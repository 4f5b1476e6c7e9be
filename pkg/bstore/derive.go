// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

package bstore

import "fmt"

// This file holds the hand-written equivalent of what the original Rust
// implementation generated per-type (`to_value`/`from_value`). bstore does
// not carry a code generator; every persisted record type in the store
// package writes a small pair of functions following one of the two forms
// below:
//
//   - Tuple-form (order-based): stable across migrations by position. Use
//     AsTuple and index into the result. Pick this for records that change
//     rarely and evolve by adding new trailing elements only at a version
//     bump.
//   - Object-form (name-based): fields are looked up by name, so field
//     order does not matter. Neither the codec (codec.go's decodeUntagged
//     for TagObject rejects only duplicate names) nor these accessors
//     reject an unknown field; it is ignored.
//
// The accessor helpers below exist so hand-written to_value/from_value
// pairs do not each reimplement "assert this field is a StringValue or
// fail".

type fieldError struct {
	name string
	want Tag
	got  Tag
}

func (e *fieldError) Error() string {
	if e.name == "" {
		return fmt.Sprintf("bstore: expected %v, got %v", e.want, e.got)
	}
	return fmt.Sprintf("bstore: field %q: expected %v, got %v", e.name, e.want, e.got)
}

func RequireField(obj ObjectValue, name string) (Value, error) {
	v, ok := obj.Get(name)
	if !ok {
		return nil, fmt.Errorf("bstore: missing required field %q", name)
	}
	return v, nil
}

func AsString(v Value, name string) (string, error) {
	s, ok := v.(StringValue)
	if !ok {
		return "", &fieldError{name: name, want: TagString, got: v.Tag()}
	}
	return string(s), nil
}

func AsByteArray(v Value, name string) ([]byte, error) {
	b, ok := v.(ByteArrayValue)
	if !ok {
		return nil, &fieldError{name: name, want: TagByteArray, got: v.Tag()}
	}
	return []byte(b), nil
}

func AsU8(v Value, name string) (uint8, error) {
	u, ok := v.(U8Value)
	if !ok {
		return 0, &fieldError{name: name, want: TagU8, got: v.Tag()}
	}
	return uint8(u), nil
}

func AsU32(v Value, name string) (uint32, error) {
	u, ok := v.(U32Value)
	if !ok {
		return 0, &fieldError{name: name, want: TagU32, got: v.Tag()}
	}
	return uint32(u), nil
}

func AsU64(v Value, name string) (uint64, error) {
	u, ok := v.(U64Value)
	if !ok {
		return 0, &fieldError{name: name, want: TagU64, got: v.Tag()}
	}
	return uint64(u), nil
}

func AsTuple(v Value, name string) (TupleValue, error) {
	t, ok := v.(TupleValue)
	if !ok {
		return nil, &fieldError{name: name, want: TagTuple, got: v.Tag()}
	}
	return t, nil
}

func AsObject(v Value, name string) (ObjectValue, error) {
	o, ok := v.(ObjectValue)
	if !ok {
		return ObjectValue{}, &fieldError{name: name, want: TagObject, got: v.Tag()}
	}
	return o, nil
}

func AsArray(v Value, name string) (ArrayValue, error) {
	a, ok := v.(ArrayValue)
	if !ok {
		return ArrayValue{}, &fieldError{name: name, want: TagArray, got: v.Tag()}
	}
	return a, nil
}

// AsOption unwraps an OptionValue, returning (nil, false) when absent.
func AsOption(v Value, name string) (Value, bool, error) {
	o, ok := v.(OptionValue)
	if !ok {
		return nil, false, &fieldError{name: name, want: TagOption, got: v.Tag()}
	}
	if o.Inner == nil {
		return nil, false, nil
	}
	return o.Inner, true, nil
}

// RequireStringField and friends combine RequireField with the matching
// As* conversion, the common case in a from_value implementation.
func RequireStringField(obj ObjectValue, name string) (string, error) {
	v, err := RequireField(obj, name)
	if err != nil {
		return "", err
	}
	return AsString(v, name)
}

func RequireByteArrayField(obj ObjectValue, name string) ([]byte, error) {
	v, err := RequireField(obj, name)
	if err != nil {
		return nil, err
	}
	return AsByteArray(v, name)
}

func RequireU64Field(obj ObjectValue, name string) (uint64, error) {
	v, err := RequireField(obj, name)
	if err != nil {
		return 0, err
	}
	return AsU64(v, name)
}

func RequireArrayField(obj ObjectValue, name string) (ArrayValue, error) {
	v, err := RequireField(obj, name)
	if err != nil {
		return ArrayValue{}, err
	}
	return AsArray(v, name)
}

func RequireOptionField(obj ObjectValue, name string) (Value, bool, error) {
	v, err := RequireField(obj, name)
	if err != nil {
		return nil, false, err
	}
	return AsOption(v, name)
}
