// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

// Package bstore implements a self-describing, tagged-union value tree used
// to persist everything this repository keeps on disk: paired peer
// records, per-directory change-detection data, and the storage format
// version header that drives schema migration.
//
// Every value is one of the nine variants below. Encode/Decode round-trip a
// Value to/from any io.Writer/io.Reader; the codec has no notion of a Go
// struct schema; that layer lives in the store package, which builds and
// tears down Values by hand (using the As*/Require* accessors in
// derive.go), the same division of labor iomeshage keeps between its
// wire Message and the higher-level Transfer bookkeeping it feeds.
package bstore

import "errors"

// Tag identifies which Value variant follows on the wire.
type Tag byte

const (
	TagU8        Tag = 0x01
	TagU32       Tag = 0x02
	TagU64       Tag = 0x03
	TagString    Tag = 0x04
	TagByteArray Tag = 0x05
	TagTuple     Tag = 0x06
	TagOption    Tag = 0x07
	TagObject    Tag = 0x08
	TagArray     Tag = 0x09
)

func (t Tag) String() string {
	switch t {
	case TagU8:
		return "U8"
	case TagU32:
		return "U32"
	case TagU64:
		return "U64"
	case TagString:
		return "String"
	case TagByteArray:
		return "ByteArray"
	case TagTuple:
		return "Tuple"
	case TagOption:
		return "Option"
	case TagObject:
		return "Object"
	case TagArray:
		return "Array"
	default:
		return "Unknown"
	}
}

// Value is the closed sum type at the root of every encoded record. Reading
// code that switches over a Value must handle all nine variants and fail on
// anything else, keeping to a "tagged enums, not class hierarchies"
// discipline.
type Value interface {
	Tag() Tag
}

type U8Value uint8

func (U8Value) Tag() Tag { return TagU8 }

type U32Value uint32

func (U32Value) Tag() Tag { return TagU32 }

type U64Value uint64

func (U64Value) Tag() Tag { return TagU64 }

type StringValue string

func (StringValue) Tag() Tag { return TagString }

type ByteArrayValue []byte

func (ByteArrayValue) Tag() Tag { return TagByteArray }

// TupleValue is a heterogeneous, position-ordered sequence of values.
type TupleValue []Value

func (TupleValue) Tag() Tag { return TagTuple }

// OptionValue represents an optional value. Inner is nil iff the option is
// absent.
type OptionValue struct {
	Inner Value
}

func (OptionValue) Tag() Tag { return TagOption }

// Field is one named slot of an ObjectValue. Field order on the wire is the
// order fields were appended; field names must be unique within an object.
type Field struct {
	Name  string
	Value Value
}

// ObjectValue is a name-keyed, order-preserving record. Decode rejects a
// duplicate field name but does not check names against any schema, and
// the store package's from_value functions read the fields they need by
// name and ignore any others: unknown fields are not rejected.
type ObjectValue struct {
	Fields []Field
}

func (ObjectValue) Tag() Tag { return TagObject }

func (o ObjectValue) Get(name string) (Value, bool) {
	for _, f := range o.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

func (o *ObjectValue) Set(name string, v Value) {
	for i, f := range o.Fields {
		if f.Name == name {
			o.Fields[i].Value = v
			return
		}
	}
	o.Fields = append(o.Fields, Field{Name: name, Value: v})
}

// ArrayValue is a homogeneous sequence sharing a single element tag, encoded
// once for the whole array rather than once per element.
type ArrayValue struct {
	ElemTag Tag
	Elems   []Value
}

func (ArrayValue) Tag() Tag { return TagArray }

// ErrMalformedEncoding is returned for any structurally invalid input: an
// unknown tag byte, a length prefix exceeding the configured cap, invalid
// UTF-8 in a String, an Option presence byte that isn't 0 or 1, or an
// Object with a duplicate field name.
var ErrMalformedEncoding = errors.New("bstore: malformed encoding")
