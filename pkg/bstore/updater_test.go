// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

package bstore

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

func TestStorageUpdaterAppliesStepsInOrder(t *testing.T) {
	u := NewStorageUpdater()
	u.AddStep(2, func(v Value) (Value, error) {
		obj := v.(ObjectValue)
		obj.Set("added_in_v2", StringValue("yes"))
		return obj, nil
	})
	u.AddStep(3, func(v Value) (Value, error) {
		obj := v.(ObjectValue)
		obj.Set("added_in_v3", U32Value(7))
		return obj, nil
	})

	root := ObjectValue{}
	migrated, err := u.Apply(root, 1)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	obj := migrated.(ObjectValue)
	if _, ok := obj.Get("added_in_v2"); !ok {
		t.Fatalf("expected added_in_v2 field after migration")
	}
	if _, ok := obj.Get("added_in_v3"); !ok {
		t.Fatalf("expected added_in_v3 field after migration")
	}
}

func TestStorageUpdaterSkipsAlreadyAppliedSteps(t *testing.T) {
	u := NewStorageUpdater()
	applied := 0
	u.AddStep(2, func(v Value) (Value, error) {
		applied++
		return v, nil
	})

	_, err := u.Apply(ObjectValue{}, 2)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if applied != 0 {
		t.Fatalf("step for already-applied version should not run, ran %d times", applied)
	}
}

func TestStorageUpdaterRefusesUnknownFutureVersion(t *testing.T) {
	u := NewStorageUpdater()
	u.AddStep(2, func(v Value) (Value, error) { return v, nil })

	_, err := u.Apply(ObjectValue{}, 5)
	var future *UnknownFutureVersion
	if !errors.As(err, &future) {
		t.Fatalf("expected UnknownFutureVersion, got %v", err)
	}
}

func TestStorageUpdaterWrapsFailingPatch(t *testing.T) {
	u := NewStorageUpdater()
	cause := fmt.Errorf("broken patch")
	u.AddStep(2, func(v Value) (Value, error) { return nil, cause })

	_, err := u.Apply(ObjectValue{}, 1)
	var failure *MigrationFailure
	if !errors.As(err, &failure) {
		t.Fatalf("expected MigrationFailure, got %v", err)
	}
	if failure.From != 1 || failure.To != 2 {
		t.Fatalf("unexpected version pair: %+v", failure)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to be retrievable")
	}
}

func TestLoadFileRoundTripsThroughMigration(t *testing.T) {
	u := NewStorageUpdater()
	u.AddStep(2, func(v Value) (Value, error) {
		obj := v.(ObjectValue)
		obj.Set("new_field", StringValue("default"))
		return obj, nil
	})

	var buf bytes.Buffer
	root := ObjectValue{Fields: []Field{{Name: "old_field", Value: U8Value(1)}}}
	if err := SaveFile(&buf, 1, root); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}

	loaded, err := LoadFile(&buf, u, Limits{})
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	obj := loaded.(ObjectValue)
	if _, ok := obj.Get("new_field"); !ok {
		t.Fatalf("expected migrated field to be present")
	}
	if _, ok := obj.Get("old_field"); !ok {
		t.Fatalf("expected original field to survive migration")
	}
}

func TestLoadFileRefusesCorruptRoot(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 1}) // format_version = 1
	buf.WriteByte(0xEE)           // invalid tag byte

	u := NewStorageUpdater()
	_, err := LoadFile(&buf, u, Limits{})
	if !errors.Is(err, ErrCorruptStore) {
		t.Fatalf("expected ErrCorruptStore, got %v", err)
	}
}
