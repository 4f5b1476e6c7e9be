// Copyright (2012) Sandia Corporation.
// Under the terms of Contract DE-AC04-94AL85000 with Sandia Corporation,
// the U.S. Government retains certain rights in this software.

// Package store holds the mutex-guarded, atomically-persisted peer state
// on both sides of a pairing: the client's paired servers and the
// server's paired clients. Every record is (de)serialized through
// pkg/bstore using name-based (object-form) derivation, so additive
// schema evolution is tolerated without a migration step; position-stable
// tuple-form was not needed by anything in this data model.
package store

import (
	"fmt"
	"sort"

	"github.com/gameraccoon/easy-photo-backup-sub000/pkg/bstore"
)

// FileChangeDetectionData remembers what the sender last confirmed the
// server received for one file.
type FileChangeDetectionData struct {
	LastModifiedTime int64
	ContentHash      []byte
}

func (f FileChangeDetectionData) ToValue() bstore.Value {
	return bstore.ObjectValue{Fields: []bstore.Field{
		{Name: "last_modified_time", Value: bstore.U64Value(uint64(f.LastModifiedTime))},
		{Name: "content_hash", Value: bstore.ByteArrayValue(f.ContentHash)},
	}}
}

func fileChangeDetectionDataFromValue(v bstore.Value) (FileChangeDetectionData, error) {
	obj, err := bstore.AsObject(v, "file_change_detection_data")
	if err != nil {
		return FileChangeDetectionData{}, err
	}
	mtime, err := bstore.RequireU64Field(obj, "last_modified_time")
	if err != nil {
		return FileChangeDetectionData{}, err
	}
	hash, err := bstore.RequireByteArrayField(obj, "content_hash")
	if err != nil {
		return FileChangeDetectionData{}, err
	}
	return FileChangeDetectionData{LastModifiedTime: int64(mtime), ContentHash: hash}, nil
}

// DirectoryToSync is the one sync root a PairedServer tracks. Exactly one
// directory per server is an invariant to be enforced, not a structural
// constraint of the type itself, so the field stays a slice and callers
// validate the single-entry rule explicitly (see ClientStore).
type DirectoryToSync struct {
	Path                   string
	FolderLastModifiedTime *int64
	// FilesChangeDetectionData is keyed by the file's path relative to
	// Path (forward-slash separated), not the absolute path the original
	// implementation keys by. Detection and update both key off the same
	// relative form here, so the two stay consistent even though the key
	// shape differs from the source data model.
	FilesChangeDetectionData map[string]FileChangeDetectionData
}

func (d DirectoryToSync) ToValue() bstore.Value {
	var mtimeOption bstore.Value = bstore.OptionValue{}
	if d.FolderLastModifiedTime != nil {
		mtimeOption = bstore.OptionValue{Inner: bstore.U64Value(uint64(*d.FolderLastModifiedTime))}
	}

	paths := make([]string, 0, len(d.FilesChangeDetectionData))
	for path := range d.FilesChangeDetectionData {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	entries := make([]bstore.Value, 0, len(paths))
	for _, path := range paths {
		data := d.FilesChangeDetectionData[path]
		entries = append(entries, bstore.TupleValue{bstore.StringValue(path), data.ToValue()})
	}

	return bstore.ObjectValue{Fields: []bstore.Field{
		{Name: "path", Value: bstore.StringValue(d.Path)},
		{Name: "folder_last_modified_time", Value: mtimeOption},
		{Name: "files_change_detection_data", Value: bstore.ArrayValue{ElemTag: bstore.TagTuple, Elems: entries}},
	}}
}

func directoryToSyncFromValue(v bstore.Value) (DirectoryToSync, error) {
	obj, err := bstore.AsObject(v, "directory_to_sync")
	if err != nil {
		return DirectoryToSync{}, err
	}

	path, err := bstore.RequireStringField(obj, "path")
	if err != nil {
		return DirectoryToSync{}, err
	}

	mtimeInner, present, err := bstore.RequireOptionField(obj, "folder_last_modified_time")
	if err != nil {
		return DirectoryToSync{}, err
	}
	var mtime *int64
	if present {
		u, err := bstore.AsU64(mtimeInner, "folder_last_modified_time")
		if err != nil {
			return DirectoryToSync{}, err
		}
		signed := int64(u)
		mtime = &signed
	}

	entriesArray, err := bstore.RequireArrayField(obj, "files_change_detection_data")
	if err != nil {
		return DirectoryToSync{}, err
	}
	files := make(map[string]FileChangeDetectionData, len(entriesArray.Elems))
	for _, elem := range entriesArray.Elems {
		tuple, err := bstore.AsTuple(elem, "files_change_detection_data[]")
		if err != nil {
			return DirectoryToSync{}, err
		}
		if len(tuple) != 2 {
			return DirectoryToSync{}, fmt.Errorf("store: malformed files_change_detection_data entry: expected 2 elements, got %d", len(tuple))
		}
		path, err := bstore.AsString(tuple[0], "files_change_detection_data[].path")
		if err != nil {
			return DirectoryToSync{}, err
		}
		data, err := fileChangeDetectionDataFromValue(tuple[1])
		if err != nil {
			return DirectoryToSync{}, err
		}
		files[path] = data
	}

	return DirectoryToSync{Path: path, FolderLastModifiedTime: mtime, FilesChangeDetectionData: files}, nil
}

// PairedServer is one server the client has completed pairing with.
type PairedServer struct {
	ServerID          [16]byte
	ServerName        string
	ServerPublicKey   []byte
	ClientPublicKey   []byte
	ClientPrivateKey  []byte
	DirectoriesToSync []DirectoryToSync
}

func (p PairedServer) ToValue() bstore.Value {
	dirs := make([]bstore.Value, len(p.DirectoriesToSync))
	for i, d := range p.DirectoriesToSync {
		dirs[i] = d.ToValue()
	}

	return bstore.ObjectValue{Fields: []bstore.Field{
		{Name: "server_id", Value: bstore.ByteArrayValue(p.ServerID[:])},
		{Name: "server_name", Value: bstore.StringValue(p.ServerName)},
		{Name: "server_public_key", Value: bstore.ByteArrayValue(p.ServerPublicKey)},
		{Name: "client_public_key", Value: bstore.ByteArrayValue(p.ClientPublicKey)},
		{Name: "client_private_key", Value: bstore.ByteArrayValue(p.ClientPrivateKey)},
		{Name: "directories_to_sync", Value: bstore.ArrayValue{ElemTag: bstore.TagObject, Elems: dirs}},
	}}
}

func pairedServerFromValue(v bstore.Value) (PairedServer, error) {
	obj, err := bstore.AsObject(v, "paired_server")
	if err != nil {
		return PairedServer{}, err
	}

	serverID, err := bstore.RequireByteArrayField(obj, "server_id")
	if err != nil {
		return PairedServer{}, err
	}
	if len(serverID) != 16 {
		return PairedServer{}, fmt.Errorf("store: server_id is %d bytes, want 16", len(serverID))
	}

	name, err := bstore.RequireStringField(obj, "server_name")
	if err != nil {
		return PairedServer{}, err
	}
	serverPub, err := bstore.RequireByteArrayField(obj, "server_public_key")
	if err != nil {
		return PairedServer{}, err
	}
	clientPub, err := bstore.RequireByteArrayField(obj, "client_public_key")
	if err != nil {
		return PairedServer{}, err
	}
	clientPriv, err := bstore.RequireByteArrayField(obj, "client_private_key")
	if err != nil {
		return PairedServer{}, err
	}
	dirsArray, err := bstore.RequireArrayField(obj, "directories_to_sync")
	if err != nil {
		return PairedServer{}, err
	}

	dirs := make([]DirectoryToSync, len(dirsArray.Elems))
	for i, elem := range dirsArray.Elems {
		d, err := directoryToSyncFromValue(elem)
		if err != nil {
			return PairedServer{}, err
		}
		dirs[i] = d
	}

	ps := PairedServer{
		ServerName:        name,
		ServerPublicKey:   serverPub,
		ClientPublicKey:   clientPub,
		ClientPrivateKey:  clientPriv,
		DirectoriesToSync: dirs,
	}
	copy(ps.ServerID[:], serverID)
	return ps, nil
}

// PairedClient is one client a server has completed pairing with.
type PairedClient struct {
	Name             string
	ClientPublicKey  []byte
	ServerPublicKey  []byte
	ServerPrivateKey []byte
}

func (c PairedClient) ToValue() bstore.Value {
	return bstore.ObjectValue{Fields: []bstore.Field{
		{Name: "name", Value: bstore.StringValue(c.Name)},
		{Name: "client_public_key", Value: bstore.ByteArrayValue(c.ClientPublicKey)},
		{Name: "server_public_key", Value: bstore.ByteArrayValue(c.ServerPublicKey)},
		{Name: "server_private_key", Value: bstore.ByteArrayValue(c.ServerPrivateKey)},
	}}
}

func pairedClientFromValue(v bstore.Value) (PairedClient, error) {
	obj, err := bstore.AsObject(v, "paired_client")
	if err != nil {
		return PairedClient{}, err
	}

	name, err := bstore.RequireStringField(obj, "name")
	if err != nil {
		return PairedClient{}, err
	}
	clientPub, err := bstore.RequireByteArrayField(obj, "client_public_key")
	if err != nil {
		return PairedClient{}, err
	}
	serverPub, err := bstore.RequireByteArrayField(obj, "server_public_key")
	if err != nil {
		return PairedClient{}, err
	}
	serverPriv, err := bstore.RequireByteArrayField(obj, "server_private_key")
	if err != nil {
		return PairedClient{}, err
	}
	return PairedClient{Name: name, ClientPublicKey: clientPub, ServerPublicKey: serverPub, ServerPrivateKey: serverPriv}, nil
}
