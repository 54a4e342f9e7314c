package storage

import (
	"encoding/json"
	"fmt"

	"github.com/cuemby/akdstore/pkg/record"
)

// wireRecord is the on-disk envelope used by BoltStore: a kind tag plus
// the kind-specific payload, so a single bucket value can be decoded back
// into the correct concrete Record type.
type wireRecord struct {
	Kind    record.Kind     `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

func encodeRecord(rec record.Record) ([]byte, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal record payload: %w", err)
	}
	return json.Marshal(wireRecord{Kind: rec.Kind(), Payload: payload})
}

func decodeRecord(data []byte) (record.Record, error) {
	var wire wireRecord
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("unmarshal record envelope: %w", err)
	}
	switch wire.Kind {
	case record.KindDirectoryMetadata:
		var rec record.DirectoryMetadata
		if err := json.Unmarshal(wire.Payload, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal directory metadata: %w", err)
		}
		return &rec, nil
	case record.KindTreeNode:
		var rec record.TreeNode
		if err := json.Unmarshal(wire.Payload, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal tree node: %w", err)
		}
		return &rec, nil
	case record.KindValueState:
		var rec record.ValueState
		if err := json.Unmarshal(wire.Payload, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal value state: %w", err)
		}
		return &rec, nil
	default:
		return nil, fmt.Errorf("unknown record kind %v", wire.Kind)
	}
}

func bucketForKind(kind record.Kind) []byte {
	switch kind {
	case record.KindDirectoryMetadata:
		return bucketDirectoryMetadata
	case record.KindTreeNode:
		return bucketTreeNodes
	case record.KindValueState:
		return bucketValueStates
	default:
		return nil
	}
}
