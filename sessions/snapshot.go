package sessions

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const snapshotVersion = 1

type snapshot struct {
	Version  int       `json:"version"`
	Sessions []*Record `json:"sessions"`
}

func encodeSnapshot(records []*Record) ([]byte, error) {
	if records == nil {
		records = []*Record{}
	}
	return json.MarshalIndent(snapshot{Version: snapshotVersion, Sessions: records}, "", "  ")
}

// decodeSnapshot accepts the versioned envelope and the bare array written by
// earlier releases.
func decodeSnapshot(data []byte) ([]*Record, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] == '[' {
		var records []*Record
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, err
		}
		return records, nil
	}

	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", s.Version)
	}
	return s.Sessions, nil
}
