package store

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteJSON writes snap as indented JSON.
func WriteJSON(w io.Writer, snap *Snapshot) error {
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// ReadJSON parses the format produced by WriteJSON. A bare array of records
// is accepted as well.
func ReadJSON(r io.Reader) (*Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err == nil {
		return &snap, nil
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return &Snapshot{Records: records}, nil
}
