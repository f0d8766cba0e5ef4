package storage

import (
	"encoding/json"

	"github.com/golang/snappy"
)

// Row payloads are JSON maps compressed with snappy. The conventions data
// is highly repetitive prose (briefs, notes), which snappy handles well.

func encodeRow(row Row) ([]byte, error) {
	raw, err := json.Marshal(row)
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, raw), nil
}

func decodeRow(payload []byte) (Row, error) {
	raw, err := snappy.Decode(nil, payload)
	if err != nil {
		return nil, err
	}
	var row Row
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, err
	}
	return row, nil
}
