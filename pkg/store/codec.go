package store

import "encoding/json"

// EncodeRecord converts a struct into the JSON-shaped field map stored at a
// record path.
func EncodeRecord(v interface{}) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return r, nil
}

// DecodeRecord converts a stored field map back into a struct.
func DecodeRecord(r Record, v interface{}) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
