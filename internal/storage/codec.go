package storage

import (
	"encoding/json"
	"errors"

	"mnemos/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Stamp sets the current schema and codec versions on a record.
func Stamp(record model.PlanRecord) model.PlanRecord {
	record.SchemaVersion = CurrentSchemaVersion
	record.CodecVersion = CurrentCodecVersion
	return record
}

func EncodePlan(record model.PlanRecord) ([]byte, error) {
	if err := checkVersion(record.VersionedRecord); err != nil {
		return nil, err
	}
	return json.Marshal(record)
}

func DecodePlan(data []byte) (model.PlanRecord, error) {
	var record model.PlanRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.PlanRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.PlanRecord{}, err
	}
	return record, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
