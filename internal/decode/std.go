package decode

import (
	"bytes"
	"encoding/json"

	"json-decode-bench/internal/domain"
)

// Std decodes with encoding/json. Unknown fields are ignored.
//
// Elements are read as raw objects and required keys are looked up
// exactly; struct-tag matching would accept "NAME" for "name".
type Std struct{}

// Decode parses text as a JSON array of records.
func (Std) Decode(text string) ([]domain.WeatherRecord, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(text), &elements); err != nil {
		return nil, documentError(err.Error(), err)
	}
	if elements == nil {
		return nil, documentError("expected a JSON array, got null", nil)
	}

	records := make([]domain.WeatherRecord, 0, len(elements))
	for i, element := range elements {
		record, err := recordFromRaw(i, element)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func recordFromRaw(index int, element json.RawMessage) (domain.WeatherRecord, error) {
	if isNull(element) {
		return domain.WeatherRecord{}, nullElement(index)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(element, &fields); err != nil {
		return domain.WeatherRecord{}, notAnObject(index, rawValue(element))
	}

	var record domain.WeatherRecord
	targets := []struct {
		name string
		dst  *string
	}{
		{"name", &record.FirstName},
		{"language", &record.Language},
		{"id", &record.ID},
		{"bio", &record.Bio},
	}
	for _, target := range targets {
		raw, present := fields[target.name]
		if !present || isNull(raw) {
			return domain.WeatherRecord{}, missingField(index, target.name)
		}
		if err := json.Unmarshal(raw, target.dst); err != nil {
			return domain.WeatherRecord{}, wrongType(index, target.name, "a string", rawValue(raw))
		}
	}

	raw, present := fields["version"]
	if !present || isNull(raw) {
		return domain.WeatherRecord{}, missingField(index, "version")
	}
	if err := json.Unmarshal(raw, &record.Version); err != nil {
		return domain.WeatherRecord{}, wrongType(index, "version", "a number", rawValue(raw))
	}
	return record, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// rawValue decodes raw generically so type errors name the same Go types
// the stream codec reports.
func rawValue(raw json.RawMessage) interface{} {
	var v interface{}
	_ = json.Unmarshal(raw, &v)
	return v
}
