package decode

import (
	"strings"
	"unicode/utf8"

	"github.com/bcicen/jstream"
	"github.com/romshark/jscan/v2"

	"json-decode-bench/internal/domain"
)

// Stream validates the document with jscan and then walks the top-level
// array element by element with jstream instead of materializing it first.
type Stream struct{}

// Decode parses text as a JSON array of records.
func (Stream) Decode(text string) ([]domain.WeatherRecord, error) {
	if !jscan.Valid(text) {
		return nil, documentError("invalid JSON", nil)
	}
	trimmed := strings.TrimLeft(text, " \t\r\n")
	if !strings.HasPrefix(trimmed, "[") {
		return nil, documentError("expected a JSON array at top level", nil)
	}

	dec := jstream.NewDecoder(strings.NewReader(text), 1)
	var (
		records  []domain.WeatherRecord
		firstErr error
		index    int
	)
	// The channel is drained even after a failure so the decoder goroutine
	// can finish.
	for mv := range dec.Stream() {
		if firstErr == nil {
			record, err := recordFromValue(index, mv.Value)
			if err != nil {
				firstErr = err
			} else {
				records = append(records, record)
			}
		}
		index++
	}
	if firstErr != nil {
		return nil, firstErr
	}
	if err := dec.Err(); err != nil {
		return nil, documentError(err.Error(), err)
	}
	if records == nil {
		records = []domain.WeatherRecord{}
	}
	return records, nil
}

func recordFromValue(index int, value interface{}) (domain.WeatherRecord, error) {
	if value == nil {
		return domain.WeatherRecord{}, nullElement(index)
	}
	fields, ok := value.(map[string]interface{})
	if !ok {
		return domain.WeatherRecord{}, notAnObject(index, value)
	}

	var record domain.WeatherRecord
	var err error
	if record.FirstName, err = stringField(index, fields, "name"); err != nil {
		return domain.WeatherRecord{}, err
	}
	if record.Language, err = stringField(index, fields, "language"); err != nil {
		return domain.WeatherRecord{}, err
	}
	if record.ID, err = stringField(index, fields, "id"); err != nil {
		return domain.WeatherRecord{}, err
	}
	if record.Bio, err = stringField(index, fields, "bio"); err != nil {
		return domain.WeatherRecord{}, err
	}

	raw, present := fields["version"]
	if !present || raw == nil {
		return domain.WeatherRecord{}, missingField(index, "version")
	}
	version, ok := raw.(float64)
	if !ok {
		return domain.WeatherRecord{}, wrongType(index, "version", "a number", raw)
	}
	record.Version = version
	return record, nil
}

func stringField(index int, fields map[string]interface{}, name string) (string, error) {
	raw, present := fields[name]
	if !present || raw == nil {
		return "", missingField(index, name)
	}
	s, ok := raw.(string)
	if !ok {
		return "", wrongType(index, name, "a string", raw)
	}
	return replaceInvalidUTF8(s), nil
}

// replaceInvalidUTF8 swaps every byte that is not part of a valid UTF-8
// sequence for U+FFFD, matching encoding/json.
func replaceInvalidUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			b.WriteRune(utf8.RuneError)
		} else {
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	return b.String()
}
