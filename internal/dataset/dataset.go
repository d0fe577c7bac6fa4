// Package dataset writes deterministic synthetic weather-record documents
// used as benchmark sources.
package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"

	"json-decode-bench/internal/domain"
)

var presets = []domain.DatasetOption{
	{
		ID:          "tiny",
		Name:        "Tiny",
		FileName:    "weather-tiny.json",
		Records:     100,
		SizeLabel:   "~15 KB",
		Description: "Smoke test; scheduling overhead dominates.",
	},
	{
		ID:          "small",
		Name:        "Small",
		FileName:    "weather-small.json",
		Records:     2_000,
		SizeLabel:   "~300 KB",
		Description: "Comparable to the bundled sample scaled up.",
	},
	{
		ID:          "medium",
		Name:        "Medium",
		FileName:    "weather-medium.json",
		Records:     20_000,
		SizeLabel:   "~3 MB",
		Description: "Decode time starts to outweigh pool setup.",
	},
	{
		ID:          "large",
		Name:        "Large",
		FileName:    "weather-large.json",
		Records:     200_000,
		SizeLabel:   "~30 MB",
		Description: "Stresses memory bandwidth with wide pools.",
	},
}

var (
	firstNames = []string{"Ana", "Bruno", "Carla", "Diego", "Elena", "Fabio", "Gala", "Hugo", "Irene", "Jon", "Kira", "Luis"}
	languages  = []string{"Kotlin", "Go", "Java", "Rust", "Python", "Swift", "C#", "TypeScript"}
	bios       = []string{
		"Maintains the forecast ingestion service.",
		"Writes parsers for station telemetry.",
		"Tunes worker pools for batch exports.",
		"Keeps the radar tiles pipeline fed.",
	}
)

// Presets returns a copy of the built-in dataset presets.
func Presets() []domain.DatasetOption {
	out := make([]domain.DatasetOption, len(presets))
	copy(out, presets)
	return out
}

// Lookup finds a preset by ID.
func Lookup(id string) (domain.DatasetOption, bool) {
	for _, p := range presets {
		if p.ID == id {
			return p, true
		}
	}
	return domain.DatasetOption{}, false
}

// generatedRecord carries the decoded fields plus fields the decoder must
// ignore.
type generatedRecord struct {
	domain.WeatherRecord
	Station string  `json:"station"`
	TempC   float64 `json:"tempC"`
}

// Write emits a JSON array of n records. The same seed always yields the
// same bytes.
func Write(w io.Writer, n int, seed int64) error {
	if n < 0 {
		return fmt.Errorf("record count must not be negative: %d", n)
	}
	rng := rand.New(rand.NewSource(seed))
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString("["); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if i > 0 {
			if err := bw.WriteByte(','); err != nil {
				return err
			}
		}
		rec := generatedRecord{
			WeatherRecord: domain.WeatherRecord{
				FirstName: firstNames[rng.Intn(len(firstNames))],
				Language:  languages[rng.Intn(len(languages))],
				ID:        fmt.Sprintf("%06d", i+1),
				Bio:       bios[rng.Intn(len(bios))],
				Version:   float64(rng.Intn(900)+100) / 100,
			},
			Station: fmt.Sprintf("ST-%03d", rng.Intn(500)),
			TempC:   float64(rng.Intn(600)-200) / 10,
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if _, err := bw.Write(data); err != nil {
			return err
		}
	}
	if _, err := bw.WriteString("]"); err != nil {
		return err
	}
	return bw.Flush()
}

// WriteFile generates n records into path, replacing any existing file.
func WriteFile(path string, n int, seed int64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".dataset-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if err := Write(tmp, n, seed); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

// MarkGenerated flags presets whose file already exists in dir.
func MarkGenerated(options []domain.DatasetOption, dir string) {
	for i := range options {
		candidate := filepath.Join(dir, options[i].FileName)
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		options[i].Generated = true
		options[i].LocalPath = candidate
	}
}
