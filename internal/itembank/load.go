package itembank

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// bankFile mirrors the JSON bank format.
type bankFile struct {
	QMatrix          [][]int     `json:"q_matrix"`
	LatentClassProbs [][]float64 `json:"latent_class_probs"`
}

// LoadJSON reads a bank from a JSON file, validating it against the
// bank schema before decoding.
func LoadJSON(path string) (*Bank, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bank file: %w", err)
	}
	if err := validateBankJSON(raw); err != nil {
		return nil, err
	}
	var f bankFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode bank file: %w", err)
	}
	return New(f.QMatrix, f.LatentClassProbs)
}

// LoadQMatrixCSV reads a Q-matrix from CSV, one row per item.
func LoadQMatrixCSV(path string) ([][]int, error) {
	return readIntMatrix(path)
}

// LoadResponsesCSV reads a response matrix from CSV, one row per
// examinee, and validates it against the item count.
func LoadResponsesCSV(path string, j int) (Responses, error) {
	rows, err := readIntMatrix(path)
	if err != nil {
		return nil, err
	}
	return NewResponses(rows, j)
}

// LoadProbsCSV reads a latent-class probability matrix from CSV, one
// row per item.
func LoadProbsCSV(path string) ([][]float64, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, len(records))
	for i, rec := range records {
		row := make([]float64, len(rec))
		for c, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s row %d column %d: %w", path, i+1, c+1, err)
			}
			row[c] = v
		}
		out[i] = row
	}
	return out, nil
}

func readIntMatrix(path string) ([][]int, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	out := make([][]int, len(records))
	for i, rec := range records {
		row := make([]int, len(rec))
		for c, field := range rec {
			// Accept "1.0" style numerics from exported data frames.
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s row %d column %d: %w", path, i+1, c+1, err)
			}
			row[c] = int(v)
		}
		out[i] = row
	}
	return out, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: empty file", path)
	}
	return records, nil
}
