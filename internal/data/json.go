package data

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"agile-live/internal/model"
)

func LoadUnitRatesJSON(path string) (*model.UnitRatesResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeUnitRates(f)
}

// DecodeUnitRates accepts either a full API response or a bare array of records.
func DecodeUnitRates(r io.Reader) (*model.UnitRatesResponse, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var resp model.UnitRatesResponse
	if err := json.Unmarshal(raw, &resp); err == nil {
		if resp.Count == 0 {
			resp.Count = len(resp.Results)
		}
		return &resp, nil
	}
	var records []model.PriceRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("failed to parse unit rates: %w", err)
	}
	return &model.UnitRatesResponse{Count: len(records), Results: records}, nil
}

// SaveUnitRatesJSON writes a response in the API's own shape.
func SaveUnitRatesJSON(resp *model.UnitRatesResponse, path string) error {
	raw, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal unit rates: %w", err)
	}
	return os.WriteFile(path, raw, 0644)
}
