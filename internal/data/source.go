package data

import (
	"context"

	"go.uber.org/zap"

	"agile-live/internal/model"
)

// Source supplies unit-rate records for a tariff.
type Source interface {
	FetchUnitRates(ctx context.Context, tariff model.Tariff) ([]model.PriceRecord, error)
}

// FileSource serves a saved unit-rates response, ignoring the tariff.
type FileSource struct {
	Path string
}

func (s FileSource) FetchUnitRates(_ context.Context, _ model.Tariff) ([]model.PriceRecord, error) {
	resp, err := LoadUnitRatesJSON(s.Path)
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// FetchOrEmpty never fails: any fetch error is logged and reported as an empty
// series, which the analysis turns into a no-data state.
func FetchOrEmpty(ctx context.Context, src Source, tariff model.Tariff) []model.PriceRecord {
	records, err := src.FetchUnitRates(ctx, tariff)
	if err != nil {
		zap.L().Error("[Source] Fetch failed, continuing without data",
			zap.String("tariff", tariff.Code()), zap.Error(err))
		return nil
	}
	return records
}
