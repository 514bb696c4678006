package extract

import (
	"context"

	"statement-splitter/internal/models"
)

// StaticExtractor returns a fixed result, standing in for the model in
// tests and offline runs.
type StaticExtractor struct {
	Items []models.StatementLineItem
	Raw   string
	Err   error
}

// Extract returns the configured result.
func (se *StaticExtractor) Extract(_ context.Context, _, _ string) (*Result, error) {
	if se.Err != nil {
		return nil, se.Err
	}
	return &Result{Items: se.Items, Raw: se.Raw}, nil
}
