package model

import (
	"errors"
	"fmt"
	"strings"
)

const regions = "ABCDEFGHJKLMNP"

// Tariff identifies a single-rate electricity tariff by product and region.
// Region is the single-letter grid supply point group (A..P, skipping I and O).
type Tariff struct {
	ProductCode string
	Region      string
}

// Code builds the tariff code used by the pricing API, e.g. "E-1R-AGILE-24-10-01-A".
func (t Tariff) Code() string {
	return fmt.Sprintf("E-1R-%s-%s", t.ProductCode, strings.ToUpper(t.Region))
}

func (t Tariff) Validate() error {
	if strings.TrimSpace(t.ProductCode) == "" {
		return errors.New("product code is required")
	}
	r := strings.ToUpper(strings.TrimSpace(t.Region))
	if len(r) != 1 || !strings.Contains(regions, r) {
		return fmt.Errorf("invalid region %q, expected a single letter A-P", t.Region)
	}
	return nil
}
