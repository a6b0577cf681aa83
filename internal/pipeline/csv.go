package pipeline

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	"agile-live/internal/format"
)

// WriteSeriesCSV writes the analysed day, one row per slot.
func WriteSeriesCSV(w io.Writer, res *Result) error {
	cw := csv.NewWriter(w)

	header := []string{
		"index",
		"valid_from",
		"valid_to",
		"value_inc_vat",
		"value_exc_vat",
		"tier",
		"in_peak",
		"is_min",
		"is_max",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	distinct := !res.Peak.Degenerate()
	for i, r := range res.Day {
		row := []string{
			strconv.Itoa(i),
			fmtTime(r.ValidFrom),
			fmtTime(r.ValidTo),
			fmtFloat(r.ValueIncVAT),
			fmtFloat(r.ValueExcVAT),
			format.PriceTier(r.ValueIncVAT).String(),
			strconv.FormatBool(distinct && res.Peak.Contains(i)),
			strconv.FormatBool(i == res.Stats.MinIndex),
			strconv.FormatBool(i == res.Stats.MaxIndex),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func WriteSeriesCSVFile(path string, res *Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteSeriesCSV(f, res)
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 4, 64)
}
