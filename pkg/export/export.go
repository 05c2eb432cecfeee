// Package export renders transition audit records for external tools.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/parkpulse/parkpulse/core/model"
)

// WriteJSON writes the transition records to w in JSON format.
func WriteJSON(w io.Writer, records []model.Transition) error {
	enc := json.NewEncoder(w)
	return enc.Encode(records)
}

// WriteCSV writes the transition records to w as CSV with a header row.
func WriteCSV(w io.Writer, records []model.Transition) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "lot_id", "spot_id", "from", "to", "holder", "source", "version"}); err != nil {
		return err
	}
	for _, tr := range records {
		rec := []string{
			tr.Timestamp.Format(time.RFC3339),
			tr.LotID,
			tr.SpotID,
			string(tr.From),
			string(tr.To),
			tr.Holder,
			string(tr.Source),
			strconv.FormatInt(tr.Version, 10),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
