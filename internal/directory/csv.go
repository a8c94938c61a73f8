package directory

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/stockunlock/stockunlock/pkg/models"
	"github.com/stockunlock/stockunlock/pkg/utils"
)

// Column header aliases, lowercased. Column names and order in the source
// table are a configuration detail, not part of the directory's contract.
var columnAliases = map[string][]string{
	"symbol":     {"symbol", "ticker", "nse symbol"},
	"name":       {"company name", "name", "company"},
	"market_cap": {"market capitalization", "market cap", "mcap"},
	"price":      {"current price", "price", "cmp", "close"},
	"pe":         {"pe", "p/e", "price to earning"},
	"pb":         {"pb", "p/b", "price to book value"},
	"roe":        {"roe", "return on equity"},
	"roce":       {"roce", "return on capital employed"},
	"return_1m":  {"return 1m", "return over 1month", "1m return"},
	"return_6m":  {"return 6m", "return over 6months", "6m return"},
	"return_1y":  {"return 1y", "return over 1year", "1y return"},
}

// columnIndex maps each known field to its position in the header row.
// Missing columns simply stay unmapped; their values end up absent.
func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(columnAliases))
	for i, col := range header {
		col = strings.ToLower(strings.TrimSpace(col))
		for field, aliases := range columnAliases {
			if _, taken := idx[field]; taken {
				continue
			}
			for _, alias := range aliases {
				if col == alias {
					idx[field] = i
					break
				}
			}
		}
	}
	return idx
}

// parseRows reads the reference table into records. Rows without a resolvable
// symbol or name are dropped; numeric fields that fail to parse stay nil.
func parseRows(r io.Reader) ([]models.EquityRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // source rows may be ragged
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := columnIndex(header)

	field := func(row []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []models.EquityRecord
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		rec := models.EquityRecord{
			Symbol:      field(row, "symbol"),
			CompanyName: field(row, "name"),
		}
		if rec.Symbol == "" || rec.CompanyName == "" {
			continue
		}

		rec.MarketCap = utils.ParseNumber(field(row, "market_cap"))
		rec.CurrentPrice = utils.ParseNumber(field(row, "price"))
		rec.PE = utils.ParseNumber(field(row, "pe"))
		rec.PB = utils.ParseNumber(field(row, "pb"))
		rec.ROE = utils.ParseNumber(field(row, "roe"))
		rec.ROCE = utils.ParseNumber(field(row, "roce"))
		rec.Return1M = utils.ParseNumber(field(row, "return_1m"))
		rec.Return6M = utils.ParseNumber(field(row, "return_6m"))
		rec.Return1Y = utils.ParseNumber(field(row, "return_1y"))
		records = append(records, rec)
	}

	return records, nil
}
