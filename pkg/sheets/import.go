package sheets

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gridflow/gridflow/pkg/models"
	"github.com/gridflow/gridflow/pkg/rows"
)

// ErrEmptyCSV is returned when the import file has no header row.
var ErrEmptyCSV = errors.New("csv file is empty")

// Importer bulk-loads CSV files into a sheet. The first record is the header;
// header cells become column keys. Columns missing from the sheet's schema
// are appended to it as text columns.
type Importer struct {
	sheets *Service
	rows   *rows.Service
}

func NewImporter(sheetService *Service, rowService *rows.Service) *Importer {
	return &Importer{
		sheets: sheetService,
		rows:   rowService,
	}
}

// ImportResult summarizes one import.
type ImportResult struct {
	RowsCreated  int      `json:"rows_created"`
	ColumnsAdded []string `json:"columns_added"`
}

// ImportCSV reads the whole file and appends its records as rows, in file
// order, after the sheet's existing rows.
func (i *Importer) ImportCSV(ctx context.Context, sheetID string, reader io.Reader) (*ImportResult, error) {
	sheet, err := i.sheets.Get(ctx, sheetID)
	if err != nil {
		return nil, err
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true

	header, err := csvReader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyCSV
		}

		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	keys := make([]string, len(header))
	for idx, cell := range header {
		keys[idx] = columnKey(cell)
	}

	columnsAdded, err := i.extendSchema(ctx, sheet, header, keys)
	if err != nil {
		return nil, err
	}

	var inputs []rows.NewRowInput

	for {
		record, err := csvReader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return nil, fmt.Errorf("failed to read csv record: %w", err)
		}

		data := make(map[string]any, len(keys))

		for idx, key := range keys {
			if idx < len(record) {
				data[key] = record[idx]
			}
		}

		inputs = append(inputs, rows.NewRowInput{Data: data})
	}

	created := 0

	if len(inputs) > 0 {
		createdRows, err := i.rows.BulkInsert(ctx, sheetID, inputs)
		if err != nil {
			return nil, err
		}

		created = len(createdRows)
	}

	return &ImportResult{
		RowsCreated:  created,
		ColumnsAdded: columnsAdded,
	}, nil
}

func (i *Importer) extendSchema(ctx context.Context, sheet *models.Sheet, header, keys []string) ([]string, error) {
	known := make(map[string]struct{}, len(sheet.Columns))
	for _, column := range sheet.Columns {
		known[column.Key] = struct{}{}
	}

	columns := sheet.Columns
	added := []string{}

	for idx, key := range keys {
		if _, ok := known[key]; ok {
			continue
		}

		columns = append(columns, models.ColumnDef{
			Key:   key,
			Label: strings.TrimSpace(header[idx]),
			Type:  "text",
			Order: len(columns),
		})
		added = append(added, key)
		known[key] = struct{}{}
	}

	if len(added) == 0 {
		return added, nil
	}

	_, err := i.sheets.Update(ctx, sheet.ID, UpdateSheetInput{Columns: columns})
	if err != nil {
		return nil, err
	}

	return added, nil
}

func columnKey(label string) string {
	key := strings.ToLower(strings.TrimSpace(label))
	key = strings.ReplaceAll(key, " ", "_")

	return key
}
