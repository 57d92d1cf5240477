package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/diewo77/pureclean/validation"
)

// SupplyImportColumns is the header row expected by ImportSupplies.
var SupplyImportColumns = []string{"material_id", "supplier_id", "quantity", "unit_price", "date", "invoice_number"}

var importDateLayouts = []string{"2006-01-02", "02.01.2006", "01-02-06"}

// ImportSupplies records every row of the first sheet of an xlsx workbook as
// a supply. The import is all or nothing: a bad row rolls back every row and
// is reported as a validation error keyed "row_<n>".
func (s *InventoryService) ImportSupplies(ctx context.Context, r io.Reader) (int, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return 0, invalidField("file", "not_xlsx")
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	if err != nil {
		return 0, invalidField("file", "unreadable")
	}
	if len(rows) < 2 {
		return 0, invalidField("file", "no_rows")
	}

	inputs := make([]SupplyInput, 0, len(rows)-1)
	rowNums := make([]int, 0, len(rows)-1)
	for i, row := range rows[1:] {
		n := i + 2
		if blankRow(row) {
			continue
		}
		in, err := parseSupplyRow(row)
		if err != nil {
			return 0, invalid(validation.Violations{fmt.Sprintf("row_%d", n): err.Error()})
		}
		inputs = append(inputs, in)
		rowNums = append(rowNums, n)
	}
	if len(inputs) == 0 {
		return 0, invalidField("file", "no_rows")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, in := range inputs {
			if _, err := s.recordSupply(tx, in); err != nil {
				return rowError(rowNums[i], err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(inputs), nil
}

func rowError(n int, err error) error {
	var e *Error
	if !errors.As(err, &e) {
		return fmt.Errorf("row %d: %w", n, err)
	}
	key := fmt.Sprintf("row_%d", n)
	switch {
	case e.Kind == KindValidation:
		out := validation.Violations{}
		for f, msg := range e.Fields {
			out.Add(key+"."+f, msg)
		}
		return invalid(out)
	case e.Kind == KindNotFound:
		return invalid(validation.Violations{key: e.Message})
	}
	return err
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func parseSupplyRow(row []string) (SupplyInput, error) {
	var in SupplyInput
	mid, err := strconv.ParseUint(cell(row, 0), 10, 64)
	if err != nil {
		return in, errors.New("bad material_id")
	}
	sid, err := strconv.ParseUint(cell(row, 1), 10, 64)
	if err != nil {
		return in, errors.New("bad supplier_id")
	}
	qty, err := decimal.NewFromString(strings.ReplaceAll(cell(row, 2), ",", "."))
	if err != nil {
		return in, errors.New("bad quantity")
	}
	price, err := decimal.NewFromString(strings.ReplaceAll(cell(row, 3), ",", "."))
	if err != nil {
		return in, errors.New("bad unit_price")
	}
	in = SupplyInput{MaterialID: uint(mid), SupplierID: uint(sid), Quantity: qty, UnitPrice: price, InvoiceNumber: cell(row, 5)}
	if raw := cell(row, 4); raw != "" {
		d, ok := parseImportDate(raw)
		if !ok {
			return in, errors.New("bad date")
		}
		in.Date = &d
	}
	return in, nil
}

func parseImportDate(raw string) (time.Time, bool) {
	for _, layout := range importDateLayouts {
		if d, err := time.Parse(layout, raw); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}
