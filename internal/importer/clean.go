package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/odyssey-erp/stockroom/internal/inventory"
)

// Column headers expected in the upload.
const (
	ColSupplier     = "SUPPLIER"
	ColLocation     = "LOCATION"
	ColPartNumber   = "SUPPLIER PART#"
	ColInternalPart = "8-DIGIT"
	ColDescription  = "DESCRIPTION"
	ColQuantity     = "QTY"
	ColNetPrice     = " NET PRICE "
	ColOwner        = "Mechanical/Electrical"
)

var requiredColumns = []string{
	ColSupplier, ColLocation, ColPartNumber, ColInternalPart,
	ColDescription, ColQuantity, ColNetPrice, ColOwner,
}

// Row is one cleaned line of the upload.
type Row struct {
	Supplier           string
	Location           string
	SupplierPartNumber string
	InternalPartNumber string
	Description        string
	Quantity           int
	UnitPrice          decimal.Decimal
	Owner              inventory.Owner
}

func (r Row) component(supplierID, locationID int64) inventory.Component {
	return inventory.Component{
		SupplierID:         supplierID,
		Owner:              r.Owner,
		SupplierPartNumber: r.SupplierPartNumber,
		InternalPartNumber: r.InternalPartNumber,
		Description:        r.Description,
		CurrentQuantity:    r.Quantity,
		LocationID:         locationID,
		UnitPrice:          r.UnitPrice,
	}
}

// ReadRows parses a CSV upload and cleans every data row. Errors are
// *ImportError.
func ReadRows(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &ImportError{Op: "read header", Err: ErrEmptyFile}
	}
	if err != nil {
		return nil, &ImportError{Op: "read header", Err: err}
	}
	cols, err := indexColumns(header)
	if err != nil {
		return nil, &ImportError{Op: "read header", Err: err}
	}
	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ImportError{Op: "parse", Err: err}
		}
		rows = append(rows, cols.clean(record))
	}
	return rows, nil
}

// NormalizeHeader folds a header cell for comparison: BOM stripped, NFKC,
// trimmed, upper-cased.
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = norm.NFKC.String(h)
	return strings.ToUpper(strings.TrimSpace(h))
}

type columnIndex map[string]int

func indexColumns(header []string) (columnIndex, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		key := NormalizeHeader(h)
		if _, seen := positions[key]; !seen {
			positions[key] = i
		}
	}
	cols := make(columnIndex, len(requiredColumns))
	var missing []string
	for _, name := range requiredColumns {
		pos, ok := positions[NormalizeHeader(name)]
		if !ok {
			missing = append(missing, strings.TrimSpace(name))
			continue
		}
		cols[name] = pos
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return cols, nil
}

func (c columnIndex) cell(record []string, name string) string {
	pos := c[name]
	if pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}

func (c columnIndex) clean(record []string) Row {
	return Row{
		Supplier:           c.cell(record, ColSupplier),
		Location:           c.cell(record, ColLocation),
		SupplierPartNumber: c.cell(record, ColPartNumber),
		InternalPartNumber: c.cell(record, ColInternalPart),
		Description:        c.cell(record, ColDescription),
		Quantity:           ParseQuantity(c.cell(record, ColQuantity)),
		UnitPrice:          ParsePrice(c.cell(record, ColNetPrice)),
		Owner:              NormalizeOwner(c.cell(record, ColOwner)),
	}
}

// ParseQuantity reads a numeric cell and truncates it toward zero. Anything
// unparsable, non-finite or outside the INTEGER column range yields 0.
func ParseQuantity(s string) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	f = math.Trunc(f)
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0
	}
	return int(f)
}

var priceReplacer = strings.NewReplacer("$", "", ",", "")

// ParsePrice strips dollar signs and thousands separators; invalid is 0.
func ParsePrice(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(priceReplacer.Replace(s)))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// NormalizeOwner maps M/Mechanical and E/Electrical; anything else is
// Mechanical.
func NormalizeOwner(s string) inventory.Owner {
	switch s {
	case "Electrical", "E":
		return inventory.OwnerElectrical
	default:
		return inventory.OwnerMechanical
	}
}
