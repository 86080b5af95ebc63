package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/marketplace/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Canonical product columns
const (
	ColumnName        = "nome"
	ColumnPrice       = "preco"
	ColumnDescription = "descricao"
	ColumnImageURL    = "url_imagem"
)

// ProductColumns lists the required product columns
var ProductColumns = []string{ColumnName, ColumnPrice, ColumnDescription, ColumnImageURL}

// productHeaderAliases accepts English and accented headers
var productHeaderAliases = map[string]string{
	"name":        ColumnName,
	"price":       ColumnPrice,
	"preço":       ColumnPrice,
	"description": ColumnDescription,
	"descrição":   ColumnDescription,
	"image_url":   ColumnImageURL,
	"imageurl":    ColumnImageURL,
}

const (
	maxProductNameLength = 200
	maxImageURLLength    = 1000
)

// ProductRow is a valid product line of an upload
type ProductRow struct {
	Line        int
	Name        string
	Price       decimal.Decimal
	Description string
	ImageURL    string
}

// ProductParseResult holds the valid rows and the rejected ones
type ProductParseResult struct {
	Rows        []ProductRow
	Errors      []RowError
	TotalErrors int
}

// ProductParserOption configures ParseProducts
type ProductParserOption func(*productParser)

// WithMaxRows limits the number of data rows
func WithMaxRows(n int) ProductParserOption {
	return func(p *productParser) {
		p.maxRows = n
	}
}

// WithMaxErrors limits the number of collected row errors
func WithMaxErrors(n int) ProductParserOption {
	return func(p *productParser) {
		p.maxErrors = n
	}
}

type productParser struct {
	maxRows   int
	maxErrors int
}

// ParseProducts reads a product upload. File level problems (encoding,
// missing header or columns) are returned as error; invalid lines are
// collected in the result with their line numbers.
func ParseProducts(r io.Reader, opts ...ProductParserOption) (*ProductParseResult, error) {
	cfg := &productParser{maxRows: 5000, maxErrors: 100}
	for _, opt := range opts {
		opt(cfg)
	}

	reader, err := Open(r, Aliases(productHeaderAliases))
	if err != nil {
		return nil, err
	}
	if missing := reader.Missing(ProductColumns...); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %s", ErrMissingHeader, strings.Join(missing, ", "))
	}

	errs := NewErrorCollection(cfg.maxErrors)
	result := &ProductParseResult{Rows: make([]ProductRow, 0)}

	rowCount := 0
	for {
		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				errs.Add(RowError{Row: reader.Line(), Code: ErrCodeMalformedRow, Message: parseErr.Err.Error()})
				continue
			}
			return nil, err
		}
		if row.Blank() {
			continue
		}
		rowCount++
		if cfg.maxRows > 0 && rowCount > cfg.maxRows {
			return nil, fmt.Errorf("%w: limit is %d", ErrTooManyRows, cfg.maxRows)
		}

		if product, ok := validateProductRow(row, errs); ok {
			result.Rows = append(result.Rows, product)
		}
	}

	result.Errors = errs.Errors()
	result.TotalErrors = errs.TotalCount()
	return result, nil
}

func validateProductRow(row Row, errs *ErrorCollection) (ProductRow, bool) {
	product := ProductRow{
		Line:        row.Line,
		Name:        row.Get(ColumnName),
		Description: row.Get(ColumnDescription),
		ImageURL:    row.Get(ColumnImageURL),
	}
	valid := true

	for _, column := range ProductColumns {
		if row.Get(column) == "" {
			errs.AddRequiredError(row.Line, column)
			valid = false
		}
	}
	if !valid {
		return product, false
	}

	if len(product.Name) > maxProductNameLength {
		errs.AddLengthError(row.Line, ColumnName, maxProductNameLength)
		valid = false
	}
	if len(product.ImageURL) > maxImageURLLength {
		errs.AddLengthError(row.Line, ColumnImageURL, maxImageURLLength)
		valid = false
	}

	raw := row.Get(ColumnPrice)
	price, err := ParsePrice(raw)
	if err == nil {
		price = price.Round(valueobject.CurrencyPlaces)
	}
	switch {
	case err != nil:
		errs.AddTypeError(row.Line, ColumnPrice, "decimal", raw)
		valid = false
	case !price.IsPositive():
		errs.AddRangeError(row.Line, ColumnPrice, "price must be at least 0.01", raw)
		valid = false
	case !valueobject.NewMoneyBRL(price).WithinLimit():
		errs.AddRangeError(row.Line, ColumnPrice, "price cannot exceed 9999999999.99", raw)
		valid = false
	default:
		product.Price = price
	}

	return product, valid
}

// ParsePrice parses "19.90", "19,90" and "1.234,56" style amounts
func ParsePrice(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	return decimal.NewFromString(s)
}
