package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/agromarket/internal/domain/models"
)

// Column layout of the products range: id | name | category | suitable months.
const (
	colID = iota
	colName
	colCategory
	colMonths
)

// ProductCatalog reads the product catalog from a sheet range. Rows keep sheet order.
type ProductCatalog struct {
	reader     RangeReader
	sheetRange string
	logger     *zap.Logger
}

// NewProductCatalog builds a catalog over the given range, e.g. "Products!A2:D".
func NewProductCatalog(reader RangeReader, sheetRange string, logger *zap.Logger) *ProductCatalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductCatalog{reader: reader, sheetRange: sheetRange, logger: logger}
}

// ListProducts returns every well-formed product row. Malformed rows are skipped
// and logged.
func (c *ProductCatalog) ListProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := c.reader.ReadRange(ctx, c.sheetRange)
	if err != nil {
		return nil, fmt.Errorf("read product catalog: %w", err)
	}

	products := make([]models.Product, 0, len(rows))
	for i, row := range rows {
		p, err := parseProductRow(row)
		if err != nil {
			c.logger.Warn("skipping catalog row", zap.Int("row", i+1), zap.Error(err))
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

func parseProductRow(row []interface{}) (models.Product, error) {
	id := cell(row, colID)
	if id == "" {
		return models.Product{}, fmt.Errorf("missing product id")
	}

	category := models.ProductCategory(strings.ToLower(cell(row, colCategory)))
	if !category.Valid() {
		return models.Product{}, fmt.Errorf("product %s: unknown category %q", id, cell(row, colCategory))
	}

	months, err := parseMonths(cell(row, colMonths))
	if err != nil {
		return models.Product{}, fmt.Errorf("product %s: %w", id, err)
	}

	return models.Product{
		ID:             id,
		Name:           cell(row, colName),
		Category:       category,
		SuitableMonths: months,
	}, nil
}

// parseMonths reads a list such as "11, 12, 1". Blank means no season data.
func parseMonths(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var months []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		m, err := strconv.Atoi(part)
		if err != nil || m < 1 || m > 12 {
			return nil, fmt.Errorf("invalid month %q", part)
		}
		months = append(months, m)
	}
	return months, nil
}

func cell(row []interface{}, idx int) string {
	if idx >= len(row) || row[idx] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[idx]))
}
