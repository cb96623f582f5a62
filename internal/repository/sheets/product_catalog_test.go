package sheets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/agromarket/internal/domain/models"
)

type fakeReader struct {
	rows      [][]interface{}
	err       error
	lastRange string
}

func (f *fakeReader) ReadRange(_ context.Context, sheetRange string) ([][]interface{}, error) {
	f.lastRange = sheetRange
	return f.rows, f.err
}

func TestListProductsParsesRows(t *testing.T) {
	reader := &fakeReader{rows: [][]interface{}{
		{"p1", "Rice", "crop", "11, 12,1"},
		{"p2", "Tilapia", "Aquatic"},
		{"", "Nameless", "crop", ""},
		{"p3", "Goat", "mineral", ""},
		{"p4", "Maize", "crop", "13"},
		{"p5", "Cattle", "livestock", ""},
	}}

	catalog := NewProductCatalog(reader, "Products!A2:D", nil)
	products, err := catalog.ListProducts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Products!A2:D", reader.lastRange)
	require.Len(t, products, 3)

	assert.Equal(t, models.Product{ID: "p1", Name: "Rice", Category: models.CategoryCrop, SuitableMonths: []int{11, 12, 1}}, products[0])
	assert.Equal(t, models.CategoryAquatic, products[1].Category)
	assert.False(t, products[1].HasSeasonData())
	assert.Equal(t, "p5", products[2].ID)
}

func TestListProductsPropagatesReadError(t *testing.T) {
	catalog := NewProductCatalog(&fakeReader{err: errors.New("quota exceeded")}, "Products!A2:D", nil)
	_, err := catalog.ListProducts(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}
