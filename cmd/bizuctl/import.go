package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"bizu/backend/internal/domain"
	"bizu/backend/internal/money"
)

// Export column names, as the spreadsheet export writes them.
var productColumns = map[string]string{
	"nome":        "name",
	"preco_custo": "cost",
	"preco_venda": "sale",
	"estoque":     "stock",
	"categoria":   "category",
	"grupo":       "group",
	"local":       "storage",
}

var titleCase = cases.Title(language.BrazilianPortuguese)

// parseProductsCSV reads exported product rows. Numbers are coerced the
// same way the aggregators do: anything unreadable counts as zero. Rows
// without a name are skipped and counted.
func parseProductsCSV(r io.Reader) ([]domain.Product, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, errors.New("empty file")
		}
		return nil, 0, err
	}
	if len(header) == 1 && strings.Contains(header[0], ";") {
		return nil, 0, errors.New("semicolon separated files are not supported, export with commas")
	}

	index := map[string]int{}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if field, ok := productColumns[key]; ok {
			index[field] = i
		}
	}
	if _, ok := index["name"]; !ok {
		return nil, 0, errors.New("missing column nome")
	}

	get := func(record []string, field string) string {
		i, ok := index[field]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var products []domain.Product
	skipped := 0
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("line %d: %w", line, err)
		}

		name := get(record, "name")
		if name == "" {
			skipped++
			continue
		}
		stock, err := strconv.Atoi(get(record, "stock"))
		if err != nil || stock < 0 {
			stock = 0
		}

		p := domain.Product{
			Name:           name,
			CostPrice:      money.NonNegative(money.Parse(get(record, "cost"))),
			SalePrice:      money.NonNegative(money.Parse(get(record, "sale"))),
			Stock:          stock,
			Category:       domain.CategoryFood,
			ParentCategory: titleCase.String(get(record, "group")),
			Storage:        domain.StoragePantry,
		}
		switch strings.ToLower(get(record, "category")) {
		case domain.CategoryDrink, "bebida":
			p.Category = domain.CategoryDrink
		}
		switch strings.ToLower(get(record, "storage")) {
		case domain.StorageFridge, "geladeira":
			p.Storage = domain.StorageFridge
		}
		products = append(products, p)
	}
	return products, skipped, nil
}
