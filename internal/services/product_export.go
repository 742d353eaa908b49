package services

import (
	"fmt"
	"strings"

	"glyke/internal/repository"

	"github.com/xuri/excelize/v2"
)

var productExportHeaders = []string{
	"ID", "Name", "Category", "Stock", "Cost price", "Selling price",
	"Discount %", "End user price", "Profit", "Tags", "Active",
}

// ExportProducts renders every product, active or not, into a workbook.
func (s *productService) ExportProducts() (*excelize.File, error) {
	products, err := s.repos.Product.List(repository.ProductFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	categories, err := s.repos.Category.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	categoryNames := make(map[uint]string, len(categories))
	for _, c := range categories {
		categoryNames[c.ID] = c.Name
	}

	f := excelize.NewFile()
	sheet := "Products"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	for i, h := range productExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	for i, p := range products {
		row := i + 2
		category := ""
		if p.CategoryID != nil {
			category = categoryNames[*p.CategoryID]
		}
		active := "no"
		if p.IsActive {
			active = "yes"
		}
		values := []interface{}{
			p.ID, p.Name, category, p.Stock,
			p.CostPrice.InexactFloat64(), p.SellingPrice.InexactFloat64(), p.DiscountPercent,
			p.EndUserPrice.InexactFloat64(), p.Profit.InexactFloat64(),
			strings.Join(p.Tags, ", "), active,
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", row, err)
		}
	}

	colWidths := []float64{6, 30, 20, 8, 12, 12, 10, 14, 12, 30, 8}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	s.log.Info().Int("products", len(products)).Msg("products exported")
	return f, nil
}
