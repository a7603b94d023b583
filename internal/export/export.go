// Package export renders declaration lines as flat files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"delivops/internal/service"

	"github.com/xuri/excelize/v2"
)

const (
	SheetName       = "Declarations"
	CSVContentType  = "text/csv; charset=utf-8"
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Header is shared by every export format.
var Header = []string{
	"Date",
	"Chauffeur",
	"Client donneur d'ordre",
	"Catégorie de groupe tarifaire",
	"Nombre de colis récupérés",
	"Nombre de colis livrés",
	"Écart",
	"Montant estimé (€)",
	"Marge (€)",
}

// FormatRow flattens one declaration line in Header order.
func FormatRow(d service.DeclarationResponse) []string {
	return []string{
		d.Date,
		d.DriverName,
		d.ClientName,
		d.TariffGroupDisplayName,
		strconv.Itoa(d.PickupQuantity),
		strconv.Itoa(d.DeliveryQuantity),
		strconv.Itoa(d.DifferenceQuantity),
		d.EstimatedAmountEur,
		d.MarginAmountEur,
	}
}

// WriteCSV writes a semicolon separated file.
func WriteCSV(w io.Writer, rows []service.DeclarationResponse) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(FormatRow(r)); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a workbook with a single Declarations sheet.
// Quantities are stored as numbers; amounts keep their two-decimal text form.
func WriteXLSX(w io.Writer, rows []service.DeclarationResponse) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write xlsx header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{
			r.Date,
			r.DriverName,
			r.ClientName,
			r.TariffGroupDisplayName,
			r.PickupQuantity,
			r.DeliveryQuantity,
			r.DifferenceQuantity,
			r.EstimatedAmountEur,
			r.MarginAmountEur,
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write xlsx row: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}
