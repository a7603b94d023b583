package export

import (
	"bytes"
	"strings"
	"testing"

	"delivops/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleRows() []service.DeclarationResponse {
	return []service.DeclarationResponse{
		{
			Date: "2026-10-14", DriverName: "Alice", ClientName: "Boulangerie; Paris",
			TariffGroupDisplayName: "STD", PickupQuantity: 5, DeliveryQuantity: 4, DifferenceQuantity: 1,
			EstimatedAmountEur: "12.00", MarginAmountEur: "2.40",
		},
		{
			Date: "2026-10-13", DriverName: "Bob", ClientName: "Shop",
			TariffGroupDisplayName: "—", EstimatedAmountEur: "0.00", MarginAmountEur: "0.00",
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRows()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(Header, ";"), lines[0])
	assert.Equal(t, `2026-10-14;Alice;"Boulangerie; Paris";STD;5;4;1;12.00;2.40`, lines[1])
	assert.Equal(t, "2026-10-13;Bob;Shop;—;0;0;0;0.00;0.00", lines[2])
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, strings.Join(Header, ";")+"\n", buf.String())
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleRows()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, FormatRow(sampleRows()[0]), rows[1])
	assert.Equal(t, "—", rows[2][3])
}
