package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"collectorkit/internal/domain/entities"
	"collectorkit/pkg/textutil"
)

func sampleReport() Report {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return Report{
		GeneratedAt: created,
		Customers: []entities.Customer{
			{ID: 1, Name: "Acme", DeviceCount: 2, ActiveDevices: 1, InactiveDevices: 1},
		},
		Devices: []entities.Device{
			{ID: 10, CustomerID: 1, SiteID: 5, Name: "meter, north", Serial: "SN\"1", Active: true, CreatedAt: created},
			{ID: 11, CustomerID: 1, Name: "spare"},
		},
	}
}

func french(text string) string {
	return map[string]string{"Customers": "Clients", "Devices": "Appareils", "Name": "Nom", "Yes": "Oui", "No": "Non"}[text]
}

func TestXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, XLSX(&buf, sampleReport(), nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Customers", "Devices"}, f.GetSheetList())
	rows, err := f.GetRows("Devices")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Serial", rows[0][4])
	assert.Equal(t, "meter, north", rows[1][3])
	assert.Equal(t, "Yes", rows[1][5])
	assert.Equal(t, "No", rows[2][5])

	name, err := f.GetCellValue("Customers", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Acme", name)
}

func TestXLSXLocalizedSheets(t *testing.T) {
	labels := Labeler(func(s string) string {
		if v := french(s); v != "" {
			return v
		}
		return s
	})
	var buf bytes.Buffer
	require.NoError(t, XLSX(&buf, sampleReport(), labels))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Clients", "Appareils"}, f.GetSheetList())
}

func TestDevicesCSVRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, DevicesCSV(&buf, sampleReport().Devices, nil))

	records, err := textutil.ParseCSV(buf.String(), ',')
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"10", "1", "5", "meter, north", "SN\"1", "Yes", "2024-01-02T03:04:05Z"}, records[1])
	assert.Equal(t, []string{"11", "1", "0", "spare", "", "No", ""}, records[2])
}

func TestPDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PDF(&buf, sampleReport(), nil))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}
