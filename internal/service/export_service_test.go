package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ormd/internal/domain"
	"ormd/internal/export"
)

func seedRegistry(t *testing.T, citizens *fakeCitizenRepo, services *fakeServiceRepo) {
	t.Helper()
	dni := "00045678912"
	apellidos := "GARCIA TORRES"
	c := &domain.Citizen{ID: uuid.New(), DNI: &dni, Apellidos: &apellidos}
	require.NoError(t, citizens.Create(context.Background(), c))

	grado := "SOLDADO"
	require.NoError(t, services.Upsert(context.Background(), &domain.ServiceRecord{
		ID:             uuid.New(),
		CitizenID:      c.ID,
		PrestoServicio: "SI",
		Grado:          &grado,
	}))

	lm := "0000004455"
	require.NoError(t, citizens.Create(context.Background(), &domain.Citizen{ID: uuid.New(), LM: &lm}))
}

func TestExportCSV(t *testing.T) {
	citizens := newFakeCitizenRepo()
	services := newFakeServiceRepo()
	seedRegistry(t, citizens, services)

	var buf bytes.Buffer
	svc := NewExportService(citizens, services)
	require.NoError(t, svc.ExportCSV(context.Background(), &buf))

	data := buf.Bytes()
	require.True(t, bytes.HasPrefix(data, export.BOM))

	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, export.BOM)))
	rows, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "DNI", rows[0][0])

	var served, unserved bool
	for _, row := range rows[1:] {
		switch row[9] {
		case "SI":
			served = true
			assert.Equal(t, "00045678912", row[0])
			assert.Equal(t, "SOLDADO", row[15])
		case "NO":
			unserved = true
			assert.Equal(t, "0000004455", row[1])
		}
	}
	assert.True(t, served)
	assert.True(t, unserved)
}

func TestExportXLSX(t *testing.T) {
	citizens := newFakeCitizenRepo()
	services := newFakeServiceRepo()
	seedRegistry(t, citizens, services)

	var buf bytes.Buffer
	svc := NewExportService(citizens, services)
	require.NoError(t, svc.ExportXLSX(context.Background(), &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Registro")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "DNI", rows[0][0])
}

func TestExportEmptyRegistry(t *testing.T) {
	var buf bytes.Buffer
	svc := NewExportService(newFakeCitizenRepo(), newFakeServiceRepo())
	require.NoError(t, svc.ExportCSV(context.Background(), &buf))

	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(buf.Bytes(), export.BOM)))
	rows, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
