package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"farmfi-backend/internal/apperr"
	"farmfi-backend/internal/landuse"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func workbook(t *testing.T, rows ...[]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", fmt.Sprintf("A%d", i+1), &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func newImportFixture() (*CropImportService, *cropFixture) {
	fx := newCropFixture()
	return NewCropImportService(fx.svc, zap.NewNop()), fx
}

func TestCropImport_MixedRows(t *testing.T) {
	svc, fx := newImportFixture()
	field := fx.fields.add(testFarmer.ID, 10)
	second := fx.fields.add(otherFarmer.ID, 3)

	buf := workbook(t,
		[]any{"Season", "Field ID", "Crop Name", "Year", "Area", "Production"},
		[]any{"Kharif", field.ID, "paddy", 2024, 4, 12.5},
		[]any{"rabi", field.ID, "Cotton", 2024, 5},
		[]any{"Kharif", field.ID, "Tomato", 2024, 1},
		[]any{},
		[]any{"Whole Year", second.ID, "Tomato", 2024, 2},
		[]any{"Zaid", second.ID, "Tomato", 2024, 1},
		[]any{"Rabi", 999, "Tomato", 2024, 1},
		[]any{"Rabi", second.ID, "Saffron", 2024, 1},
		[]any{"Rabi", second.ID, "Tomato", 2024, "lots"},
	)

	res, err := svc.Import(context.Background(), testEmployee, buf)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Created)
	assert.Equal(t, 5, res.Rejected)
	require.Len(t, res.Rows, 8)

	assert.Equal(t, "created", res.Rows[0].Status)
	assert.Equal(t, 2, res.Rows[0].Row)
	assert.NotZero(t, res.Rows[0].CropID)

	dup := res.Rows[2]
	assert.Equal(t, 4, dup.Row)
	assert.Equal(t, "rejected", dup.Status)
	assert.Equal(t, string(landuse.RuleDuplicateSeason), dup.Rule)

	// the blank row 5 is skipped, numbering follows the sheet
	assert.Equal(t, 6, res.Rows[3].Row)
	assert.Equal(t, "created", res.Rows[3].Status)

	for _, rr := range res.Rows[4:] {
		assert.Equal(t, "rejected", rr.Status, "row %d", rr.Row)
		assert.NotEmpty(t, rr.Message)
		assert.Empty(t, rr.Rule)
	}
	assert.Contains(t, strings.ToLower(res.Rows[4].Message), "season")

	require.Len(t, res.LandInfo, 2)
	assert.Equal(t, field.ID, res.LandInfo[0].FieldID)
	assert.InDelta(t, 1, res.LandInfo[0].LandInfo.RemainingArea, 1e-9)
	assert.Equal(t, second.ID, res.LandInfo[1].FieldID)
	assert.InDelta(t, 1, res.LandInfo[1].LandInfo.RemainingArea, 1e-9)

	assert.Equal(t, 3, fx.crops.count())
}

func TestCropImport_Rejections(t *testing.T) {
	svc, _ := newImportFixture()
	ctx := context.Background()

	_, err := svc.Import(ctx, testFarmer, workbook(t, []any{"field_id"}))
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = svc.Import(ctx, testAdmin, strings.NewReader("not a workbook"))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.Import(ctx, testAdmin, workbook(t, []any{"field_id", "crop", "season", "area"}, []any{1, "Paddy", "Rabi", 1}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "crop_year")

	_, err = svc.Import(ctx, testAdmin, workbook(t, []any{"field_id", "crop", "crop_year", "season", "area"}))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestHeaderIndex(t *testing.T) {
	idx := headerIndex([]string{" Field-ID ", "CROP", "year", "crop_year", ""})
	assert.Equal(t, map[string]int{"field_id": 0, "crop": 1, "crop_year": 2}, idx)
}
