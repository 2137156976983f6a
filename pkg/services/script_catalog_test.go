package services

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-sqlrunner/pkg/models"
)

const regionReport = `-- @param Region "Sales Region" "Region code to report on"
DECLARE @Region NVARCHAR(20)
DECLARE @MinTotal INT = 100
SELECT * FROM Sales WHERE Region = @Region AND Total >= @MinTotal
`

func writeScript(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestScriptCatalog_ListSortedSQLOnly(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "b_report.sql", "SELECT 1")
	writeScript(t, dir, "a_report.SQL", "SELECT 2")
	writeScript(t, dir, "notes.txt", "not a script")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive.sql"), 0o755))

	catalog := NewScriptCatalog(dir, zap.NewNop())
	names, err := catalog.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a_report.SQL", "b_report.sql"}, names)
}

func TestScriptCatalog_ListMissingFolder(t *testing.T) {
	catalog := NewScriptCatalog(filepath.Join(t.TempDir(), "missing"), zap.NewNop())
	names, err := catalog.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestScriptCatalog_Analyze(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "region.sql", regionReport)

	catalog := NewScriptCatalog(dir, zap.NewNop())
	info, err := catalog.Analyze(context.Background(), "region.sql")
	require.NoError(t, err)

	assert.Equal(t, "region.sql", info.FileName)
	assert.Equal(t, filepath.Join(dir, "region.sql"), info.FullPath)
	assert.Equal(t, regionReport, info.SQLContent)
	assert.NotContains(t, info.SQLWithoutDeclares, "DECLARE")
	assert.Empty(t, info.Warnings)

	require.Len(t, info.Parameters, 2)
	assert.Equal(t, "Region", info.Parameters[0].Name)
	assert.Equal(t, "Sales Region", info.Parameters[0].GetDisplayName())
	assert.True(t, info.Parameters[0].IsRequired())
	assert.Equal(t, models.CategoryInteger, info.Parameters[1].Category)
}

func TestScriptCatalog_AnalyzeReportsWarnings(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "orphan.sql", "-- @param Ghost \"Ghost\"\nDECLARE @Real INT\nSELECT @Real")

	catalog := NewScriptCatalog(dir, zap.NewNop())
	info, err := catalog.Analyze(context.Background(), "orphan.sql")
	require.NoError(t, err)
	assert.NotEmpty(t, info.Warnings)
}

func TestScriptCatalog_AnalyzeRejectsNamesOutsideFolder(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "ok.sql", "SELECT 1")
	catalog := NewScriptCatalog(dir, zap.NewNop())

	for _, name := range []string{"", "..", "../ok.sql", "sub/ok.sql", `sub\ok.sql`, "ok.txt", "missing.sql"} {
		t.Run(name, func(t *testing.T) {
			_, err := catalog.Analyze(context.Background(), name)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrNotFound)
		})
	}
}

func TestScriptCatalog_AnalyzeDecodesByteOrderMarks(t *testing.T) {
	dir := t.TempDir()
	script := "DECLARE @Name NVARCHAR(10) = N'Zoë'\n"

	utf8BOM := append([]byte{0xEF, 0xBB, 0xBF}, script...)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "utf8.sql"), utf8BOM, 0o644))

	units := utf16.Encode([]rune(script))
	utf16LE := []byte{0xFF, 0xFE}
	for _, u := range units {
		utf16LE = binary.LittleEndian.AppendUint16(utf16LE, u)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "utf16.sql"), utf16LE, 0o644))

	catalog := NewScriptCatalog(dir, zap.NewNop())
	for _, name := range []string{"utf8.sql", "utf16.sql"} {
		t.Run(name, func(t *testing.T) {
			info, err := catalog.Analyze(context.Background(), name)
			require.NoError(t, err)
			assert.Equal(t, script, info.SQLContent)
			require.Len(t, info.Parameters, 1)
			assert.Equal(t, "Zoë", info.Parameters[0].Default.String())
		})
	}
}

func TestScriptCatalog_AnalyzeAll(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "one.sql", "DECLARE @A INT = 1")
	writeScript(t, dir, "two.sql", "DECLARE @B BIT = 0")
	writeScript(t, dir, "three.sql", regionReport)

	catalog := NewScriptCatalog(dir, zap.NewNop())
	infos, err := catalog.AnalyzeAll(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 3)
	assert.Equal(t, "one.sql", infos[0].FileName)
	assert.Equal(t, "three.sql", infos[1].FileName)
	assert.Equal(t, "two.sql", infos[2].FileName)
}

func TestScriptCatalog_AnalyzeCancelledContext(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "one.sql", "SELECT 1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewScriptCatalog(dir, zap.NewNop()).Analyze(ctx, "one.sql")
	assert.ErrorIs(t, err, context.Canceled)
}
