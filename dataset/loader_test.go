package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDataFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Basic(t *testing.T) {
	path := writeDataFile(t, "State\tTax_Burden\nIdaho\t2.12\nMontana\t3.24\n")

	table, err := Load(path, "Tax_Burden")
	require.NoError(t, err)

	require.Len(t, table.Records, 2)
	assert.Equal(t, "Tax_Burden", table.ValueColumn)

	assert.Equal(t, "Idaho", table.Records[0].State)
	assert.Equal(t, 2.12, table.Records[0].Value)
	assert.False(t, table.Records[0].Missing)

	assert.Equal(t, "Montana", table.Records[1].State)
	assert.Equal(t, 3.24, table.Records[1].Value)
	assert.False(t, table.Records[1].Missing)
}

func TestLoad_MissingStateColumn(t *testing.T) {
	path := writeDataFile(t, "Name\tTax_Burden\nIdaho\t2.12\n")

	_, err := Load(path, "Tax_Burden")
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "State", schemaErr.Column)
	assert.Contains(t, err.Error(), "State")
}

func TestLoad_MissingValueColumn(t *testing.T) {
	path := writeDataFile(t, "State\tTax_Burden\nIdaho\t2.12\n")

	_, err := Load(path, "Median_Income")
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "Median_Income", schemaErr.Column)
	assert.Contains(t, err.Error(), "Median_Income")
}

func TestLoad_EmptyCellIsMissing(t *testing.T) {
	path := writeDataFile(t, "State\tTax_Burden\nIdaho\t2.12\nMontana\t\n")

	table, err := Load(path, "Tax_Burden")
	require.NoError(t, err)

	require.Len(t, table.Records, 2)
	assert.False(t, table.Records[0].Missing)
	assert.True(t, table.Records[1].Missing)
}

func TestLoad_NonNumericCell(t *testing.T) {
	path := writeDataFile(t, "State\tTax_Burden\nIdaho\t2.12\nMontana\thigh\n")

	_, err := Load(path, "Tax_Burden")
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 3, parseErr.Row)
	assert.Equal(t, "high", parseErr.Value)
	assert.Contains(t, err.Error(), "row 3")
}

func TestLoad_RowNumberSurvivesBlankLines(t *testing.T) {
	path := writeDataFile(t, "State\tTax_Burden\nIdaho\t2.12\n\nMontana\thigh\n")

	_, err := Load(path, "Tax_Burden")
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 4, parseErr.Row, "physical line number, counting the blank line")
}

func TestLoad_TrimsStateNames(t *testing.T) {
	path := writeDataFile(t, "State\tTax_Burden\n  Idaho \t2.12\n")

	table, err := Load(path, "Tax_Burden")
	require.NoError(t, err)

	require.Len(t, table.Records, 1)
	assert.Equal(t, "Idaho", table.Records[0].State)
}

func TestLoad_SkipsBlankRows(t *testing.T) {
	path := writeDataFile(t, "State\tTax_Burden\nIdaho\t2.12\n\t\n")

	table, err := Load(path, "Tax_Burden")
	require.NoError(t, err)
	assert.Len(t, table.Records, 1)
}

func TestLoad_HeaderBOM(t *testing.T) {
	path := writeDataFile(t, "\uFEFFState\tTax_Burden\nIdaho\t2.12\n")

	table, err := Load(path, "Tax_Burden")
	require.NoError(t, err)
	assert.Len(t, table.Records, 1)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.txt"), "Tax_Burden")
	require.Error(t, err)
}

func TestLoad_EmptyFile(t *testing.T) {
	path := writeDataFile(t, "")

	_, err := Load(path, "Tax_Burden")
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
}
