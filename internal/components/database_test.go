package components

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greenscreen/internal/component"
	"greenscreen/internal/dict"
)

func dbConfig(raw string) component.Configuration {
	return component.Configuration{Type: DatabaseType, Config: json.RawMessage(raw)}
}

// seedLoanTable creates and populates a throwaway sqlite file through the
// component's own write path.
func seedLoanTable(t *testing.T) string {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "loans.db")
	db := NewDatabase()

	ddl := fmt.Sprintf(`{"provider":"sqlite","dsn":%q,"mode":"write",
		"query":"CREATE TABLE loans (loan_number TEXT PRIMARY KEY, borrower_name TEXT, shortage_amount TEXT)"}`, dsn)
	res := db.Execute(context.Background(), dbConfig(ddl), dict.New())
	require.Equal(t, component.StatusSuccess, res.Status, "%v", res.Err)

	for _, row := range [][3]string{
		{"1000001", "SMITH, JOHN A", "$650.00"},
		{"1000002", "GARCIA, MARIA E", "$0.00"},
	} {
		ins := fmt.Sprintf(`{"provider":"sqlite","dsn":%q,"mode":"write",
			"query":"INSERT INTO loans VALUES (?, ?, ?)",
			"params":["{{n}}","{{b}}","{{s}}"]}`, dsn)
		data := dict.New(map[string]string{"n": row[0], "b": row[1], "s": row[2]})
		res := db.Execute(context.Background(), dbConfig(ins), data)
		require.Equal(t, component.StatusSuccess, res.Status, "%v", res.Err)
		assert.Equal(t, "1", res.OutputData["rows_affected"])
	}
	return dsn
}

func TestDatabaseReadFirstRow(t *testing.T) {
	dsn := seedLoanTable(t)
	raw := fmt.Sprintf(`{"provider":"sqlite","dsn":%q,
		"query":"SELECT borrower_name, shortage_amount FROM loans WHERE loan_number = ?",
		"params":["{{loan_number}}"]}`, dsn)
	data := dict.New(map[string]string{"loan_number": "1000001"})

	res := NewDatabase().Execute(context.Background(), dbConfig(raw), data)
	require.Equal(t, component.StatusSuccess, res.Status, "%v", res.Err)
	assert.Equal(t, "SMITH, JOHN A", res.OutputData["borrower_name"])
	assert.Equal(t, "$650.00", data.Get("shortage_amount"))
}

func TestDatabaseRowsKeyForForeach(t *testing.T) {
	dsn := seedLoanTable(t)
	raw := fmt.Sprintf(`{"provider":"sqlite","dsn":%q,
		"query":"SELECT loan_number, borrower_name FROM loans ORDER BY loan_number",
		"rows_key":"loan_rows"}`, dsn)
	data := dict.New()

	res := NewDatabase().Execute(context.Background(), dbConfig(raw), data)
	require.Equal(t, component.StatusSuccess, res.Status, "%v", res.Err)

	var rows []map[string]string
	require.NoError(t, json.Unmarshal([]byte(data.Get("loan_rows")), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "1000001", rows[0]["loan_number"])
	assert.Equal(t, "GARCIA, MARIA E", rows[1]["borrower_name"])
}

func TestDatabaseFailures(t *testing.T) {
	dsn := seedLoanTable(t)

	t.Run("no rows", func(t *testing.T) {
		raw := fmt.Sprintf(`{"provider":"sqlite","dsn":%q,
			"query":"SELECT * FROM loans WHERE loan_number = ?","params":["9999999"]}`, dsn)
		res := NewDatabase().Execute(context.Background(), dbConfig(raw), dict.New())
		require.Equal(t, component.StatusFailure, res.Status)
		assert.Equal(t, component.CodeNoRowsReturned, res.Err.Code)
	})

	t.Run("unsupported provider", func(t *testing.T) {
		raw := fmt.Sprintf(`{"provider":"oracle","dsn":%q,"query":"SELECT 1"}`, dsn)
		res := NewDatabase().Execute(context.Background(), dbConfig(raw), dict.New())
		require.Equal(t, component.StatusFailure, res.Status)
		assert.Equal(t, component.CodeUnsupportedProvider, res.Err.Code)
	})

	t.Run("bad sql", func(t *testing.T) {
		raw := fmt.Sprintf(`{"provider":"sqlite","dsn":%q,"query":"SELEKT zilch"}`, dsn)
		res := NewDatabase().Execute(context.Background(), dbConfig(raw), dict.New())
		require.Equal(t, component.StatusFailure, res.Status)
		assert.Equal(t, component.CodeQueryError, res.Err.Code)
	})

	t.Run("missing config", func(t *testing.T) {
		res := NewDatabase().Execute(context.Background(), dbConfig(`{"provider":"sqlite"}`), dict.New())
		require.Equal(t, component.StatusFailure, res.Status)
		assert.Equal(t, component.CodeConfigError, res.Err.Code)
	})
}
