package fromrow_test

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donutnomad/rowgen/fromrow"
)

func TestCollect(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM roles").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), "admin").
			AddRow(int64(2), []byte("viewer")))

	rows, err := db.Query("SELECT id, name FROM roles")
	require.NoError(t, err)

	roles, err := fromrow.Collect[Role](rows)
	require.NoError(t, err)
	assert.Equal(t, []Role{{ID: 1, Name: "admin"}, {ID: 2, Name: "viewer"}}, roles)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollect_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM roles").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), "admin").
			AddRow(int64(2), nil))

	rows, err := db.Query("SELECT id, name FROM roles")
	require.NoError(t, err)

	roles, err := fromrow.Collect[Role](rows)
	assert.Nil(t, roles)
	assert.True(t, errors.Is(err, fromrow.ErrNullOnNonNullable))
}

func TestCollectWith_Mapping(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(5), "carol"))

	rows, err := db.Query("SELECT id, name FROM users")
	require.NoError(t, err)

	users, err := fromrow.CollectWith(rows, fromrow.MustRegister[rUser]().TryFromRow)
	require.NoError(t, err)
	assert.Equal(t, []rUser{{ID: 5, Name: "carol"}}, users)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScanSQL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows([]string{"b", "a"}).AddRow(nil, int64(1)))

	rows, err := db.Query("SELECT b, a")
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())
	row, err := fromrow.ScanSQL(rows)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, row.Columns())

	null, err := row.IsNull("b")
	require.NoError(t, err)
	assert.True(t, null)
}
