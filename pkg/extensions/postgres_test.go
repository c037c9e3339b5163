package extensions

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/hubcap/pkg/apperr"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStoreFromDB(db), mock
}

func extensionRows() *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "uuid", "slug", "name", "author", "description", "icon_hash",
		"status", "disabled", "deleted", "last_updated", "author_ids", "created_at", "updated_at",
	}).AddRow(
		int64(1), "uuid-1", "tab-sync", "Tab Sync", "jo", "sync tabs", "",
		"public", false, false, nil, "{42}", now, now,
	)
}

func TestPostgresGetExtension(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM extensions WHERE id").
		WithArgs(int64(1)).
		WillReturnRows(extensionRows())

	ext, err := store.GetExtension(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "tab-sync", ext.Slug)
	assert.Equal(t, StatusPublic, ext.Status)
	assert.Equal(t, []int64{42}, ext.AuthorIDs)
	assert.Nil(t, ext.LastUpdated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetExtensionNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM extensions WHERE id").
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.GetExtension(context.Background(), 99)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateExtensionConflict(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO extensions").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := store.CreateExtension(context.Background(),
		&Extension{UUID: "uuid-1", Slug: "tab-sync", Name: "Tab Sync", AuthorIDs: []int64{42}},
		&Version{Version: "1.0.0"},
		nil,
	)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMarkBlobsSwept(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE versions SET blobs_swept").
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.MarkBlobsSwept(context.Background(), 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListSweepableBlobs(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "uuid"}).
		AddRow(int64(3), "uuid-1").
		AddRow(int64(9), "uuid-2")
	mock.ExpectQuery("SELECT v.id, e.uuid").
		WithArgs(100).
		WillReturnRows(rows)

	refs, err := store.ListSweepableBlobs(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, int64(3), refs[0].VersionID)
	assert.Equal(t, "uuid-2", refs[1].ExtensionUUID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetVersion(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "extension_id", "version", "status", "size", "manifest",
		"deleted", "created_at", "updated_at",
	}).AddRow(int64(5), int64(1), "1.0.0", "pending", int64(0), []byte(`{"name":"x"}`), false, now, now)

	mock.ExpectQuery("SELECT (.+) FROM versions WHERE id").
		WithArgs(int64(5)).
		WillReturnRows(rows)

	v, err := store.GetVersion(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, v.Status)
	assert.JSONEq(t, `{"name":"x"}`, string(v.Manifest))
	assert.NoError(t, mock.ExpectationsWereMet())
}
