package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/alumnos-api/internal/models"
	"github.com/noah-isme/alumnos-api/pkg/database"
)

func newStudentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "postgres"), mock, func() { db.Close() }
}

func newStudentSQLite(t *testing.T) *StudentRepository {
	t.Helper()
	db, err := database.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	return NewStudentRepository(db)
}

func seedStudents(t *testing.T, repo *StudentRepository, names ...string) []models.Student {
	t.Helper()
	date := models.NewDate(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	out := make([]models.Student, 0, len(names))
	for i, name := range names {
		s := models.Student{Name: name, Email: string(rune('a'+i)) + "@x.com", RegistrationDate: date}
		require.NoError(t, repo.Save(context.Background(), &s))
		out = append(out, s)
	}
	return out
}

func TestStudentRepositoryListPageQuery(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "email", "registration_date"}).
		AddRow(int64(3), "Ana", "ana@x.com", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, email, registration_date FROM students ORDER BY name DESC, id ASC LIMIT 2 OFFSET 2")).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

	students, total, err := repo.ListPage(context.Background(), models.PageRequest{Page: 1, Size: 2, SortBy: "name", SortDir: "desc"})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "2024-01-02", students[0].RegistrationDate.String())
	assert.Equal(t, 5, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListPageUnknownSortFallsBackToID(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, email, registration_date FROM students ORDER BY id ASC LIMIT 10 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "registration_date"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	students, total, err := repo.ListPage(context.Background(), models.PageRequest{SortBy: "password"})
	require.NoError(t, err)
	assert.Empty(t, students)
	assert.NotNil(t, students)
	assert.Equal(t, 0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositorySearchQuery(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, email, registration_date FROM students WHERE LOWER(name) LIKE $1 ESCAPE '\' ORDER BY id ASC`)).
		WithArgs(`%50\%%`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "registration_date"}))

	_, err := repo.SearchByName(context.Background(), "50%")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateQuery(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO students (name, email, registration_date) VALUES ($1, $2, $3) RETURNING id")).
		WithArgs("Ana", "ana@x.com", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(12)))

	student := &models.Student{Name: "Ana", Email: "ana@x.com", RegistrationDate: models.NewDate(time.Now())}
	require.NoError(t, repo.Save(context.Background(), student))
	assert.Equal(t, int64(12), student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateDuplicateEmail(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("INSERT INTO students").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Save(context.Background(), &models.Student{Name: "Ana", Email: "ana@x.com"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateMissingRow(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET name = $1, email = $2, registration_date = $3 WHERE id = $4")).
		WithArgs("Ana", "ana@x.com", sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Save(context.Background(), &models.Student{ID: 7, Name: "Ana", Email: "ana@x.com"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryExistsByEmailQuery(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM students WHERE email = $1 AND id <> $2 LIMIT 1")).
		WithArgs("ana@x.com", int64(4)).
		WillReturnError(sql.ErrNoRows)

	exists, err := repo.ExistsByEmail(context.Background(), "ana@x.com", 4)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositorySQLiteLifecycle(t *testing.T) {
	repo := newStudentSQLite(t)
	ctx := context.Background()
	require.NoError(t, repo.PingContext(ctx))

	student := models.Student{Name: "Ana", Email: "ana@x.com", RegistrationDate: models.NewDate(time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC))}
	require.NoError(t, repo.Save(ctx, &student))
	require.NotZero(t, student.ID)

	found, err := repo.FindByID(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, student, *found)

	found.Name = "Ana Maria"
	require.NoError(t, repo.Save(ctx, found))
	reloaded, err := repo.FindByID(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", reloaded.Name)
	assert.Equal(t, "2024-05-06", reloaded.RegistrationDate.String())

	exists, err := repo.ExistsByEmail(ctx, "ana@x.com", 0)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.ExistsByEmail(ctx, "ana@x.com", student.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.Delete(ctx, student.ID))
	_, err = repo.FindByID(ctx, student.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.ErrorIs(t, repo.Delete(ctx, student.ID), sql.ErrNoRows)
}

func TestStudentRepositorySQLiteDuplicateEmail(t *testing.T) {
	repo := newStudentSQLite(t)
	ctx := context.Background()

	first := models.Student{Name: "Ana", Email: "a@x.com", RegistrationDate: models.NewDate(time.Now())}
	require.NoError(t, repo.Save(ctx, &first))
	second := models.Student{Name: "Eva", Email: "a@x.com", RegistrationDate: models.NewDate(time.Now())}
	assert.ErrorIs(t, repo.Save(ctx, &second), ErrDuplicateEmail)
}

func TestStudentRepositorySQLitePagination(t *testing.T) {
	repo := newStudentSQLite(t)
	seedStudents(t, repo, "Ana", "Bruno", "Carla", "Diego", "Elena")
	ctx := context.Background()

	page0, total, err := repo.ListPage(ctx, models.PageRequest{Page: 0, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page0, 2)
	assert.Equal(t, "Ana", page0[0].Name)

	page1, _, err := repo.ListPage(ctx, models.PageRequest{Page: 1, Size: 2})
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, "Carla", page1[0].Name)

	page2, _, err := repo.ListPage(ctx, models.PageRequest{Page: 2, Size: 2})
	require.NoError(t, err)
	assert.Len(t, page2, 1)

	desc, _, err := repo.ListPage(ctx, models.PageRequest{Size: 2, SortBy: "name", SortDir: "desc"})
	require.NoError(t, err)
	assert.Equal(t, "Elena", desc[0].Name)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestStudentRepositorySQLitePageBeyondEnd(t *testing.T) {
	repo := newStudentSQLite(t)
	seedStudents(t, repo, "Ana", "Bruno", "Carla")

	students, total, err := repo.ListPage(context.Background(), models.PageRequest{Page: 92233720368547759, Size: 100})
	require.NoError(t, err)
	assert.Empty(t, students)
	assert.Equal(t, 3, total)
}

func TestStudentRepositorySQLiteSearch(t *testing.T) {
	repo := newStudentSQLite(t)
	seedStudents(t, repo, "Ana", "ANDRES", "Luis", "Juliana", "100%_real")
	ctx := context.Background()

	found, err := repo.SearchByName(ctx, "an")
	require.NoError(t, err)
	names := make([]string, 0, len(found))
	for _, s := range found {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Ana", "ANDRES", "Juliana"}, names)

	literal, err := repo.SearchByName(ctx, "%_")
	require.NoError(t, err)
	require.Len(t, literal, 1)
	assert.Equal(t, "100%_real", literal[0].Name)

	none, err := repo.SearchByName(ctx, "zzz")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestStudentRepositorySQLiteSearchAccents(t *testing.T) {
	repo := newStudentSQLite(t)
	seedStudents(t, repo, "ÁLVARO", "Álvaro Núñez", "Alvaro", "MARÍA JOSÉ")
	ctx := context.Background()

	found, err := repo.SearchByName(ctx, "álvaro")
	require.NoError(t, err)
	names := make([]string, 0, len(found))
	for _, s := range found {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"ÁLVARO", "Álvaro Núñez"}, names)

	found, err = repo.SearchByName(ctx, "josé")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "MARÍA JOSÉ", found[0].Name)

	found, err = repo.SearchByName(ctx, "ÑEZ")
	require.NoError(t, err)
	require.Len(t, found, 1)
}
