package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/alumnos-api/internal/models"
	"github.com/noah-isme/alumnos-api/pkg/database"
)

// ErrDuplicateEmail is returned when a write collides with the unique email constraint.
var ErrDuplicateEmail = errors.New("email already registered")

const studentColumns = "id, name, email, registration_date"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns every student ordered by id.
func (r *StudentRepository) List(ctx context.Context) ([]models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students ORDER BY id ASC", studentColumns)
	students := make([]models.Student, 0)
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// ListPage returns one page of students and the total row count.
func (r *StudentRepository) ListPage(ctx context.Context, req models.PageRequest) ([]models.Student, int, error) {
	// Normalize whitelists SortBy and SortDir, so both are safe to inline.
	req = req.Normalize()
	column := req.SortBy
	order := strings.ToUpper(req.SortDir)

	orderBy := fmt.Sprintf("%s %s", column, order)
	if column != "id" {
		orderBy += ", id ASC"
	}
	query := fmt.Sprintf("SELECT %s FROM students ORDER BY %s LIMIT %d OFFSET %d", studentColumns, orderBy, req.Size, req.Offset())

	students := make([]models.Student, 0, req.Size)
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, 0, fmt.Errorf("list students page: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM students"); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student by id. It returns sql.ErrNoRows when absent.
func (r *StudentRepository) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	query := r.db.Rebind(fmt.Sprintf("SELECT %s FROM students WHERE id = ?", studentColumns))
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// SearchByName returns students whose name contains term, ignoring case.
func (r *StudentRepository) SearchByName(ctx context.Context, term string) ([]models.Student, error) {
	query := r.db.Rebind(fmt.Sprintf(`SELECT %s FROM students WHERE LOWER(name) LIKE ? ESCAPE '\' ORDER BY id ASC`, studentColumns))
	pattern := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
	students := make([]models.Student, 0)
	if err := r.db.SelectContext(ctx, &students, query, pattern); err != nil {
		return nil, fmt.Errorf("search students: %w", err)
	}
	return students, nil
}

// ExistsByEmail checks if a student with given email exists optionally excluding an id.
func (r *StudentRepository) ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error) {
	query := "SELECT 1 FROM students WHERE email = ?"
	args := []interface{}{email}
	if excludeID != 0 {
		query += " AND id <> ?"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, r.db.Rebind(query+" LIMIT 1"), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check email: %w", err)
	}
	return true, nil
}

// Save inserts student when it has no id, assigning one, and replaces the stored row otherwise.
func (r *StudentRepository) Save(ctx context.Context, student *models.Student) error {
	if student.ID == 0 {
		return r.insert(ctx, student)
	}
	return r.update(ctx, student)
}

func (r *StudentRepository) insert(ctx context.Context, student *models.Student) error {
	query := r.db.Rebind(`INSERT INTO students (name, email, registration_date) VALUES (?, ?, ?) RETURNING id`)
	row := r.db.QueryRowxContext(ctx, query, student.Name, student.Email, student.RegistrationDate)
	if err := row.Scan(&student.ID); err != nil {
		if database.IsUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

func (r *StudentRepository) update(ctx context.Context, student *models.Student) error {
	query := r.db.Rebind(`UPDATE students SET name = ?, email = ?, registration_date = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, student.Name, student.Email, student.RegistrationDate, student.ID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("update student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes the student permanently. It returns sql.ErrNoRows when nothing was deleted.
func (r *StudentRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM students WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// PingContext checks the connection for readiness probes.
func (r *StudentRepository) PingContext(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
