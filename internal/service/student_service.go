package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/alumnos-api/internal/dto"
	"github.com/noah-isme/alumnos-api/internal/models"
	"github.com/noah-isme/alumnos-api/internal/repository"
	appErrors "github.com/noah-isme/alumnos-api/pkg/errors"
)

const (
	studentCachePattern = "students:*"
	// Lives outside studentCachePattern so invalidation never resets it.
	studentGenerationKey = "students-gen"
)

type studentRepository interface {
	List(ctx context.Context) ([]models.Student, error)
	ListPage(ctx context.Context, req models.PageRequest) ([]models.Student, int, error)
	FindByID(ctx context.Context, id int64) (*models.Student, error)
	SearchByName(ctx context.Context, term string) ([]models.Student, error)
	ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error)
	Save(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id int64) error
}

// StudentService handles student use-cases.
type StudentService struct {
	repo    studentRepository
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewStudentService constructs the student service. cache and metrics may be nil.
func NewStudentService(repo studentRepository, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, cache: cache, metrics: metrics, logger: logger, now: time.Now}
}

// WithClock overrides the clock used to stamp registration dates.
func (s *StudentService) WithClock(now func() time.Time) *StudentService {
	s.now = now
	return s
}

// List returns every student.
func (s *StudentService) List(ctx context.Context) ([]models.Student, error) {
	key := s.cacheKey(ctx, "all")
	var cached []models.Student
	if s.cached(ctx, key, &cached) {
		return cached, nil
	}

	start := time.Now()
	students, err := s.repo.List(ctx)
	s.metrics.ObserveDBQuery("students_list", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to list students")
	}
	s.store(ctx, key, students)
	return students, nil
}

// ListPage returns one page of students with pagination metadata.
func (s *StudentService) ListPage(ctx context.Context, req models.PageRequest) (*models.StudentPage, error) {
	req = req.Normalize()
	key := s.cacheKey(ctx, fmt.Sprintf("page:%d:%d:%s:%s", req.Page, req.Size, req.SortBy, req.SortDir))
	var cached models.StudentPage
	if s.cached(ctx, key, &cached) {
		return &cached, nil
	}

	start := time.Now()
	students, total, err := s.repo.ListPage(ctx, req)
	s.metrics.ObserveDBQuery("students_page", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to list students")
	}
	page := &models.StudentPage{Content: students, Pagination: models.NewPagination(req, total)}
	s.store(ctx, key, page)
	return page, nil
}

// Get returns a single student or a not-found error naming the id.
func (s *StudentService) Get(ctx context.Context, id int64) (*models.Student, error) {
	key := s.cacheKey(ctx, fmt.Sprintf("id:%d", id))
	var cached models.Student
	if s.cached(ctx, key, &cached) {
		return &cached, nil
	}

	student, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, student)
	return student, nil
}

// Search returns students whose name contains term, case-insensitively.
func (s *StudentService) Search(ctx context.Context, term string) ([]models.Student, error) {
	key := s.cacheKey(ctx, "search:"+strings.ToLower(term))
	var cached []models.Student
	if s.cached(ctx, key, &cached) {
		return cached, nil
	}

	start := time.Now()
	students, err := s.repo.SearchByName(ctx, term)
	s.metrics.ObserveDBQuery("students_search", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to search students")
	}
	s.store(ctx, key, students)
	return students, nil
}

// Create registers a new student. The registration date defaults to today.
func (s *StudentService) Create(ctx context.Context, req dto.StudentRequest) (*models.Student, error) {
	student := &models.Student{
		Name:  strings.TrimSpace(req.Name),
		Email: strings.TrimSpace(req.Email),
	}
	if req.RegistrationDate != nil && !req.RegistrationDate.IsZero() {
		student.RegistrationDate = *req.RegistrationDate
	} else {
		student.RegistrationDate = models.NewDate(s.now())
	}

	if err := s.ensureEmailAvailable(ctx, student.Email, 0); err != nil {
		return nil, err
	}
	if err := s.save(ctx, student); err != nil {
		return nil, err
	}

	s.afterWrite(ctx, "create", student.ID)
	return student, nil
}

// Update replaces name and email of an existing student. id and registration date never change.
func (s *StudentService) Update(ctx context.Context, id int64, req dto.StudentRequest) (*models.Student, error) {
	student, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	email := strings.TrimSpace(req.Email)
	if err := s.ensureEmailAvailable(ctx, email, id); err != nil {
		return nil, err
	}

	student.Name = strings.TrimSpace(req.Name)
	student.Email = email
	if err := s.save(ctx, student); err != nil {
		return nil, err
	}

	s.afterWrite(ctx, "update", id)
	return student, nil
}

// Delete permanently removes a student.
func (s *StudentService) Delete(ctx context.Context, id int64) error {
	if _, err := s.find(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound(id)
		}
		return appErrors.Wrap(err, appErrors.ErrInternal, "failed to delete student")
	}

	s.afterWrite(ctx, "delete", id)
	return nil
}

func (s *StudentService) find(ctx context.Context, id int64) (*models.Student, error) {
	start := time.Now()
	student, err := s.repo.FindByID(ctx, id)
	s.metrics.ObserveDBQuery("students_find", time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal, "failed to load student")
	}
	return student, nil
}

func (s *StudentService) ensureEmailAvailable(ctx context.Context, email string, excludeID int64) error {
	exists, err := s.repo.ExistsByEmail(ctx, email, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal, "failed to validate email")
	}
	if exists {
		return emailTaken(email)
	}
	return nil
}

func (s *StudentService) save(ctx context.Context, student *models.Student) error {
	start := time.Now()
	err := s.repo.Save(ctx, student)
	s.metrics.ObserveDBQuery("students_save", time.Since(start))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrDuplicateEmail):
		return emailTaken(student.Email)
	case errors.Is(err, sql.ErrNoRows):
		return notFound(student.ID)
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal, "failed to save student")
	}
}

// cacheKey scopes suffix to the current cache generation. An empty key disables caching for the call.
// The generation is read before the database so a read racing a write stores its result under a
// generation the write has already retired.
func (s *StudentService) cacheKey(ctx context.Context, suffix string) string {
	gen, ok := s.cache.Generation(ctx, studentGenerationKey)
	if !ok {
		return ""
	}
	return fmt.Sprintf("students:v%d:%s", gen, suffix)
}

func (s *StudentService) cached(ctx context.Context, key string, dest interface{}) bool {
	if key == "" {
		return false
	}
	hit, _ := s.cache.Get(ctx, key, dest)
	return hit
}

func (s *StudentService) store(ctx context.Context, key string, value interface{}) {
	if key == "" {
		return
	}
	_ = s.cache.Set(ctx, key, value, 0)
}

func (s *StudentService) afterWrite(ctx context.Context, operation string, id int64) {
	_ = s.cache.Bump(ctx, studentGenerationKey)
	_ = s.cache.Invalidate(ctx, studentCachePattern)
	s.metrics.RecordMutation(operation)
	s.logger.Info("student "+operation+"d", zap.Int64("student_id", id))
}

func notFound(id int64) *appErrors.Error {
	return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student not found with id: %d", id))
}

func emailTaken(email string) *appErrors.Error {
	err := appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("email already registered: %s", email))
	err.Fields = map[string]string{"email": "is already registered"}
	return err
}
