package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/alumnos-api/internal/dto"
	"github.com/noah-isme/alumnos-api/internal/models"
	appErrors "github.com/noah-isme/alumnos-api/pkg/errors"
	"github.com/noah-isme/alumnos-api/pkg/response"
	"github.com/noah-isme/alumnos-api/pkg/validation"
)

type studentService interface {
	List(ctx context.Context) ([]models.Student, error)
	ListPage(ctx context.Context, req models.PageRequest) (*models.StudentPage, error)
	Get(ctx context.Context, id int64) (*models.Student, error)
	Search(ctx context.Context, term string) ([]models.Student, error)
	Create(ctx context.Context, req dto.StudentRequest) (*models.Student, error)
	Update(ctx context.Context, id int64, req dto.StudentRequest) (*models.Student, error)
	Delete(ctx context.Context, id int64) error
}

type studentExporter interface {
	Export(ctx context.Context, format dto.ExportFormat) (*dto.ExportFile, error)
}

// StudentHandler exposes student endpoints.
type StudentHandler struct {
	students studentService
	exporter studentExporter
	validate *validator.Validate
}

// NewStudentHandler constructs StudentHandler. exporter may be nil to disable exports.
func NewStudentHandler(students studentService, exporter studentExporter) *StudentHandler {
	return &StudentHandler{students: students, exporter: exporter, validate: validation.New()}
}

// RegisterRoutes mounts the student endpoints on the group.
func (h *StudentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/paginated", h.ListPage)
	rg.GET("/search", h.Search)
	if h.exporter != nil {
		rg.GET("/export", h.Export)
	}
	rg.GET("/:id", h.Get)
	rg.POST("", h.Create)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}

// List godoc
// @Summary List students
// @Tags Alumnos
// @Produce json
// @Security BasicAuth
// @Success 200 {array} models.Student
// @Failure 401 {object} response.ErrorBody
// @Router /alumnos [get]
func (h *StudentHandler) List(c *gin.Context) {
	students, err := h.students.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, students)
}

// ListPage godoc
// @Summary List students page by page
// @Tags Alumnos
// @Produce json
// @Security BasicAuth
// @Param page query int false "Zero-based page index" default(0)
// @Param size query int false "Page size (max 100)" default(10)
// @Param sort query string false "Sort field and direction, e.g. name,asc"
// @Success 200 {object} models.StudentPage
// @Router /alumnos/paginated [get]
func (h *StudentHandler) ListPage(c *gin.Context) {
	page, err := h.students.ListPage(c.Request.Context(), parsePageRequest(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, page)
}

// Get godoc
// @Summary Get a student
// @Tags Alumnos
// @Produce json
// @Security BasicAuth
// @Param id path int true "Student ID"
// @Success 200 {object} models.Student
// @Failure 400 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /alumnos/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.students.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, student)
}

// Search godoc
// @Summary Search students by name
// @Tags Alumnos
// @Produce json
// @Security BasicAuth
// @Param nombre query string true "Case-insensitive name fragment"
// @Success 200 {array} models.Student
// @Failure 400 {object} response.ErrorBody
// @Router /alumnos/search [get]
func (h *StudentHandler) Search(c *gin.Context) {
	term, ok := c.GetQuery("nombre")
	if !ok {
		response.Error(c, appErrors.Validation(map[string]string{"nombre": "is required"}))
		return
	}
	students, err := h.students.Search(c.Request.Context(), term)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, students)
}

// Export godoc
// @Summary Export all students
// @Tags Alumnos
// @Produce text/csv
// @Produce application/pdf
// @Security BasicAuth
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.ErrorBody
// @Router /alumnos/export [get]
func (h *StudentHandler) Export(c *gin.Context) {
	format := dto.ExportFormat(strings.ToLower(c.DefaultQuery("format", string(dto.ExportFormatCSV))))
	file, err := h.exporter.Export(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// Create godoc
// @Summary Register a student
// @Tags Alumnos
// @Accept json
// @Produce json
// @Security BasicAuth
// @Param payload body dto.StudentRequest true "Student payload"
// @Success 201 {object} models.Student
// @Failure 400 {object} response.ErrorBody
// @Failure 409 {object} response.ErrorBody
// @Router /alumnos [post]
func (h *StudentHandler) Create(c *gin.Context) {
	req, err := h.bind(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.students.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Update godoc
// @Summary Update a student
// @Tags Alumnos
// @Accept json
// @Produce json
// @Security BasicAuth
// @Param id path int true "Student ID"
// @Param payload body dto.StudentRequest true "Student payload"
// @Success 200 {object} models.Student
// @Failure 400 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Failure 409 {object} response.ErrorBody
// @Router /alumnos/{id} [put]
func (h *StudentHandler) Update(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	req, err := h.bind(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.students.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, student)
}

// Delete godoc
// @Summary Delete a student
// @Tags Alumnos
// @Security BasicAuth
// @Param id path int true "Student ID"
// @Success 204
// @Failure 404 {object} response.ErrorBody
// @Router /alumnos/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.students.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *StudentHandler) bind(c *gin.Context) (dto.StudentRequest, error) {
	var req dto.StudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return req, appErrors.Clone(appErrors.ErrValidation, "malformed request body: "+err.Error())
	}
	if err := h.validate.Struct(req); err != nil {
		if fields := validation.Fields(err); fields != nil {
			return req, appErrors.Validation(fields)
		}
		return req, appErrors.Wrap(err, appErrors.ErrValidation, "invalid request")
	}
	return req, nil
}

func parseID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Validation(map[string]string{"id": "must be a positive integer"})
	}
	return id, nil
}

// parsePageRequest reads page, size and sort. Unparsable numbers fall back to their defaults.
func parsePageRequest(c *gin.Context) models.PageRequest {
	req := models.PageRequest{}
	if page, err := strconv.Atoi(c.Query("page")); err == nil {
		req.Page = page
	}
	if size, err := strconv.Atoi(c.Query("size")); err == nil {
		req.Size = size
	}

	// sort may be repeated; only the first value is honoured.
	if raw := strings.TrimSpace(c.Query("sort")); raw != "" {
		parts := strings.SplitN(raw, ",", 2)
		req.SortBy = strings.TrimSpace(parts[0])
		if len(parts) == 2 {
			req.SortDir = strings.TrimSpace(parts[1])
		}
	}
	return req.Normalize()
}
