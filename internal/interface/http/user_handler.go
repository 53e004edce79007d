package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/arjunpat/user-portal/internal/application"
	"github.com/arjunpat/user-portal/pkg/response"
)

// UserHandler serves the admin portal: list, add, edit, delete, search,
// CSV export and the two bulk-import entry points.
type UserHandler struct {
	Svc      *userapp.Service
	Importer *userapp.Importer
	Logger   *logrus.Logger
}

func NewUserHandler(svc *userapp.Service, importer *userapp.Importer, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Importer: importer, Logger: logger}
}

type writeUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Dob      string `json:"dob"`
	Gender   string `json:"gender"`
	Website  string `json:"website"`
}

func (r writeUserRequest) input() userapp.WriteInput {
	return userapp.WriteInput{
		Name:     r.Name,
		Email:    r.Email,
		Password: r.Password,
		Dob:      r.Dob,
		Gender:   r.Gender,
		Website:  r.Website,
	}
}

// List GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.Svc.ListAll(c.Request.Context())
	if err != nil {
		h.Logger.WithError(err).Error("fetching users failed")
		response.Error[any](c, http.StatusInternalServerError, "error fetching users", nil)
		return
	}
	response.Success(c, http.StatusOK, users, "users")
}

// Create POST /api/users
func (h *UserHandler) Create(c *gin.Context) {
	var req writeUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", nil)
		return
	}
	u, err := h.Svc.Create(c.Request.Context(), req.input())
	if err != nil {
		h.writeError(c, err, "error adding user")
		return
	}
	response.Success(c, http.StatusCreated, u, "user added successfully")
}

// Update PUT /api/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	var req writeUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", nil)
		return
	}
	u, err := h.Svc.Update(c.Request.Context(), c.Param("id"), req.input())
	if err != nil {
		h.writeError(c, err, "error updating user")
		return
	}
	response.Success(c, http.StatusOK, u, "user updated successfully")
}

// Delete DELETE /api/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err, "error deleting user")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true}, "user deleted successfully")
}

// Search GET /api/users/search?q=&size=
func (h *UserHandler) Search(c *gin.Context) {
	q := c.Query("q")
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	hits, err := h.Svc.Search(c.Request.Context(), q, size)
	if err != nil {
		h.Logger.WithError(err).Error("user search failed")
		response.Error[any](c, http.StatusInternalServerError, "search failed", nil)
		return
	}
	response.Success(c, http.StatusOK, hits, "search results")
}

// Export GET /api/users/export
func (h *UserHandler) Export(c *gin.Context) {
	csvText, err := h.Svc.ExportCSV(c.Request.Context())
	if err != nil {
		h.Logger.WithError(err).Error("csv export failed")
		response.Error[any](c, http.StatusInternalServerError, "error exporting users", nil)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="users.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(csvText))
}

// Upload POST /api/upload
// Accepts a JSON array of candidate records that a client parsed out of a
// CSV file. Anything other than an array is a 400.
func (h *UserHandler) Upload(c *gin.Context) {
	var candidates []userapp.Candidate
	if err := c.ShouldBindJSON(&candidates); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid data format", nil)
		return
	}
	h.runImport(c, func() (*userapp.ImportResult, error) {
		return h.Importer.ImportRecords(c.Request.Context(), candidates)
	})
}

// ImportCSV POST /api/users/import
// Accepts raw CSV text, either as the request body or as a multipart "file"
// part, and runs the full server-side ingestion pipeline.
func (h *UserHandler) ImportCSV(c *gin.Context) {
	text, err := readCSVBody(c)
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "could not read csv body", nil)
		return
	}
	h.runImport(c, func() (*userapp.ImportResult, error) {
		return h.Importer.ImportCSV(c.Request.Context(), text)
	})
}

func (h *UserHandler) runImport(c *gin.Context, run func() (*userapp.ImportResult, error)) {
	result, err := run()
	if err != nil {
		switch {
		case errors.Is(err, userapp.ErrNoData),
			errors.Is(err, userapp.ErrMissingHeaders),
			errors.Is(err, userapp.ErrNoValidRows):
			response.Error[any](c, http.StatusBadRequest, err.Error(), nil)
		default:
			h.Logger.WithError(err).Error("bulk upload failed")
			response.Error[any](c, http.StatusInternalServerError, "error inserting users", nil)
		}
		return
	}
	h.Svc.InvalidateListCache(c.Request.Context())
	response.Success(c, http.StatusOK, result, "users uploaded successfully")
}

func readCSVBody(c *gin.Context) (string, error) {
	if file, err := c.FormFile("file"); err == nil {
		f, err := file.Open()
		if err != nil {
			return "", err
		}
		defer func() { _ = f.Close() }()
		b, err := io.ReadAll(f)
		return string(b), err
	}
	b, err := io.ReadAll(c.Request.Body)
	return string(b), err
}

func (h *UserHandler) writeError(c *gin.Context, err error, fallback string) {
	var verr *userapp.ValidationError
	switch {
	case errors.As(err, &verr):
		response.Error[any](c, http.StatusBadRequest, "invalid fields", verr.Fields)
	case errors.Is(err, userapp.ErrUserNotFound):
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
	case errors.Is(err, userapp.ErrEmailTaken):
		response.Error[any](c, http.StatusConflict, "user is already present", nil)
	default:
		h.Logger.WithError(err).Error(fallback)
		response.Error[any](c, http.StatusInternalServerError, fallback, nil)
	}
}
