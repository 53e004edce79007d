package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/arjunpat/user-portal/internal/application"
	"github.com/arjunpat/user-portal/pkg/helpers"
	"github.com/arjunpat/user-portal/pkg/response"
	"github.com/arjunpat/user-portal/pkg/validation"
)

// AuthHandler serves public signup and issues the session-token cookie.
type AuthHandler struct {
	Svc     *userapp.Service
	Logger  *logrus.Logger
	Cookies *helpers.Manager
}

func NewAuthHandler(svc *userapp.Service, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger, Cookies: helpers.NewCookie(cookieDomain, cookieSecure)}
}

type signupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required,strongpwd"`
	Dob      string `json:"dob" binding:"required"`
	Gender   string `json:"gender" binding:"required"`
	Website  string `json:"website"`
}

// Signup POST /api/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid fields", validation.ToDetails(err))
		return
	}

	res, err := h.Svc.Signup(c.Request.Context(), userapp.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Dob:      req.Dob,
		Gender:   req.Gender,
		Website:  req.Website,
	})
	if err != nil {
		var verr *userapp.ValidationError
		switch {
		case errors.As(err, &verr):
			response.Error[any](c, http.StatusBadRequest, "invalid fields", verr.Fields)
		case errors.Is(err, userapp.ErrEmailTaken):
			response.Error[any](c, http.StatusConflict, "user is already present", nil)
		default:
			h.Logger.WithError(err).Error("signup failed")
			response.Error[any](c, http.StatusInternalServerError, "internal server error", nil)
		}
		return
	}

	h.Cookies.SetSession(c, res.Token, res.TokenExpiry)
	response.Success(c, http.StatusCreated, gin.H{
		"id":    res.User.ID,
		"name":  res.User.Name,
		"email": res.User.Email,
	}, "user created successfully")
}
