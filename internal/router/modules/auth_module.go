package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/arjunpat/user-portal/internal/interface/http"
)

// AuthModule wires the public signup route.
type AuthModule struct {
	Handler *handlers.AuthHandler
}

func NewAuthModule(h *handlers.AuthHandler) *AuthModule {
	return &AuthModule{Handler: h}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	rg.POST("/signup", m.Handler.Signup)
}
