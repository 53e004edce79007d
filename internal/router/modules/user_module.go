package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/arjunpat/user-portal/internal/interface/http"
)

// UserModule wires the admin portal routes:
// GET/POST /api/users, PUT/DELETE /api/users/:id, GET /api/users/search,
// GET /api/users/export, POST /api/upload, POST /api/users/import.
type UserModule struct {
	Handler *handlers.UserHandler
}

func NewUserModule(h *handlers.UserHandler) *UserModule {
	return &UserModule{Handler: h}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	{
		users.GET("", m.Handler.List)
		users.POST("", m.Handler.Create)
		users.GET("/search", m.Handler.Search)
		users.GET("/export", m.Handler.Export)
		users.POST("/import", m.Handler.ImportCSV)
		users.PUT("/:id", m.Handler.Update)
		users.DELETE("/:id", m.Handler.Delete)
	}
	rg.POST("/upload", m.Handler.Upload)
}
