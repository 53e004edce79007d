package router

import (
	userapp "github.com/arjunpat/user-portal/internal/application"
	"github.com/arjunpat/user-portal/internal/container"
	pginfra "github.com/arjunpat/user-portal/internal/infrastructure/postgres"
	handlers "github.com/arjunpat/user-portal/internal/interface/http"
	"github.com/arjunpat/user-portal/internal/router/modules"
	"github.com/arjunpat/user-portal/pkg/helpers"
)

// InitModules builds every feature module from the container singletons and
// registers it. Called once at startup.
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	repo := pginfra.NewUserRepository(container.GetPGPool())

	service := userapp.NewService(
		repo,
		container.GetJWT(),
		container.GetRedis(),
		container.GetLogger(),
		container.GetES(),
		cfg.ESUsersIndex,
	)
	importer := userapp.NewImporter(repo, container.GetLogger(), helpers.HashPassword)

	userHandler := handlers.NewUserHandler(service, importer, container.GetLogger())
	authHandler := handlers.NewAuthHandler(service, container.GetLogger(), cfg.CookieDomain, cfg.CookieSecure)

	r.Add(modules.NewUserModule(userHandler))
	r.Add(modules.NewAuthModule(authHandler))
}
