package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/signalrelay/authgate/api/handler"
)

type Handlers struct {
	Signup  *apiHandler.SignupHandler
	Profile *apiHandler.ProfileHandler
	Health  *apiHandler.HealthHandler
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	r.POST("/auth/signup", handlers.Signup.Signup)

	// Bearer-protected profile surface
	r.GET("/user/profile", authMiddleware(handlers.Profile.GetProfile))
	r.PUT("/user/profile", authMiddleware(handlers.Profile.UpdateProfile))

	return r
}
