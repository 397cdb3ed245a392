package rest

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/webtoz/internal/logging"
	"github.com/dmitrijs2005/webtoz/internal/server/models"
	"github.com/dmitrijs2005/webtoz/internal/server/ratelimit"
	"github.com/dmitrijs2005/webtoz/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const handlerTimeout = 30 * time.Second

// RouterOptions wires the router to its collaborators. Limiter and Avatars
// are optional; without them rate limiting and avatar uploads are off.
type RouterOptions struct {
	Auth        *services.AuthService
	Users       *services.UserService
	Avatars     *services.AvatarService
	Store       Pinger
	Limiter     ratelimit.Limiter
	Metrics     *Metrics
	Logger      logging.Logger
	CORSOrigin  string
	Environment string
}

func NewRouter(o RouterOptions) http.Handler {
	if o.Metrics == nil {
		o.Metrics = NewMetrics()
	}
	logger := o.Logger.With("module", "rest")
	v := newValidator()

	ah := &authHandler{auth: o.Auth, avatars: o.Avatars, validate: v, logger: logger}
	uh := &usersHandler{users: o.Users, validate: v, logger: logger}
	hh := &healthHandler{store: o.Store, environment: o.Environment, startedAt: time.Now()}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(o.Metrics.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{o.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Timeout(handlerTimeout))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		fail(w, http.StatusNotFound, fmt.Sprintf("Not found - %s", r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		fail(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})

	r.Get("/health", hh.health)
	r.Get("/health/detailed", hh.detailed)
	r.Handle("/metrics", o.Metrics.Handler())
	r.With(OptionalAuthenticate(o.Auth)).Get("/", hh.root)

	authenticate := Authenticate(o.Auth, logger)
	adminOnly := RequireRoles(models.RoleAdmin)

	r.Route("/api", func(r chi.Router) {
		if o.Limiter != nil {
			r.Use(RateLimit(o.Limiter, logger))
		}

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", ah.register)
			r.Post("/login", ah.login)
			r.Post("/forgot-password", ah.forgotPassword)
			r.Put("/reset-password/{token}", ah.resetPassword)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Post("/logout", ah.logout)
				r.Get("/me", ah.me)
				r.Put("/profile", ah.updateProfile)
				r.Put("/change-password", ah.changePassword)
				if o.Avatars != nil && o.Avatars.Enabled() {
					r.Post("/avatar", ah.avatarUpload)
				}
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(authenticate)
			r.With(adminOnly).Get("/stats", uh.stats)
			r.With(adminOnly).Get("/", uh.list)
			r.Get("/{id}", uh.get)
			r.Put("/{id}", uh.update)
			r.With(adminOnly).Delete("/{id}", uh.delete)
		})
	})

	return r
}
