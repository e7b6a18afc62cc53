package api

import (
	"net/http"
	"time"

	"github.com/example/ec-cart/internal/api/middleware"
	"github.com/example/ec-cart/internal/auth"
	"github.com/example/ec-cart/internal/logger"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

// RouterConfig carries the HTTP concerns that come from configuration.
type RouterConfig struct {
	RequestTimeout time.Duration
	AllowedOrigins []string
}

func NewRouter(handlers *Handlers, authHandlers *AuthHandlers, tokens *auth.TokenService, cfg RouterConfig, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log.Component("HTTP")))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	requireAuth := middleware.AuthMiddleware(tokens)
	adminOnly := middleware.RequireRole(auth.RoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.OptionalAuthMiddleware(tokens)).Post("/signup", authHandlers.SignUp)
			r.Post("/signin", authHandlers.SignIn)
			r.Post("/signout", authHandlers.SignOut)
			r.With(requireAuth).Get("/me", authHandlers.Me)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", handlers.ListProducts)
			r.Get("/{productID}", handlers.GetProduct)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth, adminOnly)
				r.Post("/", handlers.CreateProduct)
				r.Patch("/{productID}", handlers.UpdateProduct)
				r.Delete("/{productID}", handlers.DeleteProduct)
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", handlers.ListCategories)
			r.Get("/{categoryID}", handlers.GetCategory)
			r.Get("/{categoryID}/products", handlers.GetProductsByCategory)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth, adminOnly)
				r.Post("/", handlers.CreateCategory)
				r.Delete("/{categoryID}", handlers.DeleteCategory)
			})
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", handlers.GetCart)
			r.Put("/", handlers.ReplaceCart)
			r.Delete("/", handlers.ClearCart)
			r.Post("/items", handlers.AddToCart)
			r.Patch("/items/{productID}", handlers.UpdateCartItem)
			r.Delete("/items/{productID}", handlers.RemoveFromCart)
		})

		r.Route("/carts", func(r chi.Router) {
			r.Use(requireAuth, adminOnly)
			r.Get("/", handlers.ListCarts)
			r.Get("/{cartID}", handlers.GetCartByID)
			r.Delete("/{cartID}/items/{productID}", handlers.RemoveCartItem)
		})
	})

	return r
}
