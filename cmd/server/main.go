package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"trace-crm-sync/pkg/auth"
	"trace-crm-sync/pkg/config"
	"trace-crm-sync/pkg/crm"
	"trace-crm-sync/pkg/handlers"
	customMiddleware "trace-crm-sync/pkg/middleware"
	"trace-crm-sync/pkg/store"
	"trace-crm-sync/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	cfg := config.GetCached()
	if err := cfg.Validate(); err != nil {
		fmt.Printf("❌ Configuration error: %v\n", err)
		os.Exit(1)
	}

	sharedStore, err := store.GetSharedStore(store.Config{
		UseLocalStore: cfg.UseLocalStore,
		DataDir:       cfg.DataDir,
		PostgresDSN:   cfg.PostgresDSN,
		Debug:         cfg.Debug,
	})
	if err != nil {
		fmt.Printf("❌ Failed to initialize store: %v\n", err)
		os.Exit(1)
	}
	defer sharedStore.Close()

	authService := auth.NewService(cfg, sharedStore)
	crmService := crm.NewService(sharedStore)

	router := chi.NewRouter()
	setupMiddleware(router, cfg)
	setupRoutes(router, cfg, authService, crmService)

	addr := ":" + cfg.Port
	fmt.Printf("🚀 trace-crm-sync listening on %s (%s)\n", addr, cfg.Environment)
	if err := http.ListenAndServe(addr, router); err != nil {
		fmt.Printf("❌ Server stopped: %v\n", err)
		os.Exit(1)
	}
}

// setupMiddleware 设置全局中间件
func setupMiddleware(router *chi.Mux, cfg *config.Config) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	// Normalize path and restore scheme/host before logging and routing
	router.Use(customMiddleware.Normalize())
	router.Use(customMiddleware.Logger(cfg))
	router.Use(customMiddleware.Recovery(cfg))
	router.Use(customMiddleware.CORS(cfg))
	router.Use(middleware.Timeout(25 * time.Second))
	router.Use(middleware.Compress(5))

	if cfg.IsDevelopment() {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

// setupRoutes 设置所有API路由
func setupRoutes(router *chi.Mux, cfg *config.Config, authService *auth.Service, crmService *crm.Service) {
	authHandler := handlers.NewAuthHandler(cfg, authService)
	leadsHandler := handlers.NewLeadsHandler(crmService)
	tasksHandler := handlers.NewTasksHandler(crmService)
	workspaceHandler := handlers.NewWorkspaceHandler(crmService)
	billingHandler := handlers.NewBillingHandler(authService)
	realtimeHandler := handlers.NewRealtimeHandler(crmService)

	requireAuth := customMiddleware.AuthMiddleware(authService.JWT())

	// 健康检查端点
	router.Get("/", authHandler.HealthCheck)
	router.Get("/api/health", authHandler.HealthCheck)

	router.Route("/api", func(r chi.Router) {
		// 公开路由（不需要认证）
		r.Route("/auth", func(r chi.Router) {
			r.Use(customMiddleware.ContentTypeJSON)
			r.Use(customMiddleware.MaxBodySize(1 << 20)) // 1MB

			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/google", authHandler.GoogleLogin)
			r.Post("/refresh", authHandler.RefreshToken)
			r.Post("/logout", authHandler.Logout)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/profile", authHandler.Profile)
			})
		})

		// 受保护的数据路由
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Route("/leads", func(r chi.Router) {
				r.Get("/", leadsHandler.List)
				r.Get("/export", leadsHandler.ExportCSV)
				// CSV import takes a raw text/csv body, so it skips the
				// JSON content-type gate below
				r.With(customMiddleware.MaxBodySize(8 << 20)).Post("/import", leadsHandler.ImportCSV)

				r.Group(func(r chi.Router) {
					r.Use(customMiddleware.ContentTypeJSON)
					r.Use(customMiddleware.MaxBodySize(1 << 20))
					r.Post("/", leadsHandler.Create)
					r.Patch("/{id}", leadsHandler.Update)
					r.Post("/{id}/stage", leadsHandler.Move)
				})
				r.Delete("/{id}", leadsHandler.Delete)
			})

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", tasksHandler.List)
				r.Group(func(r chi.Router) {
					r.Use(customMiddleware.ContentTypeJSON)
					r.Use(customMiddleware.MaxBodySize(1 << 20))
					r.Post("/", tasksHandler.Create)
					r.Patch("/{id}", tasksHandler.Update)
					r.Post("/{id}/status", tasksHandler.Move)
					r.Post("/{id}/reschedule", tasksHandler.Reschedule)
				})
				r.Delete("/{id}", tasksHandler.Delete)
			})

			r.Route("/workspace", func(r chi.Router) {
				r.Get("/", workspaceHandler.Get)
				r.Get("/templates", workspaceHandler.Templates)
				r.Get("/settings", workspaceHandler.GetSettings)
				r.Get("/project-name", workspaceHandler.GetProjectName)
				r.Group(func(r chi.Router) {
					r.Use(customMiddleware.ContentTypeJSON)
					r.Put("/settings", workspaceHandler.UpdateSettings)
					r.Put("/project-name", workspaceHandler.RenameProject)
				})
			})

			r.Route("/billing", func(r chi.Router) {
				r.Get("/plans", billingHandler.Plans)
				r.Get("/current", billingHandler.CurrentPlan)
				r.With(customMiddleware.ContentTypeJSON).Put("/current", billingHandler.ChangePlan)
			})

			r.Post("/realtime/ticket", realtimeHandler.IssueTicket)
		})

		// Websocket upgrade authenticates via one-shot ticket, not JWT header
		r.Get("/realtime/ws", realtimeHandler.ServeWS)
	})

	// 404/405
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, "Endpoint not found: "+r.URL.Path)
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed: "+r.Method)
	})
}
