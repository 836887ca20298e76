package api

import (
	"fmt"
	"net/http"
	"time"

	"hivemind-backend/pkg/approval"
	"hivemind-backend/pkg/config"
	"hivemind-backend/pkg/database"
	"hivemind-backend/pkg/handlers"
	customMiddleware "hivemind-backend/pkg/middleware"
	"hivemind-backend/pkg/routing"
	"hivemind-backend/pkg/spaces"
	"hivemind-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps 路由器需要的全部已构造依赖
type Deps struct {
	Store           database.Store
	Manager         *spaces.Manager
	Engine          *routing.Engine
	ApprovalService *approval.Service
}

// NewRouter assembles the Chi router: global middleware, health and
// metrics surfaces, and the authenticated /api group.
func NewRouter(cfg *config.Config, logger *zap.Logger, deps Deps) *chi.Mux {
	router := chi.NewRouter()
	setupMiddleware(router, cfg, logger)
	setupRoutes(router, cfg, logger, deps)
	return router
}

// setupMiddleware 设置全局中间件
func setupMiddleware(router *chi.Mux, cfg *config.Config, logger *zap.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(customMiddleware.RequestLogger(logger))
	router.Use(customMiddleware.Recovery(cfg, logger))

	router.Use(customMiddleware.CORS(cfg))

	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(middleware.Compress(5))

	if cfg.IsDevelopment() {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

// setupRoutes 设置所有API路由
func setupRoutes(router *chi.Mux, cfg *config.Config, logger *zap.Logger, deps Deps) {
	usersHandler := handlers.NewUsersHandler(cfg, deps.Manager)
	spacesHandler := handlers.NewSpacesHandler(deps.Manager, deps.Store)
	routingHandler := handlers.NewRoutingHandler(deps.Engine, deps.Store, logger)
	approvalsHandler := handlers.NewApprovalsHandler(deps.ApprovalService)

	// 健康检查
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		if err := deps.Store.HealthCheck(); err != nil {
			status = "degraded"
		}
		utils.WriteSuccessResponse(w, map[string]interface{}{
			"service": "hivemind-backend",
			"status":  status,
		})
	})

	// Prometheus指标
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api", func(r chi.Router) {
		// 公开路由：注册（同时签发开发用token）与模板目录
		r.Post("/users", usersHandler.CreateUser)
		r.Get("/templates", spacesHandler.ListTemplates)

		// 需要认证的路由
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.AuthMiddleware(cfg))

			r.Get("/me", usersHandler.GetMe)
			r.Put("/me/consent", usersHandler.UpdateConsent)

			r.Route("/spaces", func(r chi.Router) {
				r.Get("/", spacesHandler.ListMySpaces)
				r.Post("/", spacesHandler.CreateSpace)
				r.Post("/join", spacesHandler.JoinByInviteCode)
				r.Get("/{spaceID}", spacesHandler.GetSpace)
				r.Post("/{spaceID}/join", spacesHandler.JoinSpace)
				r.Post("/{spaceID}/leave", spacesHandler.LeaveSpace)
				r.Get("/{spaceID}/members", spacesHandler.GetMembers)
				r.Put("/{spaceID}/policy", spacesHandler.UpdatePolicy)
				r.Get("/{spaceID}/documents", spacesHandler.ListDocuments)
			})

			r.Post("/route", routingHandler.RouteTurn)

			r.Route("/approvals", func(r chi.Router) {
				r.Get("/", approvalsHandler.List)
				r.Post("/{approvalID}/approve", approvalsHandler.Approve)
				r.Post("/{approvalID}/reject", approvalsHandler.Reject)
			})
		})
	})

	// 404处理
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.Path))
	})

	// 405处理
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteErrorResponseWithCode(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path), "")
	})
}
