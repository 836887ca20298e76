package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"hivemind-backend/pkg/config"
	"hivemind-backend/pkg/utils"

	"go.uber.org/zap"
)

// Recovery 恢复中间件：捕获panic，记录堆栈并返回500
func Recovery(cfg *config.Config, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						zap.Any("panic", err),
						zap.String("path", r.URL.Path),
						zap.ByteString("stack", debug.Stack()),
					)

					if cfg.IsDevelopment() {
						// 开发环境把panic内容带回响应，方便排查
						utils.WriteErrorResponseWithCode(w, http.StatusInternalServerError,
							"INTERNAL_SERVER_ERROR",
							fmt.Sprintf("Internal server error: %v", err),
							string(debug.Stack()))
					} else {
						utils.WriteInternalServerErrorResponse(w, "Internal server error occurred")
					}
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
