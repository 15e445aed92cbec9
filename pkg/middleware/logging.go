package middleware

import (
	"fmt"
	"net/http"
	"time"

	"trace-crm-sync/pkg/config"

	"github.com/go-chi/chi/v5/middleware"
)

// Logger 创建日志中间件
func Logger(cfg *config.Config) func(http.Handler) http.Handler {
	// 统一使用Chi的默认日志中间件
	return middleware.Logger
}

// CustomLogger 自定义日志中间件
// 生产环境输出单行JSON，开发环境输出彩色日志
func CustomLogger(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start)

			userInfo := "anonymous"
			if user, ok := GetUserFromContext(r.Context()); ok && user != nil {
				userInfo = user.Email
			}

			if cfg.IsProduction() {
				fmt.Printf(`{"time":"%s","method":"%s","path":"%s","status":%d,"duration":"%s","user":"%s","ip":"%s"}`+"\n",
					time.Now().Format(time.RFC3339),
					r.Method,
					r.URL.Path,
					ww.Status(),
					duration,
					userInfo,
					getClientIP(r),
				)
				return
			}

			statusColor := getStatusColor(ww.Status())
			fmt.Printf("%s %s \033[36m%s\033[0m %s%d\033[0m %s %s\n",
				time.Now().Format("15:04:05"),
				r.Method,
				r.URL.Path,
				statusColor,
				ww.Status(),
				duration,
				userInfo,
			)
		})
	}
}

// getClientIP 获取客户端IP地址
func getClientIP(r *http.Request) string {
	// 代理/负载均衡器场景优先取转发头
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

// getStatusColor 根据HTTP状态码返回颜色代码
func getStatusColor(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "\033[32m" // 绿色
	case status >= 300 && status < 400:
		return "\033[33m" // 黄色
	case status >= 400 && status < 500:
		return "\033[31m" // 红色
	case status >= 500:
		return "\033[35m" // 紫色
	default:
		return "\033[0m"
	}
}
