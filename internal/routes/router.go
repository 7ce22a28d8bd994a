// Package routesはroutingを行います。
package routes

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"task-manager/backend/internal/config"
	"task-manager/backend/internal/handlers"
	"task-manager/backend/internal/services"
)

// SetupRouter はGinルーターをセットアップし、すべてのエンドポイントを登録します。
func SetupRouter(cfg *config.Config, taskService *services.TaskService) *gin.Engine {
	r := gin.Default()

	// CORS対策
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", RequestIDHeader}
	corsConfig.ExposeHeaders = []string{RequestIDHeader}
	r.Use(cors.New(corsConfig))
	r.Use(RequestIDMiddleware())

	// ハンドラー
	taskHandler := handlers.NewTaskHandler(taskService)

	// ルーティング
	api := r.Group("/api")
	{
		api.GET("/health", taskHandler.HealthHandler)
		api.GET("/tasks", taskHandler.GetTasksHandler)
		api.GET("/tasks/:id", taskHandler.GetTaskByIDHandler)
		api.POST("/tasks", taskHandler.CreateTaskHandler)
		api.PUT("/tasks/:id", taskHandler.UpdateTaskHandler)
		api.DELETE("/tasks/:id", taskHandler.DeleteTaskHandler)
	}

	if cfg.AppEnv == config.EnvProduction {
		r.NoRoute(spaHandler(cfg.StaticDir))
	} else {
		r.NoRoute(notFoundHandler)
	}

	return r
}

func notFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"message": "Not Found"})
}

// spaHandler はビルド済みのフロントエンドを配信します。
// 存在しないパスは index.html を返し、クライアント側のルーティングに任せます。
func spaHandler(dir string) gin.HandlerFunc {
	index := filepath.Join(dir, "index.html")
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/") || (c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
			notFoundHandler(c)
			return
		}

		file := filepath.Join(dir, filepath.FromSlash(filepath.Clean("/"+path)))
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			c.File(file)
			return
		}
		c.File(index)
	}
}
