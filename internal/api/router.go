package api

import (
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// NewRouter serves the API over gin. A non-nil metrics handler is mounted at /metrics.
func NewRouter(h *Handler, metrics http.Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(), corsMiddleware())

	api := router.Group("/api")
	{
		api.GET("/activities", func(c *gin.Context) {
			respond(c)(h.GetActivities(c.Request.Context(), c.Query("useLiveData") == "true"))
		})
		api.GET("/activities/live", func(c *gin.Context) {
			respond(c)(h.GetLiveActivities(c.Request.Context()))
		})
		api.GET("/date-range", func(c *gin.Context) {
			respond(c)(h.GetDateRange())
		})
		api.POST("/subscribe", func(c *gin.Context) {
			body, err := io.ReadAll(c.Request.Body)
			if err != nil {
				c.JSON(http.StatusBadRequest, ResponseBody{Success: false, Message: "Invalid request body"})
				return
			}
			respond(c)(h.Subscribe(c.Request.Context(), body))
		})
		api.POST("/refresh", func(c *gin.Context) {
			respond(c)(h.TriggerRefresh(c.Request.Context()))
		})
	}

	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ResponseBody{Success: false, Error: "Not found"})
	})

	return router
}

func respond(c *gin.Context) func(ResponseBody, int) {
	return func(body ResponseBody, status int) {
		c.JSON(status, body)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		headers := c.Writer.Header()
		for k, v := range CORSHeaders {
			headers.Set(k, v)
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("[API] %s %s %d %dms", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Milliseconds())
	}
}
