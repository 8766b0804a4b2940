package router

import (
	"github.com/wb-go/wbf/ginext"

	"github.com/shelfwatch/notifier/internal/api/handlers/notification"
	"github.com/shelfwatch/notifier/internal/middlewares"
)

func New(handler *notification.Handler) *ginext.Engine {
	e := ginext.New()
	e.Use(middlewares.CORSMiddleware())
	e.Use(ginext.Logger())
	e.Use(ginext.Recovery())

	api := e.Group("/api")
	{
		api.POST("/reminders", handler.Create)
		api.POST("/reminders/test", handler.Test)
		api.DELETE("/reminders/:subjectId", handler.Cancel)
		api.GET("/notifications", handler.List)
		api.GET("/notifications/:channel/:id/status", handler.GetStatus)
	}

	return e
}
