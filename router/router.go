package router

import (
	"ppt-expansion-backend/controller"
	"ppt-expansion-backend/middleware"

	"github.com/gin-gonic/gin"
)

func Register() *gin.Engine {
	r := gin.Default()
	r.Use(middleware.CORSMiddleware())

	api := r.Group("/api")
	{
		public := api.Group("/user")
		{
			public.POST("/register", controller.UserRegister)
			public.POST("/login", controller.UserLogin)
		}

		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			protected.POST("/kb/document", controller.IngestDocument)
			protected.GET("/kb/documents", controller.GetDocuments)
			protected.GET("/kb/document/:id", controller.GetDocument)
			protected.DELETE("/kb/document", controller.PurgeDocument)

			protected.GET("/kb/search", controller.SearchChunks)
			protected.GET("/kb/stats", controller.GetStats)

			protected.PUT("/kb/document/:id/analysis", controller.UpdateGlobalAnalysis)
			protected.GET("/kb/document/:id/analyses", controller.ListPageAnalyses)
			protected.GET("/kb/document/:id/page/:page/analysis", controller.GetPageAnalysis)
			protected.PUT("/kb/document/:id/page/:page/analysis", controller.UpsertPageAnalysis)
		}
	}

	return r
}
