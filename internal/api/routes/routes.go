// server/internal/api/routes/routes.go
package routes

import (
	"rl-express-api-server/config"
	"rl-express-api-server/internal/api/handlers"
	"rl-express-api-server/internal/api/middleware"
	"rl-express-api-server/internal/intake"
	"rl-express-api-server/internal/socket"
	"rl-express-api-server/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Dependencies carries everything the HTTP layer needs.
type Dependencies struct {
	Config   *config.Config
	Store    *store.Store
	Intake   *intake.Manager
	Uploader handlers.FileUploader
	Hub      *socket.Hub
	Log      *logrus.Logger
}

func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.Default()
	router.Use(cors.Default())

	authHandler := handlers.NewAuthHandler(deps.Config.JWT, deps.Config.Courier)
	deliveryHandler := handlers.NewDeliveryHandler(deps.Store)
	intakeHandler := handlers.NewIntakeHandler(deps.Intake)
	routeHandler := handlers.NewRouteHandler(deps.Store)
	proofHandler := handlers.NewProofHandler(deps.Store, deps.Uploader, deps.Log)
	historyHandler := handlers.NewHistoryHandler(deps.Store)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub, []byte(deps.Config.JWT.Secret), deps.Log)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/auth/login", authHandler.Login)
		v1.GET("/ws", wsHandler.Serve)

		protected := v1.Group("/")
		protected.Use(middleware.Authenticate([]byte(deps.Config.JWT.Secret)))
		{
			deliveries := protected.Group("/deliveries")
			{
				deliveries.GET("", deliveryHandler.List)
				deliveries.DELETE("/pending", deliveryHandler.ClearPending)
				deliveries.GET("/summary", deliveryHandler.Summary)
				deliveries.GET("/:id", deliveryHandler.Get)
				deliveries.PATCH("/:id", deliveryHandler.Update)
				deliveries.DELETE("/:id", deliveryHandler.Delete)
				deliveries.POST("/:id/cancel", deliveryHandler.Cancel)
				deliveries.POST("/:id/complete", proofHandler.Complete)
				deliveries.GET("/:id/receipt", proofHandler.Receipt)
				deliveries.GET("/:id/map-links", routeHandler.MapLinks)
			}

			intakeGroup := protected.Group("/intake")
			{
				intakeGroup.GET("", intakeHandler.List)
				intakeGroup.POST("/images", intakeHandler.AddImages)
				intakeGroup.POST("/manual", intakeHandler.AddManual)
				intakeGroup.PATCH("/items/:tempId", intakeHandler.UpdateItem)
				intakeGroup.DELETE("/items/:tempId", intakeHandler.RemoveItem)
				intakeGroup.POST("/items/:tempId/postal-lookup", intakeHandler.LookupPostalCode)
				intakeGroup.POST("/commit", intakeHandler.Commit)
				intakeGroup.POST("/draft/resume", intakeHandler.ResumeDraft)
				intakeGroup.POST("/draft/discard", intakeHandler.DiscardDraft)
			}

			routeGroup := protected.Group("/route")
			{
				routeGroup.GET("", routeHandler.Get)
				routeGroup.POST("/optimize", routeHandler.Optimize)
				routeGroup.POST("/reorder", routeHandler.Reorder)
			}

			history := protected.Group("/history")
			{
				history.GET("", historyHandler.List)
				history.GET("/export.csv", historyHandler.ExportCSV)
				history.GET("/export.xlsx", historyHandler.ExportExcel)
				history.GET("/share", historyHandler.ShareText)
			}

			settings := protected.Group("/settings")
			{
				settings.GET("/theme", deliveryHandler.GetTheme)
				settings.POST("/theme/toggle", deliveryHandler.ToggleTheme)
			}
		}
	}

	return router
}
