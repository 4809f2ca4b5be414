package routes

import (
	"procurement-api-server/config"
	"procurement-api-server/internal/api/handlers"
	"procurement-api-server/internal/api/middleware"
	"procurement-api-server/internal/ledger"
	"procurement-api-server/internal/s3"
	"procurement-api-server/internal/socket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
)

// SetupRouter wires the handlers and route groups.
func SetupRouter(
	cfg config.Config,
	db *mongo.Database,
	s3Uploader *s3.Uploader,
	wsHub *socket.Hub,
) *gin.Engine {
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	store := ledger.NewStore(db)

	userHandler := &handlers.UserHandler{DB: db}
	roleHandler := &handlers.RoleHandler{DB: db}
	catalogHandler := &handlers.CatalogHandler{DB: db}
	requestHandler := &handlers.RequestHandler{Store: store, Hub: wsHub}
	exportHandler := &handlers.ExportHandler{DB: db, S3Uploader: s3Uploader, Prefix: cfg.S3.ExportPrefix}
	webSocketHandler := &handlers.WebSocketHandler{Hub: wsHub}

	apiV1 := router.Group("/api/v1")
	{
		apiV1.GET("/ws", webSocketHandler.ServeWs)

		auth := apiV1.Group("/auth")
		{
			auth.POST("/login", userHandler.Login)
		}

		// Administration, superadmin only
		admin := apiV1.Group("/admin")
		admin.Use(middleware.Authenticate())
		admin.Use(middleware.Authorize("superadmin"))
		{
			users := admin.Group("/users")
			{
				users.POST("/", userHandler.CreateUser)
				users.GET("/", userHandler.GetAllUsers)
				users.GET("/:email", userHandler.GetUserByEmail)
				users.PUT("/:email", userHandler.UpdateUser)
				users.DELETE("/:email", userHandler.DeleteUser)
			}

			roles := admin.Group("/roles")
			{
				roles.POST("/", roleHandler.CreateRole)
				roles.GET("/", roleHandler.GetAllRoles)
				roles.GET("/:id", roleHandler.GetRoleByID)
				roles.PUT("/:id/applications", roleHandler.AssignApplications)
				roles.DELETE("/:id", roleHandler.DeleteRole)
			}

			catalog := admin.Group("/products")
			{
				catalog.POST("/", catalogHandler.CreateProduct)
				catalog.PUT("/:sku", catalogHandler.UpdateProduct)
				catalog.DELETE("/:sku", catalogHandler.DeleteProduct)
			}
		}

		// Main business routes, any authenticated role
		businessRoutes := apiV1.Group("/")
		businessRoutes.Use(middleware.Authenticate())
		businessRoutes.Use(middleware.Authorize("requester", "admin", "superadmin"))
		{
			products := businessRoutes.Group("/products")
			{
				products.GET("/", catalogHandler.BrowseProducts)
				products.GET("/:sku", catalogHandler.GetProductBySKU)
			}

			requests := businessRoutes.Group("/requests")
			{
				requests.POST("/", requestHandler.SubmitRequest)
				requests.DELETE("/", requestHandler.RetractRequest)
				requests.GET("/", requestHandler.GetRequest)
				requests.GET("/activity", requestHandler.GetActivity)
			}

			// The downstream export runs with admin rights only
			exports := businessRoutes.Group("/exports")
			exports.Use(middleware.Authorize("admin", "superadmin"))
			{
				exports.POST("/:date", exportHandler.ExportDay)
			}
		}
	}

	return router
}
