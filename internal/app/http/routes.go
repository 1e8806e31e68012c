package routes

import (
	"log/slog"
	"net/http"

	adminapi "realestate-app/internal/api/admin"
	authapi "realestate-app/internal/api/auth"
	listingsapi "realestate-app/internal/api/listings"
	"realestate-app/internal/app/http/middleware"
	"realestate-app/internal/domain/users"

	"github.com/gin-gonic/gin"
)

type Deps struct {
	Logger    *slog.Logger
	JWTSecret []byte
	Listings  *listingsapi.Handler
	Admin     *adminapi.Handler
	Auth      *authapi.Handler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.Use(middleware.RequestLogger(d.Logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	public := r.Group("/api")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())

	public.POST("/objects", d.Listings.ListObjects)
	public.POST("/objects/favorites", d.Listings.ShortInfo)
	public.GET("/objects/:id", d.Listings.GetObject)
	public.GET("/photos/:id", d.Listings.GetPhoto)

	public.POST("/register", d.Auth.Register)
	public.POST("/login", d.Auth.Login)

	if d.Auth.Google != nil {
		public.GET("/auth/google", d.Auth.GoogleStart)
		public.GET("/auth/google/callback", d.Auth.GoogleCallback)
	}

	// Authenticated
	auth := r.Group("/api")
	auth.Use(middleware.AuthMiddleware(d.JWTSecret), middleware.RequireRole(users.RoleAdmin))
	auth.GET("/protected", d.Auth.Protected)

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(
		middleware.AuthMiddleware(d.JWTSecret),
		middleware.RequireRole(users.RoleAdmin),
		middleware.SanitizeAndCleanInputMiddleware(),
	)
	admin.POST("/add-object-with-photos", d.Admin.AddObjectWithPhotos)
	admin.POST("/objects/:id/photos", d.Admin.AddPhoto)
	admin.PATCH("/change-status/:id", d.Admin.ChangeStatus)
}
