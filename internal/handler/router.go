package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/civreg-api/internal/middleware"
	"github.com/noah-isme/civreg-api/internal/models"
	"github.com/noah-isme/civreg-api/internal/repository"
	"github.com/noah-isme/civreg-api/internal/service"
)

// Routes bundles every handler the API gateway mounts.
type Routes struct {
	Auth         *AuthHandler
	Births       *BirthHandler
	Marriages    *MarriageHandler
	Deaths       *DeathHandler
	Certificates *CertificateHandler
	Offices      *OfficeHandler
	Users        *UserHandler
	Citizens     *CitizenHandler
	Stats        *StatsHandler
	XMLReports   *XMLReportHandler
	Exports      *ExportHandler
	Audit        *AuditHandler
	Metrics      *MetricsHandler

	AuthService *service.AuthService
	UserRepo    *repository.UserRepository
}

// RegisterRoutes mounts the API surface under prefix. Authorization is
// enforced twice: route-level middleware rejects the obviously wrong role
// early, and the services re-check the actor against the record's office
// scope.
func RegisterRoutes(r *gin.Engine, prefix string, rt Routes) {
	r.GET("/health", rt.Metrics.Health)
	r.GET("/ready", rt.Metrics.Health)
	r.GET("/metrics", rt.Metrics.Prometheus)

	api := r.Group(prefix)

	auth := api.Group("/auth")
	auth.POST("/login", rt.Auth.Login)
	auth.POST("/refresh", rt.Auth.Refresh)

	authed := api.Group("")
	authed.Use(middleware.JWT(rt.AuthService))
	authed.POST("/auth/logout", rt.Auth.Logout)
	authed.POST("/auth/change-password", rt.Auth.ChangePassword)
	authed.GET("/auth/me", rt.Auth.Me)

	// Signed token in the path is the credential for export downloads.
	api.GET("/exports/:token", rt.Exports.Download)

	scoped := api.Group("")
	scoped.Use(middleware.JWT(rt.AuthService), middleware.LoadActor(rt.UserRepo))

	staff := scoped.Group("")
	staff.Use(middleware.RequireRoles(models.RoleRegistrar, models.RoleClerk))

	births := staff.Group("/births")
	births.GET("", rt.Births.List)
	births.GET("/:id", rt.Births.Get)
	births.POST("", rt.Births.Create)
	births.PUT("/:id", rt.Births.Update)
	births.DELETE("/:id", rt.Births.Delete)

	marriages := staff.Group("/marriages")
	marriages.GET("", rt.Marriages.List)
	marriages.GET("/:id", rt.Marriages.Get)
	marriages.POST("", rt.Marriages.Create)
	marriages.PUT("/:id", rt.Marriages.Update)
	marriages.DELETE("/:id", rt.Marriages.Delete)

	deaths := staff.Group("/deaths")
	deaths.GET("", rt.Deaths.List)
	deaths.GET("/:id", rt.Deaths.Get)
	deaths.POST("", rt.Deaths.Create)
	deaths.PUT("/:id", rt.Deaths.Update)
	deaths.DELETE("/:id", rt.Deaths.Delete)

	certificates := staff.Group("/certificates")
	certificates.GET("", rt.Certificates.List)
	certificates.GET("/by-record", rt.Certificates.ByRecord)
	certificates.GET("/:id", rt.Certificates.Get)
	certificates.GET("/:id/download", rt.Certificates.Download)
	certificates.POST("", rt.Certificates.Issue)
	certificates.PUT("/:id", rt.Certificates.Update)
	certificates.DELETE("/:id", rt.Certificates.Delete)

	staff.GET("/citizens", rt.Citizens.List)
	staff.GET("/offices", rt.Offices.List)
	staff.GET("/offices/regions", rt.Offices.Regions)
	staff.GET("/offices/:id", rt.Offices.Get)

	stats := staff.Group("/stats")
	stats.GET("/births", rt.Stats.BirthsByRegion)
	stats.GET("/deaths", rt.Stats.DeathsByAge)
	stats.GET("/marriages", rt.Stats.MarriagesByRegion)
	stats.GET("/demographics", rt.Stats.Demographics)
	stats.GET("/completeness", rt.Stats.Completeness)
	stats.GET("/annual", rt.Stats.AnnualSummary)
	stats.GET("/dashboard", rt.Stats.Dashboard)

	reports := staff.Group("/reports/xml")
	reports.GET("/citizens/:id", rt.XMLReports.Citizen)
	reports.GET("/regions/:region", rt.XMLReports.Regional)
	reports.GET("/monthly", rt.XMLReports.Monthly)
	reports.GET("/vital-statistics", rt.XMLReports.VitalStatistics)

	staff.POST("/exports", rt.Exports.Generate)
	staff.POST("/imports", rt.Exports.Import)

	admin := scoped.Group("")
	admin.Use(middleware.RequireSystemAdmin())
	admin.POST("/citizens/sync", rt.Citizens.Rebuild)
	admin.POST("/offices", rt.Offices.Create)
	admin.PUT("/offices/:id", rt.Offices.Update)
	admin.DELETE("/offices/:id", rt.Offices.Delete)
	admin.GET("/audit-logs", rt.Audit.List)

	users := scoped.Group("/users")
	users.GET("", middleware.RequireSystemAdmin(), rt.Users.List)
	users.POST("", middleware.RequireSystemAdmin(), rt.Users.Create)
	users.GET("/:id", middleware.RBAC("SELF"), rt.Users.Get)
	users.PUT("/:id", middleware.RequireSystemAdmin(), rt.Users.Update)
	users.POST("/:id/approve", middleware.RequireSystemAdmin(), rt.Users.Approve)
	users.POST("/:id/revoke", middleware.RequireSystemAdmin(), rt.Users.Revoke)
}
