package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/constants"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/audit/controller"
	authMiddleware "github.com/JBFaner/DisasterTraining-sub003/internals/middlewares/auth"
)

func AuditAdminRoutes(admin fiber.Router, db *gorm.DB) {
	ctrl := controller.NewAuditController(db)

	logs := admin.Group("/audit-logs",
		authMiddleware.OnlyRoles(constants.RoleErrorAdmin("audit logs"), constants.AdminOnly...),
	)
	logs.Get("/", ctrl.List)
}
