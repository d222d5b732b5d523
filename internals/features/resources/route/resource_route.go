package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/constants"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/resources/controller"
	authMiddleware "github.com/JBFaner/DisasterTraining-sub003/internals/middlewares/auth"
)

// ResourceAdminRoutes mounts inventory for staff; deleting needs an admin.
func ResourceAdminRoutes(admin fiber.Router, db *gorm.DB) {
	ctrl := controller.NewResourceController(db)
	adminOnly := authMiddleware.OnlyRoles(constants.RoleErrorAdmin("deleting resources"), constants.AdminOnly...)

	res := admin.Group("/resources")
	res.Get("/", ctrl.List)
	res.Post("/", ctrl.Create)
	res.Get("/:id", ctrl.Get)
	res.Patch("/:id", ctrl.Update)
	res.Delete("/:id", adminOnly, ctrl.Delete)
	res.Post("/:id/assign", ctrl.Assign)
	res.Get("/:id/assignments", ctrl.ResourceAssignments)
	res.Get("/:id/maintenance", ctrl.ListMaintenance)
	res.Post("/:id/maintenance", ctrl.OpenMaintenance)

	assignments := admin.Group("/resource-assignments")
	assignments.Get("/", ctrl.ListAssignments)
	assignments.Patch("/:assignmentId/return", ctrl.Return)

	admin.Patch("/resource-maintenance/:logId/complete", ctrl.CompleteMaintenance)
}
