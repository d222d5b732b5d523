package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/constants"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/users/users/controller"
	authMiddleware "github.com/JBFaner/DisasterTraining-sub003/internals/middlewares/auth"
)

// UserAdminRoutes mounts account management. Staff may read; only admins write.
func UserAdminRoutes(admin fiber.Router, db *gorm.DB) {
	ctrl := controller.NewUserController(db)
	adminOnly := authMiddleware.OnlyRoles(constants.RoleErrorAdmin("user management"), constants.AdminOnly...)

	users := admin.Group("/users")
	users.Get("/", ctrl.List)
	users.Get("/:id", ctrl.Get)

	users.Post("/", adminOnly, ctrl.Create)
	users.Patch("/:id", adminOnly, ctrl.Update)
	users.Patch("/:id/activate", adminOnly, ctrl.Activate)
	users.Patch("/:id/deactivate", adminOnly, ctrl.Deactivate)
	users.Delete("/:id", adminOnly, ctrl.Delete)
	users.Post("/:id/usb-key", adminOnly, ctrl.EnrollUSBKey)
	users.Delete("/:id/usb-key", adminOnly, ctrl.RemoveUSBKey)
}

func UserUserRoutes(user fiber.Router, db *gorm.DB) {
	ctrl := controller.NewUserController(db)

	me := user.Group("/users/me")
	me.Get("/", ctrl.GetMe)
	me.Patch("/", ctrl.UpdateMe)
}
