package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/features/barangays/controller"
)

// BarangayUserRoutes serves read access to any signed-in user.
func BarangayUserRoutes(user fiber.Router, db *gorm.DB) {
	ctrl := controller.NewBarangayController(db)

	g := user.Group("/barangays")
	g.Get("/", ctrl.List)
	g.Get("/:id", ctrl.Get)
}

func BarangayAdminRoutes(admin fiber.Router, db *gorm.DB) {
	ctrl := controller.NewBarangayController(db)

	g := admin.Group("/barangays")
	g.Get("/", ctrl.List)
	g.Get("/:id", ctrl.Get)
	g.Post("/", ctrl.Create)
	g.Patch("/:id", ctrl.Update)
	g.Delete("/:id", ctrl.Delete)
}
