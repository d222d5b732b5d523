package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/features/dashboard/controller"
)

func DashboardAdminRoutes(admin fiber.Router, db *gorm.DB) {
	ctrl := controller.NewDashboardController(db)
	admin.Get("/dashboard", ctrl.Summary)
}
