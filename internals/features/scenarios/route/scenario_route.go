package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/features/scenarios/controller"
	"github.com/JBFaner/DisasterTraining-sub003/internals/middlewares"
)

// ScenarioUserRoutes exposes published scenarios read-only.
func ScenarioUserRoutes(user fiber.Router, db *gorm.DB) {
	ctrl := controller.NewScenarioController(db)

	g := user.Group("/scenarios")
	g.Get("/", ctrl.List)
	g.Get("/:id", ctrl.Get)
	g.Get("/:id/injects", ctrl.ListInjects)
}

func ScenarioAdminRoutes(admin fiber.Router, db *gorm.DB) {
	ctrl := controller.NewScenarioController(db)

	g := admin.Group("/scenarios")
	g.Post("/generate", middlewares.GenerateRateLimiter(), ctrl.Generate)

	g.Get("/", ctrl.List)
	g.Post("/", ctrl.Create)
	g.Get("/:id", ctrl.Get)
	g.Patch("/:id", ctrl.Update)
	g.Delete("/:id", ctrl.Delete)
	g.Patch("/:id/publish", ctrl.Publish)
	g.Patch("/:id/archive", ctrl.Archive)
	g.Patch("/:id/restore", ctrl.Restore)

	g.Get("/:id/injects", ctrl.ListInjects)
	g.Post("/:id/injects", ctrl.CreateInject)
	g.Patch("/:id/injects/:injectId", ctrl.UpdateInject)
	g.Delete("/:id/injects/:injectId", ctrl.DeleteInject)

	g.Post("/:id/actions", ctrl.CreateAction)
	g.Patch("/:id/actions/:actionId", ctrl.UpdateAction)
	g.Delete("/:id/actions/:actionId", ctrl.DeleteAction)
}
