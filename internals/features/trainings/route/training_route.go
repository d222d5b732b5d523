package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/features/trainings/controller"
)

// TrainingUserRoutes serves published modules and the caller's progress.
func TrainingUserRoutes(user fiber.Router, db *gorm.DB) {
	ctrl := controller.NewTrainingController(db)

	modules := user.Group("/training-modules")
	modules.Get("/", ctrl.ListModules)
	modules.Get("/:id", ctrl.GetModule)
	modules.Get("/:id/progress", ctrl.ModuleProgress)

	lessons := user.Group("/training-lessons")
	lessons.Get("/:lessonId", ctrl.GetLesson)
	lessons.Post("/:lessonId/complete", ctrl.CompleteLesson)

	user.Get("/training-progress", ctrl.MyProgress)
}

func TrainingAdminRoutes(admin fiber.Router, db *gorm.DB) {
	ctrl := controller.NewTrainingController(db)

	modules := admin.Group("/training-modules")
	modules.Get("/", ctrl.ListModules)
	modules.Post("/", ctrl.CreateModule)
	modules.Get("/:id", ctrl.GetModule)
	modules.Patch("/:id", ctrl.UpdateModule)
	modules.Delete("/:id", ctrl.DeleteModule)
	modules.Patch("/:id/publish", ctrl.PublishModule)
	modules.Patch("/:id/unpublish", ctrl.UnpublishModule)
	modules.Post("/:id/lessons", ctrl.CreateLesson)
	modules.Put("/:id/lessons/order", ctrl.ReorderLessons)

	lessons := admin.Group("/training-lessons")
	lessons.Get("/:lessonId", ctrl.GetLesson)
	lessons.Patch("/:lessonId", ctrl.UpdateLesson)
	lessons.Delete("/:lessonId", ctrl.DeleteLesson)
	lessons.Post("/:lessonId/materials", ctrl.UploadMaterial)

	admin.Delete("/lesson-materials/:materialId", ctrl.DeleteMaterial)
}
