package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/constants"
	"github.com/JBFaner/DisasterTraining-sub003/internals/features/evaluations/controller"
	authMiddleware "github.com/JBFaner/DisasterTraining-sub003/internals/middlewares/auth"
)

// EvaluationUserRoutes mounts scoring for evaluators and above, plus the
// participant's own results.
func EvaluationUserRoutes(user fiber.Router, db *gorm.DB) {
	ctrl := controller.NewEvaluationController(db)

	user.Get("/evaluation-results/me", ctrl.MyResults)

	ev := user.Group("/evaluations",
		authMiddleware.OnlyRoles(constants.RoleErrorEvaluator("evaluations"), constants.EvaluatorAndAbove...))
	ev.Get("/", ctrl.List)
	ev.Post("/", ctrl.Create)
	ev.Get("/:id", ctrl.Get)
	ev.Patch("/:id", ctrl.Update)
	ev.Delete("/:id", ctrl.Delete)
	ev.Get("/:id/participants", ctrl.Participants)
	ev.Post("/:id/scores", ctrl.SubmitScores)
	ev.Get("/:id/results", ctrl.Results)
	ev.Get("/:id/results/:userId", ctrl.Result)
	ev.Patch("/:id/finalize", ctrl.Finalize)
}
