package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/features/simulations/controller"
)

// SimulationPublicRoutes lists non-draft events without a login.
func SimulationPublicRoutes(public fiber.Router, db *gorm.DB) {
	ctrl := controller.NewSimulationController(db)

	events := public.Group("/simulation-events")
	events.Get("/", ctrl.ListEvents)
	events.Get("/:id", ctrl.GetEvent)
}

func SimulationUserRoutes(user fiber.Router, db *gorm.DB) {
	ctrl := controller.NewSimulationController(db)

	events := user.Group("/simulation-events")
	events.Get("/", ctrl.ListEvents)
	events.Get("/:id", ctrl.GetEvent)
	events.Post("/:id/register", ctrl.Register)
	events.Delete("/:id/register", ctrl.CancelRegistration)
	events.Post("/:id/check-in", ctrl.SelfCheckIn)
	events.Post("/:id/check-out", ctrl.SelfCheckOut)
	events.Get("/:id/attendance/me", ctrl.MyAttendance)

	user.Get("/simulation-registrations/me", ctrl.MyRegistrations)
}

func SimulationAdminRoutes(admin fiber.Router, db *gorm.DB) {
	ctrl := controller.NewSimulationController(db)

	events := admin.Group("/simulation-events")
	events.Get("/", ctrl.ListEvents)
	events.Post("/", ctrl.CreateEvent)
	events.Get("/:id", ctrl.GetEvent)
	events.Patch("/:id", ctrl.UpdateEvent)
	events.Delete("/:id", ctrl.DeleteEvent)
	events.Patch("/:id/publish", ctrl.PublishEvent)
	events.Patch("/:id/start", ctrl.StartEvent)
	events.Patch("/:id/complete", ctrl.CompleteEvent)
	events.Patch("/:id/cancel", ctrl.CancelEvent)

	events.Get("/:id/registrations", ctrl.ListRegistrations)
	events.Post("/:id/registrations", ctrl.RegisterOnBehalf)

	events.Get("/:id/attendance", ctrl.ListAttendance)
	events.Get("/:id/attendance/summary", ctrl.AttendanceSummary)
	events.Post("/:id/attendance/check-in", ctrl.CheckInParticipant)
	events.Post("/:id/attendance/check-out", ctrl.CheckOutParticipant)
	events.Post("/:id/attendance/bulk", ctrl.BulkMarkAttendance)

	regs := admin.Group("/simulation-registrations")
	regs.Patch("/:regId/approve", ctrl.ApproveRegistration)
	regs.Patch("/:regId/reject", ctrl.RejectRegistration)
}
