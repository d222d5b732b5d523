package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/JBFaner/DisasterTraining-sub003/internals/features/certificates/controller"
)

// CertificatePublicRoutes exposes verification by number and code.
func CertificatePublicRoutes(public fiber.Router, db *gorm.DB) {
	ctrl := controller.NewCertificateController(db)
	public.Get("/certificates/verify", ctrl.Verify)
}

func CertificateUserRoutes(user fiber.Router, db *gorm.DB) {
	ctrl := controller.NewCertificateController(db)
	user.Get("/certificates/me", ctrl.MyCertificates)
	user.Get("/certificates/me/:id", ctrl.MyCertificate)
}

func CertificateAdminRoutes(admin fiber.Router, db *gorm.DB) {
	ctrl := controller.NewCertificateController(db)

	tpl := admin.Group("/certificate-templates")
	tpl.Get("/", ctrl.ListTemplates)
	tpl.Post("/", ctrl.CreateTemplate)
	tpl.Get("/:id", ctrl.GetTemplate)
	tpl.Patch("/:id", ctrl.UpdateTemplate)
	tpl.Delete("/:id", ctrl.DeleteTemplate)
	tpl.Post("/:id/background", ctrl.UploadBackground)
	tpl.Get("/:id/preview", ctrl.PreviewTemplate)

	certs := admin.Group("/certificates")
	certs.Get("/", ctrl.List)
	certs.Post("/", ctrl.Issue)
	certs.Post("/bulk", ctrl.BulkIssue)
	certs.Get("/:id", ctrl.Get)
	certs.Patch("/:id/revoke", ctrl.Revoke)
}
