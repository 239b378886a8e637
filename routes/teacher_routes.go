package routes

import (
	"github.com/anjiri1684/teacher_review/handlers"
	"github.com/anjiri1684/teacher_review/middleware"
	"github.com/gofiber/fiber/v2"
)

func TeacherRoutes(app *fiber.App) {
	api := app.Group("/api")

	api.Get("/teachers", handlers.ListTeachers)
	api.Get("/teachers/:id", handlers.GetTeacher)

	admin := api.Group("/teachers", middleware.Protected(), middleware.AdminRequired())
	admin.Post("", handlers.CreateTeacher)
	admin.Post("/import", handlers.ImportTeachers)
	admin.Put("/:id", handlers.UpdateTeacher)
	admin.Delete("/:id", handlers.DeleteTeacher)
}
