package routes

import (
	"github.com/anjiri1684/teacher_review/handlers"
	"github.com/anjiri1684/teacher_review/middleware"
	"github.com/gofiber/fiber/v2"
)

func ReviewRoutes(app *fiber.App) {
	api := app.Group("/api")

	api.Get("/reviews", handlers.ListReviews)
	api.Get("/reviews/teacher/:teacherId", handlers.ListReviewsForTeacher)
	api.Post("/reviews", handlers.CreateReview)

	admin := api.Group("/reviews", middleware.Protected(), middleware.AdminRequired())
	admin.Patch("/:id/status", handlers.UpdateReviewStatus)
	admin.Delete("/:id", handlers.DeleteReview)
}
