package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/anjiri1684/teacher_review/metrics"
	"github.com/anjiri1684/teacher_review/models"
	"github.com/anjiri1684/teacher_review/services"
	"github.com/anjiri1684/teacher_review/store"
	"github.com/anjiri1684/teacher_review/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const anonymousStudent = "Anonymous"

type ReviewRequest struct {
	TeacherID   string               `json:"teacherId" validate:"required"`
	StudentName string               `json:"studentName"`
	Comment     string               `json:"comment" validate:"required,min=10"`
	Metrics     models.ReviewMetrics `json:"metrics"`
	Rating      float64              `json:"rating"`
}

type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func ListReviews(c *fiber.Ctx) error {
	reviews := store.S.ReadReviews()
	c.Set("X-Collection-Version", strconv.FormatUint(store.S.ReviewsVersion(), 10))
	return c.JSON(reviews)
}

// ListReviewsForTeacher returns an empty list rather than an error when the
// teacher does not exist; a dangling teacherId is usually a navigation
// artifact, not a client fault.
func ListReviewsForTeacher(c *fiber.Ctx) error {
	teacherID := c.Params("teacherId")
	c.Set("X-Collection-Version", strconv.FormatUint(store.S.ReviewsVersion(), 10))

	if findTeacher(teacherID) == nil {
		return c.JSON([]models.Review{})
	}

	teacherReviews := []models.Review{}
	for _, r := range store.S.ReadReviews() {
		if r.TeacherID == teacherID {
			teacherReviews = append(teacherReviews, r)
		}
	}
	return c.JSON(teacherReviews)
}

func CreateReview(c *fiber.Ctx) error {
	var req ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	teacher := findTeacher(req.TeacherID)
	if teacher == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Cannot add review for non-existent teacher"})
	}

	studentName := req.StudentName
	if studentName == "" {
		studentName = anonymousStudent
	}
	rating := req.Rating
	if rating == 0 {
		rating = req.Metrics.Overall()
	}

	review := models.Review{
		ID:          uuid.NewString(),
		TeacherID:   teacher.ID,
		TeacherName: teacher.Name,
		StudentName: studentName,
		Comment:     req.Comment,
		Metrics:     req.Metrics,
		Rating:      rating,
		CreatedAt:   time.Now().UTC(),
		Status:      models.StatusPending,
		Sentiment:   services.Sentiment.Classify(req.Comment),
	}

	version, err := store.S.UpdateReviews(func(reviews []models.Review) ([]models.Review, error) {
		return append(reviews, review), nil
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to save review"})
	}

	metrics.MutationsTotal.WithLabelValues("reviews", "create").Inc()
	websocket.NotifyReviewUpdated(version)

	return c.Status(fiber.StatusCreated).JSON(review)
}

func UpdateReviewStatus(c *fiber.Ctx) error {
	id := c.Params("id")

	var req StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if !models.ValidStatus(req.Status) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Unknown review status: " + req.Status})
	}

	var updated models.Review
	version, err := store.S.UpdateReviews(func(reviews []models.Review) ([]models.Review, error) {
		for i, r := range reviews {
			if r.ID != id {
				continue
			}
			// Orphaned-review guard: a review whose teacher is gone
			// cannot change status.
			if findTeacher(r.TeacherID) == nil {
				return nil, errOrphaned
			}
			reviews[i].Status = req.Status
			updated = reviews[i]
			return reviews, nil
		}
		return nil, errNotFound
	})
	if errors.Is(err, errNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Review not found"})
	}
	if errors.Is(err, errOrphaned) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Cannot update review for deleted teacher"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to update review status"})
	}

	metrics.MutationsTotal.WithLabelValues("reviews", "status").Inc()
	websocket.NotifyReviewUpdated(version)

	return c.JSON(updated)
}

func DeleteReview(c *fiber.Ctx) error {
	id := c.Params("id")

	version, err := store.S.UpdateReviews(func(reviews []models.Review) ([]models.Review, error) {
		kept := reviews[:0]
		found := false
		for _, r := range reviews {
			if r.ID == id {
				found = true
				continue
			}
			kept = append(kept, r)
		}
		if !found {
			return nil, errNotFound
		}
		return kept, nil
	})
	if errors.Is(err, errNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Review not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to delete review"})
	}

	metrics.MutationsTotal.WithLabelValues("reviews", "delete").Inc()
	websocket.NotifyReviewUpdated(version)

	return c.JSON(fiber.Map{"message": "Review deleted successfully"})
}

var errOrphaned = errors.New("review references a deleted teacher")

func findTeacher(id string) *models.Teacher {
	for _, t := range store.S.ReadTeachers() {
		if t.ID == id {
			return &t
		}
	}
	return nil
}
