package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/anjiri1684/teacher_review/metrics"
	"github.com/anjiri1684/teacher_review/models"
	"github.com/anjiri1684/teacher_review/store"
	"github.com/anjiri1684/teacher_review/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// maxPhotoBytes caps the encoded size of an embedded photo payload.
const maxPhotoBytes = 2_000_000

var errNotFound = errors.New("record not found")

type TeacherRequest struct {
	Name       string `json:"name" validate:"required"`
	Field      string `json:"field" validate:"required"`
	Experience int    `json:"experience" validate:"required,gte=0"`
	Bio        string `json:"bio" validate:"required"`
	Photo      string `json:"photo"`
}

// photoError validates an embedded or external photo reference and returns
// the rejection payload when it is unacceptable. Empty photos and external
// URLs pass; embedded payloads must be image data URLs under the size
// ceiling, rejected with the reported size otherwise.
func photoError(photo string) (fiber.Map, bool) {
	if photo == "" {
		return nil, false
	}
	if strings.HasPrefix(photo, "data:") && !strings.HasPrefix(photo, "data:image/") {
		return fiber.Map{
			"message": "Invalid image format. Must be a valid image data URL.",
		}, true
	}
	if len(photo) > maxPhotoBytes {
		return fiber.Map{
			"message": "Image is too large. Please use an image smaller than 2MB.",
			"details": fiber.Map{"imageSize": strconv.Itoa(len(photo)/1024) + "KB"},
		}, true
	}
	return nil, false
}

func ListTeachers(c *fiber.Ctx) error {
	teachers := store.S.ReadTeachers()
	c.Set("X-Collection-Version", strconv.FormatUint(store.S.TeachersVersion(), 10))
	return c.JSON(teachers)
}

func GetTeacher(c *fiber.Ctx) error {
	id := c.Params("id")
	for _, t := range store.S.ReadTeachers() {
		if t.ID == id {
			return c.JSON(t)
		}
	}
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Teacher not found"})
}

func CreateTeacher(c *fiber.Ctx) error {
	var req TeacherRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if payload, bad := photoError(req.Photo); bad {
		return c.Status(fiber.StatusBadRequest).JSON(payload)
	}

	teacher := models.Teacher{
		ID:         uuid.NewString(),
		Name:       req.Name,
		Field:      req.Field,
		Experience: req.Experience,
		Bio:        req.Bio,
		Photo:      req.Photo,
	}

	version, err := store.S.UpdateTeachers(func(teachers []models.Teacher) ([]models.Teacher, error) {
		return append(teachers, teacher), nil
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to save teacher"})
	}

	metrics.MutationsTotal.WithLabelValues("teachers", "create").Inc()
	websocket.NotifyTeacherUpdated(version)

	return c.Status(fiber.StatusCreated).JSON(teacher)
}

func UpdateTeacher(c *fiber.Ctx) error {
	id := c.Params("id")

	var req TeacherRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if payload, bad := photoError(req.Photo); bad {
		return c.Status(fiber.StatusBadRequest).JSON(payload)
	}

	var updated models.Teacher
	var oldName string
	version, err := store.S.UpdateTeachers(func(teachers []models.Teacher) ([]models.Teacher, error) {
		for i, t := range teachers {
			if t.ID != id {
				continue
			}
			oldName = t.Name
			photo := req.Photo
			if photo == "" {
				photo = t.Photo
			}
			updated = models.Teacher{
				ID:         id,
				Name:       req.Name,
				Field:      req.Field,
				Experience: req.Experience,
				Bio:        req.Bio,
				Photo:      photo,
			}
			teachers[i] = updated
			return teachers, nil
		}
		return nil, errNotFound
	})
	if errors.Is(err, errNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Teacher not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to save teacher"})
	}

	metrics.MutationsTotal.WithLabelValues("teachers", "update").Inc()

	// A rename invalidates the denormalized teacherName on every review of
	// this teacher.
	if oldName != updated.Name {
		repaired := 0
		reviewsVersion, rerr := store.S.UpdateReviews(func(reviews []models.Review) ([]models.Review, error) {
			for i, r := range reviews {
				if r.TeacherID == id {
					reviews[i].TeacherName = updated.Name
					repaired++
				}
			}
			if repaired == 0 {
				return nil, store.ErrAborted
			}
			return reviews, nil
		})
		if rerr == nil && repaired > 0 {
			websocket.NotifyReviewUpdated(reviewsVersion)
		}
	}

	websocket.NotifyTeacherUpdated(version)

	return c.JSON(updated)
}

func DeleteTeacher(c *fiber.Ctx) error {
	id := c.Params("id")

	var deleted models.Teacher
	version, err := store.S.UpdateTeachers(func(teachers []models.Teacher) ([]models.Teacher, error) {
		kept := teachers[:0]
		found := false
		for _, t := range teachers {
			if t.ID == id {
				deleted = t
				found = true
				continue
			}
			kept = append(kept, t)
		}
		if !found {
			return nil, errNotFound
		}
		return kept, nil
	})
	if errors.Is(err, errNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Teacher not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to delete teacher"})
	}

	// Cascade: drop every review referencing the deleted teacher. The
	// review_updated event fires only when reviews were actually removed.
	removed := 0
	reviewsVersion, rerr := store.S.UpdateReviews(func(reviews []models.Review) ([]models.Review, error) {
		kept := reviews[:0]
		for _, r := range reviews {
			if r.TeacherID == id {
				removed++
				continue
			}
			kept = append(kept, r)
		}
		if removed == 0 {
			return nil, store.ErrAborted
		}
		return kept, nil
	})

	metrics.MutationsTotal.WithLabelValues("teachers", "delete").Inc()
	websocket.NotifyTeacherUpdated(version)
	if rerr == nil && removed > 0 {
		websocket.NotifyReviewUpdated(reviewsVersion)
	}

	return c.JSON(fiber.Map{
		"message":        "Teacher and related reviews deleted successfully",
		"teacherDeleted": deleted.Name,
		"reviewsRemoved": removed,
	})
}

type ImportResult struct {
	Imported int      `json:"imported"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// ImportTeachers bulk-creates teachers. Invalid entries are skipped and
// reported; a single teacher_updated event covers the whole batch.
func ImportTeachers(c *fiber.Ctx) error {
	var reqs []TeacherRequest
	if err := c.BodyParser(&reqs); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Cannot parse JSON"})
	}
	if len(reqs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "No teachers to import"})
	}

	result := ImportResult{}
	batch := make([]models.Teacher, 0, len(reqs))
	for i, req := range reqs {
		if err := validate.Struct(req); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("entry %d: %v", i, err))
			continue
		}
		if _, bad := photoError(req.Photo); bad {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("entry %d: invalid or oversized photo", i))
			continue
		}
		batch = append(batch, models.Teacher{
			ID:         uuid.NewString(),
			Name:       req.Name,
			Field:      req.Field,
			Experience: req.Experience,
			Bio:        req.Bio,
			Photo:      req.Photo,
		})
	}

	if len(batch) > 0 {
		version, err := store.S.UpdateTeachers(func(teachers []models.Teacher) ([]models.Teacher, error) {
			return append(teachers, batch...), nil
		})
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to save imported teachers"})
		}
		result.Imported = len(batch)
		metrics.MutationsTotal.WithLabelValues("teachers", "import").Inc()
		websocket.NotifyTeacherUpdated(version)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}
