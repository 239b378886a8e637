package handlers_test

import (
	"net/http"
	"testing"

	"github.com/anjiri1684/teacher_review/models"
	"github.com/anjiri1684/teacher_review/store"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCreateReviewReferentialGuard(t *testing.T) {
	Convey("Given an empty teacher collection", t, func() {
		app := newTestApp(t)

		Convey("A review for a nonexistent teacher is rejected and not stored", func() {
			code, _ := doReq(t, app, http.MethodPost, "/api/reviews", "", map[string]any{
				"teacherId": "ghost",
				"comment":   "A thoroughly helpful teacher",
				"metrics":   defaultMetrics(),
			})
			So(code, ShouldEqual, http.StatusNotFound)

			var reviews []models.Review
			doList(t, app, "/api/reviews", &reviews)
			So(reviews, ShouldBeEmpty)
		})
	})
}

func TestCreateReviewDefaults(t *testing.T) {
	Convey("Given a teacher", t, func() {
		app := newTestApp(t)
		token := login(t, app)
		t1 := createTeacher(t, app, token, "Dr. A")

		Convey("A submission without a rating gets the metric mean", func() {
			code, body := doReq(t, app, http.MethodPost, "/api/reviews", "", map[string]any{
				"teacherId": t1,
				"comment":   "A thoroughly helpful teacher",
				"metrics":   defaultMetrics(),
			})
			So(code, ShouldEqual, http.StatusCreated)
			So(body["rating"], ShouldEqual, 4.2)
			So(body["status"], ShouldEqual, models.StatusPending)
			So(body["sentiment"], ShouldEqual, models.SentimentNeutral)
			So(body["studentName"], ShouldEqual, "Anonymous")
			So(body["teacherName"], ShouldEqual, "Dr. A")
		})

		Convey("A client-supplied teacherName is overwritten", func() {
			code, body := doReq(t, app, http.MethodPost, "/api/reviews", "", map[string]any{
				"teacherId":   t1,
				"teacherName": "Impostor",
				"comment":     "A thoroughly helpful teacher",
				"metrics":     defaultMetrics(),
			})
			So(code, ShouldEqual, http.StatusCreated)
			So(body["teacherName"], ShouldEqual, "Dr. A")
		})

		Convey("A too-short comment is rejected", func() {
			code, _ := doReq(t, app, http.MethodPost, "/api/reviews", "", map[string]any{
				"teacherId": t1,
				"comment":   "meh",
				"metrics":   defaultMetrics(),
			})
			So(code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Out-of-range metrics are rejected", func() {
			code, _ := doReq(t, app, http.MethodPost, "/api/reviews", "", map[string]any{
				"teacherId": t1,
				"comment":   "A thoroughly helpful teacher",
				"metrics": models.ReviewMetrics{
					Teaching:        6,
					Knowledge:       4,
					Engagement:      5,
					Approachability: 4,
					Responsiveness:  5,
				},
			})
			So(code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestUpdateReviewStatus(t *testing.T) {
	Convey("Given a teacher with a pending review", t, func() {
		app := newTestApp(t)
		token := login(t, app)
		t1 := createTeacher(t, app, token, "Dr. A")
		r1 := createReview(t, app, t1, defaultMetrics())

		Convey("Every known status is reachable while the teacher exists", func() {
			for _, status := range []string{
				models.StatusApproved,
				models.StatusFlagged,
				models.StatusRemoved,
				models.StatusPending,
			} {
				code, body := doReq(t, app, http.MethodPatch, "/api/reviews/"+r1+"/status", token, map[string]string{
					"status": status,
				})
				So(code, ShouldEqual, http.StatusOK)
				So(body["status"], ShouldEqual, status)
			}
		})

		Convey("An unknown status is rejected", func() {
			code, _ := doReq(t, app, http.MethodPatch, "/api/reviews/"+r1+"/status", token, map[string]string{
				"status": "archived",
			})
			So(code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("A missing review is a 404", func() {
			code, _ := doReq(t, app, http.MethodPatch, "/api/reviews/nope/status", token, map[string]string{
				"status": models.StatusApproved,
			})
			So(code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestReviewsForTeacher(t *testing.T) {
	Convey("Given the moderation scenario", t, func() {
		app := newTestApp(t)
		token := login(t, app)
		t1 := createTeacher(t, app, token, "Dr. A")

		code, body := doReq(t, app, http.MethodPost, "/api/reviews", "", map[string]any{
			"teacherId": t1,
			"comment":   "A thoroughly helpful teacher",
			"metrics":   defaultMetrics(),
		})
		So(code, ShouldEqual, http.StatusCreated)
		reviewID, _ := body["id"].(string)

		approved := func() []models.Review {
			var reviews []models.Review
			doList(t, app, "/api/reviews/teacher/"+t1, &reviews)
			out := []models.Review{}
			for _, r := range reviews {
				if r.Status == models.StatusApproved {
					out = append(out, r)
				}
			}
			return out
		}

		Convey("The pending review is invisible to an approved filter", func() {
			So(approved(), ShouldBeEmpty)
		})

		Convey("After approval it shows up with its computed rating", func() {
			code, _ := doReq(t, app, http.MethodPatch, "/api/reviews/"+reviewID+"/status", token, map[string]string{
				"status": models.StatusApproved,
			})
			So(code, ShouldEqual, http.StatusOK)

			got := approved()
			So(got, ShouldHaveLength, 1)
			So(got[0].ID, ShouldEqual, reviewID)
			So(got[0].Rating, ShouldEqual, 4.2)
		})

		Convey("Listing for an unknown teacher yields an empty list, not an error", func() {
			var reviews []models.Review
			code := doList(t, app, "/api/reviews/teacher/ghost", &reviews)
			So(code, ShouldEqual, http.StatusOK)
			So(reviews, ShouldBeEmpty)
		})
	})
}

func TestOrphanedReviewGuard(t *testing.T) {
	Convey("Given a review orphaned behind the API's back", t, func() {
		app := newTestApp(t)
		token := login(t, app)
		t1 := createTeacher(t, app, token, "Dr. A")
		r1 := createReview(t, app, t1, defaultMetrics())

		// Drop the teacher straight from the store so the cascade never
		// runs and the review survives as an orphan.
		_, err := store.S.UpdateTeachers(func(teachers []models.Teacher) ([]models.Teacher, error) {
			return nil, nil
		})
		So(err, ShouldBeNil)

		Convey("A status update on the orphan is rejected", func() {
			code, _ := doReq(t, app, http.MethodPatch, "/api/reviews/"+r1+"/status", token, map[string]string{
				"status": models.StatusApproved,
			})
			So(code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("The orphan can still be deleted", func() {
			code, _ := doReq(t, app, http.MethodDelete, "/api/reviews/"+r1, token, nil)
			So(code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestDeleteReview(t *testing.T) {
	Convey("Given a teacher with a review", t, func() {
		app := newTestApp(t)
		token := login(t, app)
		t1 := createTeacher(t, app, token, "Dr. A")
		r1 := createReview(t, app, t1, defaultMetrics())

		Convey("Deleting it empties the collection", func() {
			code, _ := doReq(t, app, http.MethodDelete, "/api/reviews/"+r1, token, nil)
			So(code, ShouldEqual, http.StatusOK)

			var reviews []models.Review
			doList(t, app, "/api/reviews", &reviews)
			So(reviews, ShouldBeEmpty)
		})

		Convey("Deleting it twice is a 404", func() {
			code, _ := doReq(t, app, http.MethodDelete, "/api/reviews/"+r1, token, nil)
			So(code, ShouldEqual, http.StatusOK)
			code, _ = doReq(t, app, http.MethodDelete, "/api/reviews/"+r1, token, nil)
			So(code, ShouldEqual, http.StatusNotFound)
		})
	})
}
