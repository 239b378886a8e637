package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anjiri1684/teacher_review/models"
	"github.com/anjiri1684/teacher_review/routes"
	"github.com/anjiri1684/teacher_review/store"
	"github.com/anjiri1684/teacher_review/websocket"
	"github.com/gofiber/fiber/v2"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ADMIN_USERNAME", "admin")
	t.Setenv("ADMIN_PASSWORD", "admin123")

	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	store.S = s

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	routes.AuthRoutes(app)
	routes.TeacherRoutes(app)
	routes.ReviewRoutes(app)
	return app
}

func doReq(t *testing.T, app *fiber.App, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	out := map[string]any{}
	json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func doList(t *testing.T, app *fiber.App, path string, out any) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return resp.StatusCode
}

func login(t *testing.T, app *fiber.App) string {
	t.Helper()
	code, body := doReq(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "admin",
		"password": "admin123",
	})
	if code != http.StatusOK {
		t.Fatalf("login failed with status %d: %v", code, body)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatal("login returned no token")
	}
	return token
}

func createTeacher(t *testing.T, app *fiber.App, token, name string) string {
	t.Helper()
	code, body := doReq(t, app, http.MethodPost, "/api/teachers", token, map[string]any{
		"name":       name,
		"field":      "Math",
		"experience": 5,
		"bio":        "x",
	})
	if code != http.StatusCreated {
		t.Fatalf("create teacher failed with status %d: %v", code, body)
	}
	id, _ := body["id"].(string)
	return id
}

func createReview(t *testing.T, app *fiber.App, teacherID string, metrics models.ReviewMetrics) string {
	t.Helper()
	code, body := doReq(t, app, http.MethodPost, "/api/reviews", "", map[string]any{
		"teacherId": teacherID,
		"comment":   "A thoroughly helpful teacher",
		"metrics":   metrics,
	})
	if code != http.StatusCreated {
		t.Fatalf("create review failed with status %d: %v", code, body)
	}
	id, _ := body["id"].(string)
	return id
}

// collectEvents drains change events for a settling window.
func collectEvents(ch chan websocket.Event, d time.Duration) map[string]int {
	counts := map[string]int{}
	timer := time.After(d)
	for {
		select {
		case ev := <-ch:
			counts[ev.Event]++
		case <-timer:
			return counts
		}
	}
}

func defaultMetrics() models.ReviewMetrics {
	return models.ReviewMetrics{
		Teaching:        3,
		Knowledge:       4,
		Engagement:      5,
		Approachability: 4,
		Responsiveness:  5,
	}
}
