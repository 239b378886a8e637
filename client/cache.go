package client

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/anjiri1684/teacher_review/models"
)

const (
	cacheTeachersFile        = "teachers.json"
	cacheReviewsFile         = "reviews.json"
	cachePendingTeachersFile = "pending_teachers.json"
	cachePendingReviewsFile  = "pending_reviews.json"
	cacheImportHistoryFile   = "import_history.json"
)

// PendingTeacher is a teacher created while offline, awaiting sync. The
// LocalID replaces a server-assigned id until reconciliation.
type PendingTeacher struct {
	LocalID string         `json:"localId"`
	Teacher models.Teacher `json:"teacher"`
}

// PendingReview is a review created while offline, awaiting sync.
type PendingReview struct {
	LocalID string        `json:"localId"`
	Review  models.Review `json:"review"`
}

// ImportRecord is one entry in the client-side import history log.
type ImportRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Imported  int       `json:"imported"`
	Failed    int       `json:"failed"`
}

// Cache holds the client-local fallback snapshots, consulted only when the
// server is unreachable.
type Cache struct {
	dir string
	mu  sync.Mutex
}

func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

// Teachers returns the cached Teachers snapshot. ok is false when nothing has
// been cached yet.
func (c *Cache) Teachers() ([]models.Teacher, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	teachers := []models.Teacher{}
	if !c.read(cacheTeachersFile, &teachers) {
		return nil, false
	}
	return teachers, true
}

func (c *Cache) SaveTeachers(teachers []models.Teacher) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(cacheTeachersFile, teachers)
}

// MutateTeachers applies fn to the cached snapshot so offline edits stay
// visible until the server is reachable again.
func (c *Cache) MutateTeachers(fn func([]models.Teacher) []models.Teacher) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	teachers := []models.Teacher{}
	c.read(cacheTeachersFile, &teachers)
	return c.write(cacheTeachersFile, fn(teachers))
}

func (c *Cache) Reviews() ([]models.Review, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reviews := []models.Review{}
	if !c.read(cacheReviewsFile, &reviews) {
		return nil, false
	}
	return reviews, true
}

func (c *Cache) SaveReviews(reviews []models.Review) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(cacheReviewsFile, reviews)
}

func (c *Cache) MutateReviews(fn func([]models.Review) []models.Review) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	reviews := []models.Review{}
	c.read(cacheReviewsFile, &reviews)
	return c.write(cacheReviewsFile, fn(reviews))
}

func (c *Cache) PendingTeachers() []PendingTeacher {
	c.mu.Lock()
	defer c.mu.Unlock()

	pending := []PendingTeacher{}
	c.read(cachePendingTeachersFile, &pending)
	return pending
}

func (c *Cache) AddPendingTeacher(p PendingTeacher) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	pending := []PendingTeacher{}
	c.read(cachePendingTeachersFile, &pending)
	return c.write(cachePendingTeachersFile, append(pending, p))
}

func (c *Cache) PendingReviews() []PendingReview {
	c.mu.Lock()
	defer c.mu.Unlock()

	pending := []PendingReview{}
	c.read(cachePendingReviewsFile, &pending)
	return pending
}

func (c *Cache) AddPendingReview(p PendingReview) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	pending := []PendingReview{}
	c.read(cachePendingReviewsFile, &pending)
	return c.write(cachePendingReviewsFile, append(pending, p))
}

func (c *Cache) ImportHistory() []ImportRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	history := []ImportRecord{}
	c.read(cacheImportHistoryFile, &history)
	return history
}

func (c *Cache) AppendImportRecord(r ImportRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	history := []ImportRecord{}
	c.read(cacheImportHistoryFile, &history)
	return c.write(cacheImportHistoryFile, append(history, r))
}

func (c *Cache) read(name string, out any) bool {
	data, err := os.ReadFile(filepath.Join(c.dir, name))
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		log.Printf("Error parsing cached %s: %v", name, err)
		return false
	}
	return true
}

func (c *Cache) write(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := filepath.Join(c.dir, name+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(c.dir, name))
}
