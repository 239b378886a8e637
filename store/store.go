package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/anjiri1684/teacher_review/models"
)

const (
	teachersFile = "teachers.json"
	reviewsFile  = "reviews.json"
)

// ErrAborted is returned by an update transform to leave the collection
// untouched. The snapshot is not rewritten and the version does not move.
var ErrAborted = errors.New("store: update aborted")

// Store owns the two flat-file collections. Each collection is guarded by its
// own mutex and carries a version counter that increases on every successful
// write, so change events can tell subscribers how fresh a snapshot is.
type Store struct {
	dir string

	teachersMu      sync.Mutex
	teachersVersion uint64

	reviewsMu      sync.Mutex
	reviewsVersion uint64
}

// S is the process-wide store instance, set up by Init.
var S *Store

// Init opens the store under dir and installs it as the package-level
// instance. The process cannot run without a usable data directory.
func Init(dir string) {
	st, err := Open(dir)
	if err != nil {
		log.Fatalf("🔥 Failed to open data directory: %v", err)
	}
	S = st
	fmt.Println("✅ Record store ready")
}

// Open creates the data directory if needed and returns a store over it.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// ReadTeachers returns the current Teachers snapshot in insertion order. A
// missing or corrupt file reads as an empty collection.
func (s *Store) ReadTeachers() []models.Teacher {
	s.teachersMu.Lock()
	defer s.teachersMu.Unlock()

	teachers := []models.Teacher{}
	s.readFile(teachersFile, &teachers)
	return teachers
}

// ReadReviews returns the current Reviews snapshot in insertion order.
func (s *Store) ReadReviews() []models.Review {
	s.reviewsMu.Lock()
	defer s.reviewsMu.Unlock()

	reviews := []models.Review{}
	s.readFile(reviewsFile, &reviews)
	return reviews
}

// UpdateTeachers runs fn on the current Teachers snapshot under the collection
// lock and persists the result wholesale. When fn returns an error nothing is
// written. The returned version identifies the new snapshot.
func (s *Store) UpdateTeachers(fn func([]models.Teacher) ([]models.Teacher, error)) (uint64, error) {
	s.teachersMu.Lock()
	defer s.teachersMu.Unlock()

	teachers := []models.Teacher{}
	s.readFile(teachersFile, &teachers)

	next, err := fn(teachers)
	if err != nil {
		return s.teachersVersion, err
	}
	if next == nil {
		next = []models.Teacher{}
	}
	if err := s.writeFile(teachersFile, next); err != nil {
		return s.teachersVersion, err
	}
	s.teachersVersion++
	return s.teachersVersion, nil
}

// UpdateReviews runs fn on the current Reviews snapshot under the collection
// lock and persists the result wholesale.
func (s *Store) UpdateReviews(fn func([]models.Review) ([]models.Review, error)) (uint64, error) {
	s.reviewsMu.Lock()
	defer s.reviewsMu.Unlock()

	reviews := []models.Review{}
	s.readFile(reviewsFile, &reviews)

	next, err := fn(reviews)
	if err != nil {
		return s.reviewsVersion, err
	}
	if next == nil {
		next = []models.Review{}
	}
	if err := s.writeFile(reviewsFile, next); err != nil {
		return s.reviewsVersion, err
	}
	s.reviewsVersion++
	return s.reviewsVersion, nil
}

// TeachersVersion returns the version of the current Teachers snapshot.
func (s *Store) TeachersVersion() uint64 {
	s.teachersMu.Lock()
	defer s.teachersMu.Unlock()
	return s.teachersVersion
}

// ReviewsVersion returns the version of the current Reviews snapshot.
func (s *Store) ReviewsVersion() uint64 {
	s.reviewsMu.Lock()
	defer s.reviewsMu.Unlock()
	return s.reviewsVersion
}

// Backup copies both collection files to .bak siblings under their locks.
func (s *Store) Backup() error {
	s.teachersMu.Lock()
	err := s.copyFile(teachersFile)
	s.teachersMu.Unlock()
	if err != nil {
		return err
	}

	s.reviewsMu.Lock()
	defer s.reviewsMu.Unlock()
	return s.copyFile(reviewsFile)
}

// readFile loads a collection file into out. Unreadable or corrupt files are
// logged and treated as empty rather than failing the caller.
func (s *Store) readFile(name string, out any) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Error reading %s: %v", name, err)
		}
		return
	}
	if err := json.Unmarshal(data, out); err != nil {
		log.Printf("Error parsing %s, treating collection as empty: %v", name, err)
	}
}

// writeFile replaces a collection file atomically via a temp file rename.
func (s *Store) writeFile(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp := filepath.Join(s.dir, name+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(s.dir, name))
}

func (s *Store) copyFile(name string) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, name+".bak"), data, 0o644)
}
