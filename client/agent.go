// Package client implements the sync agent used by frontends of the teacher
// review service: it fetches collections over HTTP, subscribes to change
// events over a websocket and re-fetches on receipt, and falls back to a
// local cache when the server is unreachable.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/anjiri1684/teacher_review/models"
	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
)

// State is the notification channel connection state.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "disconnected"
}

const (
	requestTimeout    = 30 * time.Second
	reconnectAttempts = 10
	reconnectDelay    = time.Second
)

const (
	collectionTeachers = "teachers"
	collectionReviews  = "reviews"
)

// APIError is a rejection the server described. Transport failures stay plain
// errors so the offline fallback can tell them apart.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return e.Message }

type changeEvent struct {
	Event   string `json:"event"`
	Version uint64 `json:"version"`
}

// Agent is one client session's view of the server. Reads prefer the live
// API and degrade to the cache; creates made while offline are retained with
// a pending-sync marker rather than dropped.
type Agent struct {
	http  *resty.Client
	wsURL string
	cache *Cache

	mu       sync.Mutex
	state    State
	conn     *websocket.Conn
	versions map[string]uint64

	closeOnce sync.Once
	done      chan struct{}

	// Callbacks fire from the notification read loop. They must not block.
	OnStateChange     func(State)
	OnTeachersChanged func([]models.Teacher)
	OnReviewsChanged  func([]models.Review)
}

// New returns an agent talking to baseURL (e.g. http://localhost:5001/api)
// with its offline cache under cacheDir.
func New(baseURL, cacheDir string) (*Agent, error) {
	cache, err := NewCache(cacheDir)
	if err != nil {
		return nil, err
	}
	return &Agent{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(requestTimeout).
			SetHeader("Content-Type", "application/json"),
		wsURL:    wsEndpoint(baseURL),
		cache:    cache,
		versions: map[string]uint64{},
		done:     make(chan struct{}),
	}, nil
}

func wsEndpoint(baseURL string) string {
	u := strings.TrimSuffix(baseURL, "/")
	u = strings.Replace(u, "https://", "wss://", 1)
	u = strings.Replace(u, "http://", "ws://", 1)
	return u + "/ws"
}

// Cache exposes the client-local fallback storage (pending records, import
// history) for UI use.
func (a *Agent) Cache() *Cache { return a.cache }

// State returns the current notification channel state.
func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Agent) setState(s State) {
	a.mu.Lock()
	changed := a.state != s
	a.state = s
	cb := a.OnStateChange
	a.mu.Unlock()
	if changed && cb != nil {
		cb(s)
	}
}

// Login exchanges the fixed credential pair for a bearer token used on
// subsequent admin calls.
func (a *Agent) Login(ctx context.Context, username, password string) error {
	var out struct {
		Token string `json:"token"`
	}
	resp, err := a.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"username": username, "password": password}).
		SetResult(&out).
		Post("/auth/login")
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return apiError(resp)
	}
	a.http.SetAuthToken(out.Token)
	return nil
}

// Connect starts the notification channel in the background. Reconnection is
// automatic with bounded attempts; after they are exhausted the agent stays
// usable through explicit fetches and the cache.
func (a *Agent) Connect(ctx context.Context) {
	go a.run(ctx)
}

// Close stops the background connection loop.
func (a *Agent) Close() {
	a.closeOnce.Do(func() { close(a.done) })
	a.mu.Lock()
	if a.conn != nil {
		a.conn.Close()
	}
	a.mu.Unlock()
}

func (a *Agent) run(ctx context.Context) {
	attempts := 0
	for attempts < reconnectAttempts {
		select {
		case <-ctx.Done():
			return
		case <-a.done:
			return
		default:
		}

		a.setState(Connecting)
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, a.wsURL, nil)
		if err != nil {
			attempts++
			a.setState(Disconnected)
			log.Printf("Notification channel connect failed (attempt %d/%d): %v", attempts, reconnectAttempts, err)
			select {
			case <-ctx.Done():
				return
			case <-a.done:
				return
			case <-time.After(reconnectDelay):
			}
			continue
		}

		attempts = 0
		a.mu.Lock()
		a.conn = conn
		a.mu.Unlock()
		a.setState(Connected)

		// Initial full fetch on entering connected; anything missed
		// while disconnected is reconciled here, not by replay.
		// Versions are scoped to one server session: a restarted server
		// counts from zero again, so the map is cleared first or the
		// re-fetch and every following event would read as stale.
		a.resetVersions()
		a.refreshTeachers(ctx, 0)
		a.refreshReviews(ctx, 0)

		a.readLoop(ctx, conn)

		a.mu.Lock()
		a.conn = nil
		a.mu.Unlock()
		a.setState(Disconnected)
	}
	log.Printf("Notification channel gave up after %d attempts; relying on manual refresh", reconnectAttempts)
}

func (a *Agent) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var ev changeEvent
		if err := conn.ReadJSON(&ev); err != nil {
			conn.Close()
			return
		}
		switch ev.Event {
		case "teacher_updated":
			a.refreshTeachers(ctx, ev.Version)
		case "review_updated":
			a.refreshReviews(ctx, ev.Version)
		}
	}
}

// resetVersions forgets every applied version. Called on each transition into
// connected, since counters from a previous server session are meaningless.
func (a *Agent) resetVersions() {
	a.mu.Lock()
	a.versions = map[string]uint64{}
	a.mu.Unlock()
}

// stale reports whether an event announces a snapshot no newer than what is
// already applied.
func (a *Agent) stale(collection string, version uint64) bool {
	if version == 0 {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return version <= a.versions[collection]
}

// apply records a fetched snapshot version. A response older than the last
// applied one is discarded so a slow fetch cannot clobber newer data.
func (a *Agent) apply(collection string, version uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if version != 0 && version < a.versions[collection] {
		return false
	}
	if version > a.versions[collection] {
		a.versions[collection] = version
	}
	return true
}

func (a *Agent) refreshTeachers(ctx context.Context, eventVersion uint64) {
	if a.stale(collectionTeachers, eventVersion) {
		return
	}
	teachers, version, err := a.fetchTeachers(ctx)
	if err != nil {
		log.Printf("Error refreshing teachers: %v", err)
		return
	}
	if !a.apply(collectionTeachers, version) {
		return
	}
	if err := a.cache.SaveTeachers(teachers); err != nil {
		log.Printf("Error caching teachers: %v", err)
	}
	if cb := a.OnTeachersChanged; cb != nil {
		cb(teachers)
	}
}

func (a *Agent) refreshReviews(ctx context.Context, eventVersion uint64) {
	if a.stale(collectionReviews, eventVersion) {
		return
	}
	reviews, version, err := a.fetchReviews(ctx)
	if err != nil {
		log.Printf("Error refreshing reviews: %v", err)
		return
	}
	if !a.apply(collectionReviews, version) {
		return
	}
	if err := a.cache.SaveReviews(reviews); err != nil {
		log.Printf("Error caching reviews: %v", err)
	}
	if cb := a.OnReviewsChanged; cb != nil {
		cb(reviews)
	}
}

func (a *Agent) fetchTeachers(ctx context.Context) ([]models.Teacher, uint64, error) {
	teachers := []models.Teacher{}
	resp, err := a.http.R().SetContext(ctx).SetResult(&teachers).Get("/teachers")
	if err != nil {
		return nil, 0, err
	}
	if !resp.IsSuccess() {
		return nil, 0, apiError(resp)
	}
	version, _ := strconv.ParseUint(resp.Header().Get("X-Collection-Version"), 10, 64)
	return teachers, version, nil
}

func (a *Agent) fetchReviews(ctx context.Context) ([]models.Review, uint64, error) {
	reviews := []models.Review{}
	resp, err := a.http.R().SetContext(ctx).SetResult(&reviews).Get("/reviews")
	if err != nil {
		return nil, 0, err
	}
	if !resp.IsSuccess() {
		return nil, 0, apiError(resp)
	}
	version, _ := strconv.ParseUint(resp.Header().Get("X-Collection-Version"), 10, 64)
	return reviews, version, nil
}

// Teachers returns the Teachers collection. When the server is unreachable
// the last cached snapshot (plus any pending local creates) is served and
// fromCache is true.
func (a *Agent) Teachers(ctx context.Context) (teachers []models.Teacher, fromCache bool, err error) {
	teachers, version, err := a.fetchTeachers(ctx)
	if err == nil {
		a.apply(collectionTeachers, version)
		if cerr := a.cache.SaveTeachers(teachers); cerr != nil {
			log.Printf("Error caching teachers: %v", cerr)
		}
		return teachers, false, nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return nil, false, err
	}

	cached, ok := a.cache.Teachers()
	if !ok {
		return nil, false, err
	}
	a.setState(Disconnected)
	for _, p := range a.cache.PendingTeachers() {
		cached = append(cached, p.Teacher)
	}
	return cached, true, nil
}

// TeacherByID fetches a single teacher, falling back to the cache.
func (a *Agent) TeacherByID(ctx context.Context, id string) (models.Teacher, bool, error) {
	var teacher models.Teacher
	resp, err := a.http.R().SetContext(ctx).SetResult(&teacher).Get("/teachers/" + id)
	if err == nil {
		if !resp.IsSuccess() {
			return models.Teacher{}, false, apiError(resp)
		}
		return teacher, false, nil
	}

	cached, ok := a.cache.Teachers()
	if ok {
		for _, t := range cached {
			if t.ID == id {
				a.setState(Disconnected)
				return t, true, nil
			}
		}
	}
	for _, p := range a.cache.PendingTeachers() {
		if p.LocalID == id {
			a.setState(Disconnected)
			return p.Teacher, true, nil
		}
	}
	return models.Teacher{}, false, err
}

// Reviews returns the Reviews collection with the same fallback behavior as
// Teachers.
func (a *Agent) Reviews(ctx context.Context) ([]models.Review, bool, error) {
	reviews, version, err := a.fetchReviews(ctx)
	if err == nil {
		a.apply(collectionReviews, version)
		if cerr := a.cache.SaveReviews(reviews); cerr != nil {
			log.Printf("Error caching reviews: %v", cerr)
		}
		return reviews, false, nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return nil, false, err
	}

	cached, ok := a.cache.Reviews()
	if !ok {
		return nil, false, err
	}
	a.setState(Disconnected)
	for _, p := range a.cache.PendingReviews() {
		cached = append(cached, p.Review)
	}
	return cached, true, nil
}

// ReviewsForTeacher lists a teacher's reviews; the server returns an empty
// list for an unknown teacher, and the cache path mirrors that.
func (a *Agent) ReviewsForTeacher(ctx context.Context, teacherID string) ([]models.Review, bool, error) {
	reviews := []models.Review{}
	resp, err := a.http.R().SetContext(ctx).SetResult(&reviews).Get("/reviews/teacher/" + teacherID)
	if err == nil {
		if !resp.IsSuccess() {
			return nil, false, apiError(resp)
		}
		return reviews, false, nil
	}

	cached, ok := a.cache.Reviews()
	if !ok {
		return nil, false, err
	}
	a.setState(Disconnected)
	matched := []models.Review{}
	for _, r := range cached {
		if r.TeacherID == teacherID {
			matched = append(matched, r)
		}
	}
	return matched, true, nil
}

// CreateTeacher submits a new teacher. On transport failure the record is
// retained locally with a pending-sync marker and pending is true; it is not
// silently dropped. Server-side rejections are returned as *APIError.
func (a *Agent) CreateTeacher(ctx context.Context, teacher models.Teacher) (created models.Teacher, pending bool, err error) {
	resp, rerr := a.http.R().SetContext(ctx).SetBody(teacher).SetResult(&created).Post("/teachers")
	if rerr == nil {
		if !resp.IsSuccess() {
			return models.Teacher{}, false, apiError(resp)
		}
		return created, false, nil
	}

	teacher.ID = NewLocalID()
	if cerr := a.cache.AddPendingTeacher(PendingTeacher{LocalID: teacher.ID, Teacher: teacher}); cerr != nil {
		return models.Teacher{}, false, cerr
	}
	a.setState(Disconnected)
	return teacher, true, nil
}

// UpdateTeacher submits a full replacement for a teacher. On transport
// failure the edit is applied to the cached snapshot and pending is true.
func (a *Agent) UpdateTeacher(ctx context.Context, id string, teacher models.Teacher) (updated models.Teacher, pending bool, err error) {
	resp, rerr := a.http.R().SetContext(ctx).SetBody(teacher).SetResult(&updated).Put("/teachers/" + id)
	if rerr == nil {
		if !resp.IsSuccess() {
			return models.Teacher{}, false, apiError(resp)
		}
		return updated, false, nil
	}

	teacher.ID = id
	if cerr := a.cache.MutateTeachers(func(teachers []models.Teacher) []models.Teacher {
		for i, t := range teachers {
			if t.ID == id {
				teachers[i] = teacher
			}
		}
		return teachers
	}); cerr != nil {
		return models.Teacher{}, false, cerr
	}
	a.setState(Disconnected)
	return teacher, true, nil
}

// DeleteTeacher removes a teacher. On transport failure the removal is
// applied to the cached snapshot and pending is true.
func (a *Agent) DeleteTeacher(ctx context.Context, id string) (pending bool, err error) {
	resp, rerr := a.http.R().SetContext(ctx).Delete("/teachers/" + id)
	if rerr == nil {
		if !resp.IsSuccess() {
			return false, apiError(resp)
		}
		return false, nil
	}

	if cerr := a.cache.MutateTeachers(func(teachers []models.Teacher) []models.Teacher {
		kept := teachers[:0]
		for _, t := range teachers {
			if t.ID != id {
				kept = append(kept, t)
			}
		}
		return kept
	}); cerr != nil {
		return false, cerr
	}
	a.setState(Disconnected)
	return true, nil
}

// NewReview assembles a submission with the overall rating computed as the
// mean of the five metrics.
func NewReview(teacherID, studentName, comment string, metrics models.ReviewMetrics) models.Review {
	return models.Review{
		TeacherID:   teacherID,
		StudentName: studentName,
		Comment:     comment,
		Metrics:     metrics,
		Rating:      metrics.Overall(),
	}
}

// CreateReview submits a review. On transport failure it is retained locally
// with a pending-sync marker and pending is true.
func (a *Agent) CreateReview(ctx context.Context, review models.Review) (created models.Review, pending bool, err error) {
	resp, rerr := a.http.R().SetContext(ctx).SetBody(review).SetResult(&created).Post("/reviews")
	if rerr == nil {
		if !resp.IsSuccess() {
			return models.Review{}, false, apiError(resp)
		}
		return created, false, nil
	}

	review.ID = NewLocalID()
	review.CreatedAt = time.Now().UTC()
	review.Status = models.StatusPending
	if review.Sentiment == "" {
		review.Sentiment = models.SentimentNeutral
	}
	if cerr := a.cache.AddPendingReview(PendingReview{LocalID: review.ID, Review: review}); cerr != nil {
		return models.Review{}, false, cerr
	}
	a.setState(Disconnected)
	return review, true, nil
}

// UpdateReviewStatus sets a review's moderation status. On transport failure
// the change is applied to the cached snapshot and pending is true.
func (a *Agent) UpdateReviewStatus(ctx context.Context, id, status string) (updated models.Review, pending bool, err error) {
	resp, rerr := a.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"status": status}).
		SetResult(&updated).
		Patch("/reviews/" + id + "/status")
	if rerr == nil {
		if !resp.IsSuccess() {
			return models.Review{}, false, apiError(resp)
		}
		return updated, false, nil
	}

	if cerr := a.cache.MutateReviews(func(reviews []models.Review) []models.Review {
		for i, r := range reviews {
			if r.ID == id {
				reviews[i].Status = status
				updated = reviews[i]
			}
		}
		return reviews
	}); cerr != nil {
		return models.Review{}, false, cerr
	}
	a.setState(Disconnected)
	return updated, true, nil
}

// DeleteReview removes a review, applying the removal to the cache when the
// server is unreachable.
func (a *Agent) DeleteReview(ctx context.Context, id string) (pending bool, err error) {
	resp, rerr := a.http.R().SetContext(ctx).Delete("/reviews/" + id)
	if rerr == nil {
		if !resp.IsSuccess() {
			return false, apiError(resp)
		}
		return false, nil
	}

	if cerr := a.cache.MutateReviews(func(reviews []models.Review) []models.Review {
		kept := reviews[:0]
		for _, r := range reviews {
			if r.ID != id {
				kept = append(kept, r)
			}
		}
		return kept
	}); cerr != nil {
		return false, cerr
	}
	a.setState(Disconnected)
	return true, nil
}

// ImportSummary reports a bulk teacher import.
type ImportSummary struct {
	Imported int      `json:"imported"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// ImportTeachers bulk-creates teachers and records the outcome in the import
// history log. On transport failure every entry is queued as a pending local
// create instead.
func (a *Agent) ImportTeachers(ctx context.Context, source string, teachers []models.Teacher) (summary ImportSummary, pending bool, err error) {
	resp, rerr := a.http.R().SetContext(ctx).SetBody(teachers).SetResult(&summary).Post("/teachers/import")
	if rerr == nil {
		if !resp.IsSuccess() {
			return ImportSummary{}, false, apiError(resp)
		}
		if cerr := a.cache.AppendImportRecord(ImportRecord{
			Timestamp: time.Now().UTC(),
			Source:    source,
			Imported:  summary.Imported,
			Failed:    summary.Failed,
		}); cerr != nil {
			log.Printf("Error recording import history: %v", cerr)
		}
		return summary, false, nil
	}

	for _, t := range teachers {
		t.ID = NewLocalID()
		if cerr := a.cache.AddPendingTeacher(PendingTeacher{LocalID: t.ID, Teacher: t}); cerr != nil {
			return ImportSummary{}, false, cerr
		}
	}
	if cerr := a.cache.AppendImportRecord(ImportRecord{
		Timestamp: time.Now().UTC(),
		Source:    source,
		Imported:  len(teachers),
	}); cerr != nil {
		log.Printf("Error recording import history: %v", cerr)
	}
	a.setState(Disconnected)
	return ImportSummary{Imported: len(teachers)}, true, nil
}

func apiError(resp *resty.Response) error {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Message != "" {
		return &APIError{Status: resp.StatusCode(), Message: body.Message}
	}
	return &APIError{Status: resp.StatusCode(), Message: fmt.Sprintf("server returned %s", resp.Status())}
}
