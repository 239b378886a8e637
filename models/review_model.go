package models

import "time"

// Review moderation statuses. New reviews always start as pending; any status
// may move to any other status.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusFlagged  = "flagged"
	StatusRemoved  = "removed"
)

// Sentiment labels. The label is assigned by a classifier collaborator and is
// independent of the moderation status.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// ReviewMetrics holds the five independent 1-5 sub-ratings of a review.
type ReviewMetrics struct {
	Teaching        int `json:"teaching" validate:"required,min=1,max=5"`
	Knowledge       int `json:"knowledge" validate:"required,min=1,max=5"`
	Engagement      int `json:"engagement" validate:"required,min=1,max=5"`
	Approachability int `json:"approachability" validate:"required,min=1,max=5"`
	Responsiveness  int `json:"responsiveness" validate:"required,min=1,max=5"`
}

// Overall returns the arithmetic mean of the five sub-ratings.
func (m ReviewMetrics) Overall() float64 {
	return float64(m.Teaching+m.Knowledge+m.Engagement+m.Approachability+m.Responsiveness) / 5
}

// Review is a record in the Reviews collection. TeacherName is a denormalized
// copy of the referenced teacher's name, rewritten whenever that teacher is
// renamed.
type Review struct {
	ID          string        `json:"id"`
	TeacherID   string        `json:"teacherId"`
	TeacherName string        `json:"teacherName"`
	StudentName string        `json:"studentName"`
	Comment     string        `json:"comment"`
	Metrics     ReviewMetrics `json:"metrics"`
	Rating      float64       `json:"rating"`
	CreatedAt   time.Time     `json:"createdAt"`
	Status      string        `json:"status"`
	Sentiment   string        `json:"sentiment"`
}

// ValidStatus reports whether s is one of the known moderation statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusApproved, StatusFlagged, StatusRemoved:
		return true
	}
	return false
}
