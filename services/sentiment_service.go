package services

import "github.com/anjiri1684/teacher_review/models"

// SentimentClassifier assigns a sentiment label to review text. The contract
// only requires one of the three known labels; the label is settable
// independently of the review's moderation status.
type SentimentClassifier interface {
	Classify(comment string) string
}

// StaticClassifier returns the same label for every comment. It stands in for
// a real model until one is wired up.
type StaticClassifier struct {
	Label string
}

func (s StaticClassifier) Classify(string) string {
	if s.Label == "" {
		return models.SentimentNeutral
	}
	return s.Label
}

// Sentiment is the classifier used by the review handlers.
var Sentiment SentimentClassifier = StaticClassifier{}
