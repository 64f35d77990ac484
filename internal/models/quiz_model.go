package models

import "time"

// Question is a single multiple-choice question within a quiz.
type Question struct {
	Prompt  string   `json:"prompt" firestore:"prompt"`
	Options []string `json:"options" firestore:"options"`
	Answer  int      `json:"answer" firestore:"answer"` // index into Options
}

// Quiz is one quiz instance. One quiz is selected per calendar day and
// served to every user who has not yet completed a quiz that day.
type Quiz struct {
	ID          string     `json:"id" firestore:"-"` // Document ID
	Title       string     `json:"title" firestore:"title"`
	Description string     `json:"description,omitempty" firestore:"description,omitempty"`
	Questions   []Question `json:"questions" firestore:"questions"`
	CreatedAt   time.Time  `json:"createdAt" firestore:"createdAt,serverTimestamp"`
}

// ScoreEntry is an append-only leaderboard record written when a user
// completes the daily quiz.
type ScoreEntry struct {
	ID          string    `json:"id" firestore:"-"` // Document ID, auto-generated
	UserID      string    `json:"userId" firestore:"userId"`
	DisplayName string    `json:"displayName,omitempty" firestore:"displayName,omitempty"`
	SquadID     string    `json:"squadId,omitempty" firestore:"squadId,omitempty"`
	QuizID      string    `json:"quizId" firestore:"quizId"`
	Score       int64     `json:"score" firestore:"score"`
	Day         string    `json:"day" firestore:"day"` // UTC calendar day, YYYY-MM-DD
	CreatedAt   time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
}
