package protocol

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EvaluationResult scores one answer attempt.
type EvaluationResult struct {
	IsCorrect bool    `json:"isCorrect"`
	Score     float64 `json:"score"`
	MaxScore  float64 `json:"maxScore"`
	Feedback  string  `json:"feedback,omitempty"`
	Details   any     `json:"details,omitempty"`
}

// Validate enforces the score bound invariant 0 <= score <= maxScore.
func (r EvaluationResult) Validate() error {
	if r.Score < 0 {
		return fmt.Errorf("protocol: score %v is negative", r.Score)
	}
	if r.Score > r.MaxScore {
		return fmt.Errorf("protocol: score %v exceeds max score %v", r.Score, r.MaxScore)
	}
	return nil
}

// SubmissionMetadata carries attempt timing. Timestamps are Unix
// milliseconds.
type SubmissionMetadata struct {
	TimeSpent    int64 `json:"timeSpent,omitempty"`
	AttemptCount int   `json:"attemptCount,omitempty"`
	Timestamp    int64 `json:"timestamp"`
}

// Submission records one attempt: the answer, its evaluation, and timing
// metadata. It is constructed once per attempt on the widget side.
type Submission struct {
	ID         string             `json:"id"`
	Answer     any                `json:"answer"`
	Evaluation EvaluationResult   `json:"evaluation"`
	Metadata   SubmissionMetadata `json:"metadata"`
}

// NewSubmission builds a submission with a fresh identifier after validating
// the evaluation's score bounds.
func NewSubmission(answer any, evaluation EvaluationResult, metadata SubmissionMetadata) (Submission, error) {
	if err := evaluation.Validate(); err != nil {
		return Submission{}, err
	}
	if metadata.Timestamp == 0 {
		metadata.Timestamp = time.Now().UnixMilli()
	}
	return Submission{
		ID:         uuid.NewString(),
		Answer:     answer,
		Evaluation: evaluation,
		Metadata:   metadata,
	}, nil
}
