package answer

import (
	"fmt"
	"math"
)

// Confidence is the tier derived from the best retrieval score.
type Confidence string

const (
	// High means the top hit is a strong match.
	High Confidence = "high"
	// Medium means the top hit is a reasonable match.
	Medium Confidence = "medium"
	// Low means the top hit barely passed the threshold.
	Low Confidence = "low"
	// NotFound means nothing relevant was retrieved.
	NotFound Confidence = "not_found"
)

// Fixed user-facing messages.
const (
	NotFoundMessage = "관련 내용을 찾지 못했습니다."
	FailureMessage  = "답변 생성 중 오류가 발생했습니다."
)

// Cutoffs are the ascending score boundaries of the confidence tiers.
type Cutoffs struct {
	Low    float64
	Medium float64
	High   float64
}

// DefaultCutoffs returns the tuned boundaries for cosine similarity over the default embedding model.
func DefaultCutoffs() Cutoffs {
	return Cutoffs{Low: 0.35, Medium: 0.42, High: 0.55}
}

// Validate checks that the cutoffs are ascending and not below the retrieval threshold.
func (c Cutoffs) Validate(threshold float64) error {
	if threshold > c.Low || c.Low > c.Medium || c.Medium > c.High {
		return fmt.Errorf(
			"cutoffs must satisfy threshold <= low <= medium <= high, got %.2f/%.2f/%.2f/%.2f",
			threshold, c.Low, c.Medium, c.High,
		)
	}
	return nil
}

// Classify maps a score to its tier. It is monotone in score.
func (c Cutoffs) Classify(score float64) Confidence {
	switch {
	case score >= c.High:
		return High
	case score >= c.Medium:
		return Medium
	case score >= c.Low:
		return Low
	default:
		return NotFound
	}
}

// Source is a post cited by an answer.
type Source struct {
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	BoardName string  `json:"board_name"`
	Date      string  `json:"date"`
	Score     float64 `json:"score"`
}

// Answer is the retriever's response.
type Answer struct {
	Answer     string     `json:"answer"`
	Sources    []Source   `json:"sources"`
	Confidence Confidence `json:"confidence"`
}

// NotFoundAnswer is the fixed empty response.
func NotFoundAnswer() Answer {
	return Answer{Answer: NotFoundMessage, Sources: []Source{}, Confidence: NotFound}
}

// RoundScore rounds a score to four decimal places for display.
func RoundScore(s float64) float64 {
	return math.Round(s*10000) / 10000
}
