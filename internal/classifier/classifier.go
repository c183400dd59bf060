package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sneha822/chatshield-backend/internal/models"
)

// ToxicCutoff is the toxicity score above which a message counts as toxic.
const ToxicCutoff = 0.5

// Classifier scores a piece of text for toxicity. Implementations are pure
// from the caller's perspective: same text in, same scores out.
type Classifier interface {
	Classify(ctx context.Context, text string) (*models.ToxicityScores, error)
}

// HTTPClassifier calls the model-serving endpoint over HTTP.
type HTTPClassifier struct {
	url    string
	client *http.Client
}

// NewHTTPClassifier creates a classifier client for the given endpoint
func NewHTTPClassifier(url string, timeout time.Duration) *HTTPClassifier {
	return &HTTPClassifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type classifyRequest struct {
	Text string `json:"text"`
}

// Classify sends the text to the model endpoint and normalizes the verdict
func (c *HTTPClassifier) Classify(ctx context.Context, text string) (*models.ToxicityScores, error) {
	body, err := json.Marshal(classifyRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to encode classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var scores models.ToxicityScores
	if err := json.NewDecoder(resp.Body).Decode(&scores); err != nil {
		return nil, fmt.Errorf("failed to decode classifier response: %w", err)
	}

	// The verdict flag and level are derived here so every model backend is
	// held to the same cutoff.
	scores.IsToxic = scores.Toxicity > ToxicCutoff
	scores.Level = LevelFor(scores.Toxicity)

	return &scores, nil
}

// LevelFor converts a toxicity score to a human-readable level
func LevelFor(score float64) string {
	switch {
	case score < 0.2:
		return "safe"
	case score < 0.4:
		return "mild"
	case score < 0.6:
		return "moderate"
	case score < 0.8:
		return "high"
	default:
		return "severe"
	}
}
