package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-bulbul/analysis"
	"github.com/RyanBlaney/sonido-bulbul/logging"
)

// HTTP classifies spectrograms with a remote model server.
//
// The request body is a TensorFlow-Serving style predict call carrying the
// grayscale tensor as (height, width, 1):
//
//	{"instances": [[[[0.0], [0.1], ...], ...]]}
//
// Two response shapes are understood: raw class scores
// {"predictions": [[p_noise, p_singing]]}, decided by argmax, or a decided
// verdict {"prediction": "1_singing", "confidence": "93.00%"} where the
// confidence may also be a plain number in [0, 1].
type HTTP struct {
	url    string
	client *http.Client
	logger logging.Logger
}

// NewHTTP creates a model server client
func NewHTTP(url string, timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTP{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logging.WithFields(logging.Fields{"component": "http_classifier", "url": url}),
	}
}

type predictRequest struct {
	Instances [][][][]float64 `json:"instances"`
}

type predictResponse struct {
	Predictions [][]float64     `json:"predictions"`
	Prediction  string          `json:"prediction"`
	Confidence  json.RawMessage `json:"confidence"`
}

func (h *HTTP) Classify(ctx context.Context, spec *analysis.Spectrogram) (Prediction, error) {
	if h.url == "" {
		return Prediction{}, ErrUnavailable
	}

	tensor := spec.Tensor()
	instance := make([][][]float64, len(tensor))
	for y, row := range tensor {
		instance[y] = make([][]float64, len(row))
		for x, v := range row {
			instance[y][x] = []float64{v}
		}
	}

	b, err := json.Marshal(predictRequest{Instances: [][][][]float64{instance}})
	if err != nil {
		return Prediction{}, fmt.Errorf("encode predict request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(b))
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Prediction{}, ctxErr
		}
		h.logger.Error(err, "Model server request failed")
		return Prediction{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Prediction{}, fmt.Errorf("%w: model server %s: %s", ErrUnavailable, resp.Status, strings.TrimSpace(string(body)))
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Prediction{}, fmt.Errorf("decode predict response: %w", err)
	}

	pred, err := out.prediction()
	if err != nil {
		return Prediction{}, err
	}

	h.logger.Debug("Spectrogram classified", logging.Fields{
		"label":      pred.Label,
		"confidence": pred.Confidence,
	})
	return pred, nil
}

func (r *predictResponse) prediction() (Prediction, error) {
	if len(r.Predictions) > 0 {
		return FromScores(r.Predictions[0])
	}

	if r.Prediction == "" {
		return Prediction{}, fmt.Errorf("predict response has neither predictions nor prediction")
	}

	label, err := ParseLabel(r.Prediction)
	if err != nil {
		return Prediction{}, err
	}
	confidence, err := parseConfidence(r.Confidence)
	if err != nil {
		return Prediction{}, err
	}
	return Prediction{Label: label, Confidence: confidence}, nil
}

// FromScores picks the most likely class; its score is the confidence.
// Scores must be probabilities, raw logits are rejected.
func FromScores(scores []float64) (Prediction, error) {
	if len(scores) != len(Classes) {
		return Prediction{}, fmt.Errorf("expected %d class scores, got %d", len(Classes), len(scores))
	}

	best := 0
	for i, s := range scores {
		if !(s >= 0 && s <= 1) {
			return Prediction{}, fmt.Errorf("class score %g out of [0, 1]", s)
		}
		if s > scores[best] {
			best = i
		}
	}
	return Prediction{Label: Classes[best], Confidence: scores[best]}, nil
}

// parseConfidence reads a number in [0, 1] or a percentage string like "93.00%"
func parseConfidence(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("predict response missing confidence")
	}

	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		if number < 0 || number > 1 {
			return 0, fmt.Errorf("confidence %g out of [0, 1]", number)
		}
		return number, nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return 0, fmt.Errorf("confidence is neither number nor string: %s", raw)
	}

	text = strings.TrimSpace(text)
	percent := strings.HasSuffix(text, "%")
	value, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(text, "%")), 64)
	if err != nil {
		return 0, fmt.Errorf("parse confidence %q: %w", text, err)
	}
	if percent {
		value /= 100
	}
	if value < 0 || value > 1 {
		return 0, fmt.Errorf("confidence %q out of range", text)
	}
	return value, nil
}
