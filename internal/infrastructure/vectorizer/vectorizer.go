package vectorizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/outletiq/reco-backend/internal/usecase"
	"github.com/outletiq/reco-backend/pkg/e"
	"github.com/outletiq/reco-backend/pkg/jitter"
	"github.com/outletiq/reco-backend/pkg/logger"
)

// Client — клиент внешнего сервиса извлечения признаков изображений.
// Сервис ненадёжный, поэтому запросы ретраятся с экспоненциальной задержкой,
// а общая конкурентность ограничена семафором.
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxRetries int
	sem        chan struct{}
	logger     logger.Logger
}

type vectorizeRequest struct {
	ImageURL string `json:"image_url"`
}

type vectorizeResponse struct {
	Vector       []float32 `json:"vector"`
	ModelVersion string    `json:"model_version"`
}

func NewClient(baseURL string, timeout time.Duration, maxConcurrent, maxRetries int, logger logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		maxRetries: maxRetries,
		sem:        make(chan struct{}, maxConcurrent),
		logger:     logger,
	}
}

// Vectorize извлекает вектор признаков по URL изображения с retry-логикой
// и экспоненциальной задержкой.
func (c *Client) Vectorize(ctx context.Context, imageURL string) (*usecase.VectorizeRes, error) {
	const (
		op         = "VectorizerClient.Vectorize"
		baseJitter = 1 * time.Second
		maxJitter  = 30 * time.Second
	)

	select {
	case c.sem <- struct{}{}:
		defer func() { <-c.sem }()
	case <-ctx.Done():
		return nil, e.Wrap(op, ctx.Err())
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		res, err := c.doRequest(ctx, imageURL)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if attempt == c.maxRetries-1 {
			break
		}

		sleepTime := jitter.ExponentialBackoff(
			baseJitter,
			maxJitter,
			attempt,
			jitter.DefaultJitter,
		)

		c.logger.Warnf("vectorization failed, retrying in %v (attempt %d): %v", sleepTime, attempt+1, err)
		select {
		case <-time.After(sleepTime):
		case <-ctx.Done():
			return nil, e.Wrap(op, ctx.Err())
		}
	}

	return nil, e.Wrap(op, fmt.Errorf("all %d attempts failed: %w", c.maxRetries, lastErr))
}

func (c *Client) doRequest(ctx context.Context, imageURL string) (*usecase.VectorizeRes, error) {
	const op = "VectorizerClient.doRequest"

	body, err := json.Marshal(vectorizeRequest{ImageURL: imageURL})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/vectorize", bytes.NewReader(body))
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, e.Wrap(op, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, data))
	}

	var out vectorizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, e.Wrap(op, err)
	}
	if len(out.Vector) == 0 {
		return nil, e.Wrap(op, e.ErrEmptyVectors)
	}

	return usecase.NewVectorizeRes(out.Vector, out.ModelVersion), nil
}
