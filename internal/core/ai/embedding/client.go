// Package embedding 呼叫 OpenAI 相容的 /embeddings API
package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"recipe-assistant/internal/infrastructure/config"

	"github.com/go-resty/resty/v2"
)

// Client 向量嵌入客戶端
type Client struct {
	config config.EmbeddingConfig
	client *resty.Client
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// NewClient 創建嵌入客戶端
func NewClient(cfg config.EmbeddingConfig) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return &Client{config: cfg, client: client}
}

// Embed 取得每段文字的向量，順序與輸入相同
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(embedRequest{Model: c.config.Model, Input: texts}).
		Post("/embeddings")
	if err != nil {
		return nil, fmt.Errorf("failed to send embedding request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("embedding API returned status %d: %s", resp.StatusCode(), resp.String())
	}

	var result embedResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse embedding response: %w", err)
	}
	if len(result.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(result.Data), len(texts))
	}

	sort.Slice(result.Data, func(i, j int) bool { return result.Data[i].Index < result.Data[j].Index })
	vectors := make([][]float64, len(result.Data))
	for i, d := range result.Data {
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding at index %d", d.Index)
		}
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// Ping 以一次小型請求確認服務可用
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Embed(ctx, []string{"ping"})
	return err
}

// BatchSize 單次請求的最大文字數
func (c *Client) BatchSize() int {
	if c.config.BatchSize <= 0 {
		return 32
	}
	return c.config.BatchSize
}
