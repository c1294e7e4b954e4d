package decompose

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openinquiry/inquiry/pkg/domain"
)

const decomposeSystemPrompt = `You are an investigation planner. Break the ` +
	`objective into 3-6 focused subtasks. Respond with a JSON array only, ` +
	`each element an object with fields "id", "description", "priority" ` +
	`(integer 1-10, 10 highest) and "suggested_sources" (array of strings ` +
	`drawn from: news, social, document, specialized).`

// OllamaDecomposer asks a local Ollama model to break an objective into
// subtasks. On any transport or parse failure it returns the error and
// lets the caller fall back to the rule-based decomposer.
type OllamaDecomposer struct {
	baseURL    string
	model      string
	httpClient *http.Client
	options    OllamaOptions
}

// OllamaOptions configures the Ollama-backed decomposer
type OllamaOptions struct {
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Timeout     time.Duration `json:"timeout"`
}

type ollamaRequest struct {
	Model    string                 `json:"model"`
	Messages []ollamaMessage        `json:"messages"`
	Options  map[string]interface{} `json:"options,omitempty"`
	Stream   bool                   `json:"stream"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// NewOllamaDecomposer creates a decomposer backed by an Ollama server
func NewOllamaDecomposer(baseURL, model string, options *OllamaOptions) *OllamaDecomposer {
	if options == nil {
		options = &OllamaOptions{
			Temperature: 0.3,
			MaxTokens:   2048,
			Timeout:     2 * time.Minute,
		}
	}
	if options.Timeout <= 0 {
		options.Timeout = 2 * time.Minute
	}

	return &OllamaDecomposer{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: options.Timeout,
		},
		options: *options,
	}
}

// Decompose implements domain.Decomposer
func (d *OllamaDecomposer) Decompose(ctx context.Context, objective string) ([]domain.DecomposedSubtask, error) {
	req := ollamaRequest{
		Model: d.model,
		Messages: []ollamaMessage{
			{Role: "system", Content: decomposeSystemPrompt},
			{Role: "user", Content: objective},
		},
		Options: map[string]interface{}{
			"temperature": d.options.Temperature,
			"num_predict": d.options.MaxTokens,
		},
		Stream: false,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		"POST",
		fmt.Sprintf("%s/api/chat", d.baseURL),
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var ollamaResp ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	subtasks, err := parseSubtasks(ollamaResp.Message.Content)
	if err != nil {
		return nil, err
	}
	if len(subtasks) == 0 {
		return nil, fmt.Errorf("model returned no subtasks")
	}

	return subtasks, nil
}

// CheckHealth verifies the Ollama service is accessible
func (d *OllamaDecomposer) CheckHealth(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(
		ctx,
		"GET",
		fmt.Sprintf("%s/api/tags", d.baseURL),
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama service unhealthy: status %d", resp.StatusCode)
	}

	return nil
}

// parseSubtasks extracts a JSON array of subtasks from model output.
// Models often wrap the array in prose or a code fence, so locate the
// outermost brackets before decoding.
func parseSubtasks(content string) ([]domain.DecomposedSubtask, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in model output")
	}

	var subtasks []domain.DecomposedSubtask
	if err := json.Unmarshal([]byte(content[start:end+1]), &subtasks); err != nil {
		return nil, fmt.Errorf("failed to parse subtasks: %w", err)
	}

	for i := range subtasks {
		if subtasks[i].ID == "" {
			subtasks[i].ID = fmt.Sprintf("sub-%d", i)
		}
		if subtasks[i].Priority < 1 {
			subtasks[i].Priority = 1
		}
		if subtasks[i].Priority > 10 {
			subtasks[i].Priority = 10
		}
	}

	return subtasks, nil
}
