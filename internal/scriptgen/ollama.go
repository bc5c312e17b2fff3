package scriptgen

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

type ollamaGenerator struct {
	endpoint string
	model    string
}

// NewOllamaGenerator generates scripts via an Ollama-compatible endpoint.
func NewOllamaGenerator(endpoint, model string) Generator {
	return &ollamaGenerator{endpoint: endpoint, model: model}
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	System  string        `json:"system,omitempty"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaStreamResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

const systemPrompt = `You are a professional podcast script writer. Turn the
provided source text into a two-speaker dialogue. Tag every turn with exactly
"[Host]" or "[Guest]" at the start of the line; never use the speakers' names
as tags. Mention the names only inside the dialogue. Structure the episode
with an introduction, a main discussion and a closing. The host asks questions
on the listener's behalf; the guest explains.`

func (g *ollamaGenerator) Generate(ctx context.Context, req Request) (string, error) {
	prompt := fmt.Sprintf("Host name: %s\nGuest name: %s\n\nSource text:\n---\n%s\n---\n",
		req.HostName, req.GuestName, req.SourceText)

	payload := ollamaRequest{
		Model:  g.model,
		Prompt: prompt,
		System: systemPrompt,
		Stream: true,
		Options: ollamaOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("ollama returned status %s", resp.Status)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var accumulated strings.Builder
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk ollamaStreamResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return "", err
		}
		accumulated.WriteString(chunk.Response)
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}

	scriptText := stripMarkup(accumulated.String())
	if scriptText == "" {
		return "", fmt.Errorf("model returned no script text")
	}
	return scriptText, nil
}

var (
	codeFences = regexp.MustCompile("(?i)```(?:python|json|text|markdown)?")
	decoration = regexp.MustCompile(`[*#]|[\x{10000}-\x{10FFFF}]`)
)

// stripMarkup removes code fences, markdown decoration and emoji the model
// tends to sprinkle into scripts; the synthesis service would read them aloud.
func stripMarkup(s string) string {
	s = codeFences.ReplaceAllString(s, "")
	s = decoration.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
