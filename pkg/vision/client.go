// Package vision provides a client for OpenAI-compatible vision chat models.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultEndpoint 是未配置自定义端点时使用的 OpenAI API 地址。
const DefaultEndpoint = "https://api.openai.com/v1"

// Credentials 是单次调用使用的凭据与目标模型。
// 凭据按用户存储，因此在每次调用时传入，而不是在构造客户端时固定。
type Credentials struct {
	APIKey   string
	Model    string
	Endpoint string // 为空时使用 DefaultEndpoint
}

// ImageURL 是图片内容的载体，支持 data URL 形式的内联图片。
type ImageURL struct {
	URL string `json:"url"`
}

// ContentPart 是多模态消息中的一个内容分片（文本或图片）。
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// Message 表示一条角色消息。
type Message struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// TextPart 构造一个文本内容分片。
func TextPart(text string) ContentPart {
	return ContentPart{Type: "text", Text: text}
}

// ImagePart 构造一个内联图片内容分片。
func ImagePart(mimeType string, data []byte) ContentPart {
	return ContentPart{
		Type:     "image_url",
		ImageURL: &ImageURL{URL: dataURL(mimeType, data)},
	}
}

// Client defines the interface for a vision model client.
type Client interface {
	// Complete 以多模态消息调用聊天接口，返回回复中第一个非空文本分片。
	Complete(ctx context.Context, creds Credentials, messages []Message) (string, error)
}

type openAICompatibleClient struct {
	client *http.Client
}

// NewClient creates a new OpenAI-compatible vision client.
func NewClient() Client {
	return &openAICompatibleClient{
		client: &http.Client{},
	}
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete calls the chat completions API and extracts the reply text.
func (c *openAICompatibleClient) Complete(ctx context.Context, creds Credentials, messages []Message) (string, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(creds.Endpoint), "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	reqBody := chatRequest{
		Model:    creds.Model,
		Messages: messages,
	}
	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint+"/chat/completions", bytes.NewReader(reqBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+creds.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call chat api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("chat api returned non-200 status: %s, body: %s", resp.Status, string(bodyBytes))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return "", fmt.Errorf("chat api returned no choices")
	}

	return firstText(chat.Choices[0].Message.Content), nil
}

// firstText 从回复内容中取出第一个非空文本。
// OpenAI 兼容接口的 content 可能是字符串，也可能是内容分片数组。
func firstText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}

	var parts []ContentPart
	if err := json.Unmarshal(raw, &parts); err == nil {
		for _, part := range parts {
			if strings.TrimSpace(part.Text) != "" {
				return part.Text
			}
		}
	}
	return ""
}

func dataURL(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}
