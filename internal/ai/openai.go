package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// OpenAIClient talks to an OpenAI-compatible HTTP API: chat completions,
// audio transcriptions and speech synthesis.
type OpenAIClient struct {
	BaseURL      string
	APIKey       string
	ChatModel    string
	WhisperModel string
	SpeechModel  string
	SpeechVoice  string
	Client       *http.Client
}

// NewOpenAIClient creates a client with sensible defaults.
func NewOpenAIClient(baseURL, apiKey, chatModel string, timeout time.Duration) *OpenAIClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if chatModel == "" {
		chatModel = "gpt-4o-mini"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIClient{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		APIKey:       apiKey,
		ChatModel:    chatModel,
		WhisperModel: "whisper-1",
		SpeechModel:  "gpt-4o-mini-tts",
		SpeechVoice:  "alloy",
		Client:       &http.Client{Timeout: timeout},
	}
}

type chatCompletionReq struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type chatCompletionResp struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete performs a blocking chat completion call.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if c.Client == nil {
		return "", errors.New("openai: http client is nil")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return "", errors.New("openai: api key is required")
	}

	body, err := json.Marshal(chatCompletionReq{
		Model:       c.ChatModel,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.Client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errorFromBody("openai", resp)
	}

	var decoded chatCompletionResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return "", errors.New(decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("openai: empty response")
	}
	return decoded.Choices[0].Message.Content, nil
}

type transcriptionResp struct {
	Text  string `json:"text"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Transcribe uploads audio bytes and returns the recognized text.
func (c *OpenAIClient) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	if c.Client == nil {
		return "", errors.New("openai: http client is nil")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(audio); err != nil {
		return "", err
	}
	if err := mw.WriteField("model", c.WhisperModel); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.Client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errorFromBody("openai", resp)
	}

	var decoded transcriptionResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return "", errors.New(decoded.Error.Message)
	}
	return decoded.Text, nil
}

type speechReq struct {
	Model        string `json:"model"`
	Input        string `json:"input"`
	Voice        string `json:"voice"`
	Instructions string `json:"instructions,omitempty"`
}

// Synthesize converts text to MP3 audio bytes.
func (c *OpenAIClient) Synthesize(ctx context.Context, req SpeechRequest) ([]byte, error) {
	if c.Client == nil {
		return nil, errors.New("openai: http client is nil")
	}

	body, err := json.Marshal(speechReq{
		Model:        c.SpeechModel,
		Input:        req.Text,
		Voice:        c.SpeechVoice,
		Instructions: req.Instructions,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.Client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errorFromBody("openai", resp)
	}

	return io.ReadAll(resp.Body)
}

// errorFromBody builds an error from a non-2xx response, bounding how much
// of the body is read.
func errorFromBody(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = fmt.Sprintf("status %d", resp.StatusCode)
	}
	return fmt.Errorf("%s: %s", provider, msg)
}
