package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/panthibivek/InsightLens/api/internal/detect"
)

type Engine struct {
	APIKey string
	Model  string

	// extra client options (endpoint overrides in tests, custom HTTP clients)
	opts []option.ClientOption
}

func New(apiKey, model string, opts ...option.ClientOption) *Engine {
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
		opts:   opts,
	}
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }

// Generate sends the image and the instruction as a single user turn and returns the first text part.
func (e *Engine) Generate(ctx context.Context, img []byte, mime, prompt string) (string, error) {
	if e.APIKey == "" {
		return "", detect.NewTransportError(e.Name(), errors.New("GEMINI_API_KEY is empty"))
	}
	if mime == "" {
		mime = "image/jpeg"
	}

	opts := append([]option.ClientOption{option.WithAPIKey(e.APIKey)}, e.opts...)
	cl, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return "", detect.NewTransportError(e.Name(), err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	if m == nil {
		return "", detect.NewTransportError(e.Name(), fmt.Errorf("model %q is nil", e.Model))
	}
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
	}

	parts := []genai.Part{
		&genai.Blob{MIMEType: mime, Data: img},
		genai.Text(prompt),
	}

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		return "", detect.NewTransportError(e.Name(), err)
	}
	return firstText(resp), nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
