package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/panthibivek/InsightLens/api/internal/detect"
	"github.com/panthibivek/InsightLens/api/internal/util"
)

type Engine struct {
	APIKey  string
	Model   string
	BaseURL string

	opts []option.RequestOption
}

func New(key, model, baseURL string, opts ...option.RequestOption) *Engine {
	return &Engine{
		APIKey:  strings.TrimSpace(key),
		Model:   strings.TrimSpace(model),
		BaseURL: strings.TrimSpace(baseURL),
		opts:    opts,
	}
}

func (e *Engine) Name() string { return "gpt" }

func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) Generate(ctx context.Context, img []byte, mime, prompt string) (string, error) {
	if e.APIKey == "" {
		return "", detect.NewTransportError(e.Name(), errors.New("OPENAI_API_KEY not set"))
	}
	if mime == "" {
		mime = util.SniffMimeHTTP(img)
	}
	dataURL := util.MakeDataURL(mime, base64.StdEncoding.EncodeToString(img))

	opts := []option.RequestOption{option.WithAPIKey(e.APIKey), option.WithMaxRetries(0)}
	if e.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(e.BaseURL))
	}
	opts = append(opts, e.opts...)
	client := openai.NewClient(opts...)

	content := []openai.ChatCompletionContentPartUnionParam{
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: dataURL,
		}),
		openai.TextContentPart(prompt),
	}
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(e.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(content),
		},
		Temperature: openai.Float(0),
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", detect.NewTransportError(e.Name(), err)
	}
	if len(resp.Choices) == 0 {
		return "", detect.NewTransportError(e.Name(), fmt.Errorf("no choices in response"))
	}
	return resp.Choices[0].Message.Content, nil
}
