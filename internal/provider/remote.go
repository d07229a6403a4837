package provider

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"go-medical-analyzer/internal/logger"
)

const NameRemoteVision = "remote_vision"

// MedicalQuery is the instruction sent with every image.
const MedicalQuery = `
You are a medical imaging expert. Analyze this medical image and provide a brief, concise summary in 2-3 paragraphs:

1. What type of image is this and what body part does it show?
2. What are the main findings and any abnormalities detected?
3. What are the likely diseases or conditions based on these findings?

IMPORTANT: Format disease names in **bold** (e.g., **Pneumonia**, **Fracture**) to make them stand out.

Keep the explanation simple and direct. Avoid lengthy details and technical jargon. Focus only on the key observations and most likely diagnoses.
`

// ChatClient is the part of the OpenAI client the remote provider uses.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// RemoteVisionConfig configures the hosted vision-language model.
type RemoteVisionConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type remoteVision struct {
	client ChatClient
	model  string
}

// NewRemoteVision builds the remote provider. Without an API key the
// provider is constructed but always reports Unavailable.
func NewRemoteVision(cfg RemoteVisionConfig) Provider {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return &remoteVision{model: cfg.Model}
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &remoteVision{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
	}
}

// NewRemoteVisionWithClient uses an existing chat client.
func NewRemoteVisionWithClient(client ChatClient, model string) Provider {
	return &remoteVision{client: client, model: model}
}

func (p *remoteVision) Name() string { return NameRemoteVision }

func (p *remoteVision) Capabilities() Capability { return CapNarrative }

func (p *remoteVision) Analyze(ctx context.Context, in *Input) Result {
	if p.client == nil {
		return Unavailable("no remote vision API key configured")
	}

	req := in.Request
	dataURL := fmt.Sprintf("data:%s;base64,%s", req.RemoteMedia, base64.StdEncoding.EncodeToString(req.RemoteBytes))

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: MedicalQuery,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return Failure("remote vision request failed", err)
	}
	if len(resp.Choices) == 0 {
		return Failure("remote vision returned no choices", nil)
	}
	narrative := strings.TrimSpace(resp.Choices[0].Message.Content)
	if narrative == "" {
		return Failure("remote vision returned an empty answer", nil)
	}

	logger.WithFields(logrus.Fields{
		"provider":          NameRemoteVision,
		"model":             p.model,
		"completion_tokens": resp.Usage.CompletionTokens,
	}).Debug("Remote vision answer received")

	return Success(&Outcome{Narrative: narrative})
}
