// Package googleai implements the llms.ChatModel provider for Google AI LLMs.
// See https://ai.google.dev/ for more details.
package googleai

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/pkg/llms/googleai/internal/genaiutils"
	"google.golang.org/genai"
)

// GoogleAI is a type that represents a Google AI API client.
// The API key is passed explicitly at construction; there is no package-level
// configuration state.
type GoogleAI struct {
	client *genai.Client
	opts   Options
}

var _ llms.ChatModel = (*GoogleAI)(nil)

// New creates a new GoogleAI client.
func New(ctx context.Context, opts ...Option) (*GoogleAI, error) {
	clientOptions := DefaultOptions()
	for _, opt := range opts {
		opt(&clientOptions)
	}
	if clientOptions.APIKey == "" {
		return nil, errors.Errorf("googleai: API key is not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     clientOptions.APIKey,
		HTTPClient: clientOptions.HTTPClient,
		Backend:    genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create genai client")
	}

	return &GoogleAI{
		client: client,
		opts:   clientOptions,
	}, nil
}

// GetName implements the ChatModel interface.
func (g *GoogleAI) GetName() string {
	return g.opts.DefaultModel
}

// GetProviderType implements the ChatModel interface.
func (g *GoogleAI) GetProviderType() llms.ProviderType {
	return llms.ProviderGoogleAI
}

// StartChat implements the ChatModel interface: it opens a fresh chat session
// with empty history, advertising the given function declarations.
func (g *GoogleAI) StartChat(ctx context.Context, decls []*llms.FunctionDeclaration) (llms.Chat, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genaiutils.Float32Ptr(float32(g.opts.DefaultTemperature)),
		Tools:       genaiutils.ConvertDeclarations(decls),
	}

	chat, err := g.client.Chats.Create(ctx, g.opts.DefaultModel, config, nil)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create chat session")
	}
	return &chatSession{chat: chat}, nil
}

type chatSession struct {
	chat *genai.Chat
}

// SendMessage implements the llms.Chat interface.
func (s *chatSession) SendMessage(ctx context.Context, text string) (*llms.Turn, error) {
	resp, err := s.chat.SendMessage(ctx, genai.Part{Text: text})
	if err != nil {
		return nil, errors.WithMessage(err, "failed to generate content")
	}
	return convertResponse(resp)
}

// convertResponse maps a genai response onto the llms part union. A response
// with no candidates or no parts yields an empty turn; the caller decides how
// to surface it.
func convertResponse(resp *genai.GenerateContentResponse) (*llms.Turn, error) {
	turn := &llms.Turn{}
	if len(resp.Candidates) == 0 {
		return turn, nil
	}

	content := resp.Candidates[0].Content
	if content == nil {
		return turn, nil
	}
	for _, part := range content.Parts {
		switch {
		case part.FunctionCall != nil:
			turn.Parts = append(turn.Parts, &llms.FunctionCallPart{
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			})
		case part.Text != "":
			turn.Parts = append(turn.Parts, &llms.TextPart{Text: part.Text})
		}
	}
	return turn, nil
}
