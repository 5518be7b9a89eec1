package googleai

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/pkg/llms/googleai/internal/genaiutils"
	"google.golang.org/genai"
)

const (
	CITATIONS = "citations"
	SAFETY    = "safety"
)

// GetName implements the Model interface.
func (g *GoogleAI) GetName() string {
	return g.Options.Model
}

// GetProviderType implements the Model interface.
func (g *GoogleAI) GetProviderType() llms.ProviderType {
	return llms.ProviderGoogleAI
}

// GenerateContent implements the [llms.Model] interface.
func (g *GoogleAI) GenerateContent(
	ctx context.Context,
	messages []llms.Message,
	options ...llms.CallOption,
) (*llms.ContentResponse, error) {
	opts := llms.NewCallOptions(llms.CallOptions{
		Model:       g.Options.Model,
		MaxTokens:   g.Options.MaxTokens,
		Temperature: g.Options.Temperature,
		TopP:        g.Options.TopP,
	}, options...)

	callCfg, err := g.buildConfig(opts)
	if err != nil {
		return nil, err
	}

	history, system, err := convertMessages(messages)
	if err != nil {
		return nil, err
	}
	if system != "" && callCfg.SystemInstruction == nil {
		callCfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, modelName(opts.Model), history, callCfg)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, llms.ErrEmptyResponse
	}
	return convertCandidate(resp.Candidates[0], resp.UsageMetadata), nil
}

func (g *GoogleAI) buildConfig(opts llms.CallOptions) (*genai.GenerateContentConfig, error) {
	callCfg := &genai.GenerateContentConfig{
		StopSequences:   opts.StopWords,
		CandidateCount:  1,
		MaxOutputTokens: int32(opts.MaxTokens),
		Temperature:     genaiutils.Float32Ptr(float32(opts.Temperature)),
		TopP:            genaiutils.Float32Ptr(float32(opts.TopP)),
	}
	if opts.SystemInstruction != "" {
		callCfg.SystemInstruction = genai.NewContentFromText(opts.SystemInstruction, genai.RoleUser)
	}

	if g.Options.HarmThreshold != "" {
		for _, category := range []genai.HarmCategory{
			genai.HarmCategoryDangerousContent,
			genai.HarmCategoryHarassment,
			genai.HarmCategoryHateSpeech,
			genai.HarmCategorySexuallyExplicit,
		} {
			callCfg.SafetySettings = append(callCfg.SafetySettings, &genai.SafetySetting{
				Category:  category,
				Threshold: g.Options.HarmThreshold,
			})
		}
	}

	var err error
	if callCfg.Tools, err = genaiutils.ConvertTools(opts.Tools); err != nil {
		return nil, err
	}
	if len(callCfg.Tools) > 0 {
		callCfg.ToolConfig = genaiutils.ConvertToolChoice(opts.ToolChoice)
	}
	return callCfg, nil
}

// modelName strips the resource prefix returned by the models listing.
func modelName(model string) string {
	return strings.TrimPrefix(model, "models/")
}

// convertMessages converts the history to genai contents.
// System messages are returned separately, joined by new lines.
func convertMessages(messages []llms.Message) ([]*genai.Content, string, error) {
	history := make([]*genai.Content, 0, len(messages))
	var system []string
	for i, m := range messages {
		if m.Role == llms.RoleSystem {
			system = append(system, m.Text())
			continue
		}
		content, err := convertContent(m)
		if err != nil {
			return nil, "", errors.WithMessagef(err, "message %d", i)
		}
		history = append(history, content)
	}
	return history, strings.Join(system, "\n"), nil
}

// convertContent converts a message to genai content.
// A model turn produced by this backend is replayed as is.
func convertContent(m llms.Message) (*genai.Content, error) {
	if raw, ok := m.Raw.(*genai.Content); ok && raw != nil && m.Role == llms.RoleAI {
		return raw, nil
	}

	c := &genai.Content{}
	switch m.Role {
	case llms.RoleAI:
		c.Role = genai.RoleModel
	case llms.RoleHuman, llms.RoleTool:
		c.Role = genai.RoleUser
	default:
		return nil, errors.Wrapf(llms.ErrUnexpectedRole, "%q", m.Role)
	}

	for _, part := range m.Parts {
		switch p := part.(type) {
		case llms.TextContent:
			c.Parts = append(c.Parts, &genai.Part{Text: p.Text})
		case llms.ToolCall:
			args, err := p.Args()
			if err != nil {
				return nil, err
			}
			c.Parts = append(c.Parts, &genai.Part{
				FunctionCall: &genai.FunctionCall{
					ID:   p.ID,
					Name: p.Name(),
					Args: args,
				},
			})
		case llms.ToolCallResponse:
			c.Parts = append(c.Parts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					ID:       p.ToolCallID,
					Name:     p.Name,
					Response: p.Response(),
				},
			})
		default:
			return nil, errors.Newf("unsupported part type: %T", part)
		}
	}
	return c, nil
}

// convertCandidate converts the first candidate to a response.
// Function calls without an ID get a generated one, which is also stamped on
// the raw content so the replayed turn and the tool results stay correlated.
func convertCandidate(candidate *genai.Candidate, usage *genai.GenerateContentResponseUsageMetadata) *llms.ContentResponse {
	resp := &llms.ContentResponse{
		StopReason: string(candidate.FinishReason),
		GenerationInfo: map[string]any{
			CITATIONS: candidate.CitationMetadata,
			SAFETY:    candidate.SafetyRatings,
		},
	}

	raw := candidate.Content
	if raw == nil {
		raw = &genai.Content{}
	}
	if raw.Role == "" {
		raw.Role = genai.RoleModel
	}

	var text strings.Builder
	msg := llms.Message{Role: llms.RoleAI, Raw: raw}
	for _, part := range raw.Parts {
		switch {
		case part == nil:
		case part.FunctionCall != nil:
			fc := part.FunctionCall
			call := llms.NewToolCall(fc.ID, fc.Name, fc.Args)
			fc.ID = call.ID
			resp.ToolCalls = append(resp.ToolCalls, call)
			msg.Parts = append(msg.Parts, call)
		case part.Thought:
			// thought summaries and other parts travel in Raw only
		case part.Text != "":
			text.WriteString(part.Text)
			msg.Parts = append(msg.Parts, llms.TextPart(part.Text))
		}
	}
	resp.Content = text.String()
	resp.Message = msg

	if usage != nil {
		resp.Usage = llms.Usage{
			InputTokens:  int64(usage.PromptTokenCount),
			OutputTokens: int64(usage.CandidatesTokenCount + usage.ToolUsePromptTokenCount + usage.ThoughtsTokenCount),
			TotalTokens:  int64(usage.TotalTokenCount),
		}
	}
	return resp
}
