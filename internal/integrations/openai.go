package integrations

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/odiabackend099/callwaiting/internal/config"
	"github.com/odiabackend099/callwaiting/internal/domain/eligibility"
	"github.com/odiabackend099/callwaiting/internal/domain/quota"
	"github.com/odiabackend099/callwaiting/internal/domain/usage"
	"github.com/odiabackend099/callwaiting/internal/pkg/clock"
	apperrors "github.com/odiabackend099/callwaiting/internal/pkg/errors"
	"github.com/odiabackend099/callwaiting/internal/pkg/logger"
)

// speakingRate is the words-per-minute used to estimate synthesized audio length
const speakingRate = 150

// Completion is a metered chat completion result
type Completion struct {
	Text           string `json:"text"`
	Model          string `json:"model"`
	TotalTokens    int    `json:"total_tokens"`
	SecondsCharged int64  `json:"seconds_charged"`
}

// Speech is a metered text-to-speech result
type Speech struct {
	Audio          []byte `json:"-"`
	ContentType    string `json:"content_type"`
	SecondsCharged int64  `json:"seconds_charged"`
}

// OpenAIClient wraps go-openai with admission checks and usage recording.
// Every call is gated before it starts and charged after it returns.
type OpenAIClient struct {
	client            *openai.Client
	gate              eligibility.Gate
	ledger            quota.Ledger
	clock             clock.Clock
	model             string
	ttsModel          string
	ttsVoice          string
	inferenceEstimate int64
	logger            *logger.Logger
}

// NewOpenAIClient creates a metered client. BaseURL overrides the API host.
func NewOpenAIClient(
	cfg config.OpenAIConfig,
	inferenceEstimate int64,
	gate eligibility.Gate,
	ledger quota.Ledger,
	clk clock.Clock,
	log *logger.Logger,
) *OpenAIClient {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	return &OpenAIClient{
		client:            openai.NewClientWithConfig(apiCfg),
		gate:              gate,
		ledger:            ledger,
		clock:             clk,
		model:             cfg.Model,
		ttsModel:          cfg.TTSModel,
		ttsVoice:          cfg.TTSVoice,
		inferenceEstimate: inferenceEstimate,
		logger:            log,
	}
}

// Complete runs a chat completion on behalf of accountID. Charged seconds
// are the wall time of the API call, rounded up.
func (c *OpenAIClient) Complete(ctx context.Context, accountID, agentID, prompt string) (*Completion, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, apperrors.BadRequest("prompt is required")
	}

	decision := c.gate.CanProceed(ctx, accountID, c.inferenceEstimate, eligibility.SurfaceInference)
	if err := decision.Err(); err != nil {
		return nil, err
	}

	start := c.clock.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		}},
		MaxTokens: 300,
	})
	if err != nil {
		return nil, apperrors.ProviderAPIError("OpenAI", err)
	}
	if len(resp.Choices) == 0 {
		return nil, apperrors.ProviderAPIError("OpenAI", fmt.Errorf("empty completion"))
	}

	seconds := elapsedSeconds(start, c.clock.Now())
	c.charge(ctx, accountID, agentID, usage.KindInference, seconds, map[string]string{
		usage.MetaModel:  resp.Model,
		usage.MetaSource: "openai.chat",
		"total_tokens":   strconv.Itoa(resp.Usage.TotalTokens),
	})

	return &Completion{
		Text:           resp.Choices[0].Message.Content,
		Model:          resp.Model,
		TotalTokens:    resp.Usage.TotalTokens,
		SecondsCharged: seconds,
	}, nil
}

// Synthesize converts text to speech on behalf of accountID. Charged seconds
// are the estimated length of the produced audio.
func (c *OpenAIClient) Synthesize(ctx context.Context, accountID, agentID, text string) (*Speech, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.BadRequest("text is required")
	}

	seconds := EstimateSpeechSeconds(text)
	decision := c.gate.CanProceed(ctx, accountID, seconds, eligibility.SurfaceTTS)
	if err := decision.Err(); err != nil {
		return nil, err
	}

	resp, err := c.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(c.ttsModel),
		Input:          text,
		Voice:          openai.SpeechVoice(c.ttsVoice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, apperrors.ProviderAPIError("OpenAI", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, apperrors.ProviderAPIError("OpenAI", err)
	}

	c.charge(ctx, accountID, agentID, usage.KindTTS, seconds, map[string]string{
		usage.MetaModel:  c.ttsModel,
		usage.MetaSource: "openai.speech",
		"voice":          c.ttsVoice,
	})

	return &Speech{
		Audio:          audio,
		ContentType:    "audio/mpeg",
		SecondsCharged: seconds,
	}, nil
}

func (c *OpenAIClient) charge(ctx context.Context, accountID, agentID string, kind usage.Kind, seconds int64, meta map[string]string) {
	err := c.ledger.RecordConsumption(ctx, quota.Consumption{
		AccountID: accountID,
		AgentID:   agentID,
		Kind:      kind,
		Seconds:   seconds,
		Metadata:  meta,
	})
	if err != nil {
		// The provider call already happened; nothing to hand back to the caller.
		c.logger.ForAccount(accountID).WithFields(map[string]interface{}{
			"kind":    string(kind),
			"seconds": seconds,
		}).ErrorWithErr(err, "Failed to record provider usage")
	}
}

// EstimateSpeechSeconds estimates spoken duration of text, at least one second
func EstimateSpeechSeconds(text string) int64 {
	words := int64(len(strings.Fields(text)))
	seconds := (words*60 + speakingRate - 1) / speakingRate
	if seconds < 1 {
		return 1
	}
	return seconds
}

func elapsedSeconds(start, end time.Time) int64 {
	d := end.Sub(start)
	seconds := int64(d / time.Second)
	if d%time.Second != 0 {
		seconds++
	}
	if seconds < 1 {
		return 1
	}
	return seconds
}
