package fallback

import (
	"context"
	"fmt"
	"io"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/carhubcentralts-hue/prosaasil-sub006/pkg/audio/pcm"
)

// Renderer turns text into linear PCM.
type Renderer interface {
	Render(ctx context.Context, voice, text string) ([]byte, pcm.Format, error)
}

// DefaultSpeechVoice is used when no voice is given.
const DefaultSpeechVoice = "alloy"

// OpenAISpeech renders text with the OpenAI speech endpoint. The pcm
// response format is 24 kHz mono 16-bit.
type OpenAISpeech struct {
	client openai.Client
	model  openai.SpeechModel
}

// NewOpenAISpeech returns a renderer using apiKey. Extra options are passed
// to the OpenAI client (base URL, HTTP client).
func NewOpenAISpeech(apiKey string, opts ...option.RequestOption) *OpenAISpeech {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAISpeech{
		client: openai.NewClient(opts...),
		model:  openai.SpeechModelGPT4oMiniTTS,
	}
}

// WithModel overrides the speech model.
func (s *OpenAISpeech) WithModel(model string) *OpenAISpeech {
	s.model = openai.SpeechModel(model)
	return s
}

func (s *OpenAISpeech) Render(ctx context.Context, voice, text string) ([]byte, pcm.Format, error) {
	if voice == "" {
		voice = DefaultSpeechVoice
	}
	resp, err := s.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          s.model,
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatPCM,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("fallback: openai speech: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("fallback: read speech: %w", err)
	}
	return data, pcm.L16Mono24K, nil
}
