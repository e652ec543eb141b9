package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/conjurecontent/backend/pkg/config"
	pkgerrors "github.com/conjurecontent/backend/pkg/errors"
)

// WordTiming aligns one spoken word with its start offset in the narration
// audio. Produced once per execution and consumed once by the subtitle step.
type WordTiming struct {
	Word  string
	Start time.Duration
}

// Synthesizer produces narration audio plus word-level timings. The timings
// come from transcribing the synthesized audio itself, which keeps them
// aligned to what the listener actually hears.
type Synthesizer struct {
	api *openai.Client
}

// NewSynthesizer builds a speech client from configuration.
func NewSynthesizer(cfg config.OpenAIConfig) (*Synthesizer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}
	return &Synthesizer{api: openai.NewClient(cfg.APIKey)}, nil
}

// Synthesize renders text to MP3 narration at the requested voice and speed
// and returns the audio bytes together with word timings.
func (s *Synthesizer) Synthesize(ctx context.Context, text, voice string, speed float64) ([]byte, []WordTiming, error) {
	if text == "" {
		return nil, nil, errors.New("text is required")
	}
	if speed <= 0 {
		return nil, nil, fmt.Errorf("speed must be positive, got %f", speed)
	}

	audio, err := s.render(ctx, text, voice, speed)
	if err != nil {
		return nil, nil, err
	}

	timings, err := s.transcribe(ctx, audio)
	if err != nil {
		return nil, nil, err
	}
	return audio, timings, nil
}

func (s *Synthesizer) render(ctx context.Context, text, voice string, speed float64) ([]byte, error) {
	resp, err := s.api.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.TTSModel1,
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          speed,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "speech synthesis")
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading synthesized audio")
	}
	if len(audio) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "speech synthesis returned no audio")
	}
	return audio, nil
}

func (s *Synthesizer) transcribe(ctx context.Context, audio []byte) ([]WordTiming, error) {
	resp, err := s.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: "narration.mp3",
		Reader:   bytes.NewReader(audio),
		Format:   openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularityWord,
		},
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "word-level transcription")
	}
	if len(resp.Words) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transcription returned no word timings")
	}

	timings := make([]WordTiming, 0, len(resp.Words))
	for _, word := range resp.Words {
		timings = append(timings, WordTiming{
			Word:  word.Word,
			Start: time.Duration(word.Start * float64(time.Second)),
		})
	}
	return timings, nil
}
