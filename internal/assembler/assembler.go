package assembler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/conjurecontent/backend/internal/brief"
	"github.com/conjurecontent/backend/internal/composer"
	"github.com/conjurecontent/backend/internal/speech"
	"github.com/conjurecontent/backend/internal/subtitle"
	"github.com/conjurecontent/backend/internal/textgen"
	"github.com/conjurecontent/backend/pkg/db/models"
	pkgerrors "github.com/conjurecontent/backend/pkg/errors"
	"github.com/conjurecontent/backend/pkg/logger"
)

// Pipeline step identifiers carried by assembly errors.
const (
	StepGeneration  = "generation"
	StepSynthesis   = "synthesis"
	StepSubtitles   = "subtitles"
	StepComposition = "composition"
	StepWorkspace   = "workspace"
)

type textGenerator interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

type speechSynthesizer interface {
	Synthesize(ctx context.Context, text, voice string, speed float64) ([]byte, []speech.WordTiming, error)
}

type videoComposer interface {
	Compose(ctx context.Context, input composer.CompositionInput) error
}

// Result is one finished execution: a composited video on local disk plus
// the caption material for the upload.
type Result struct {
	VideoPath string
	Title     string
	Tags      []string
	workDir   string
}

// Cleanup removes the execution's working files, the video included. Call it
// after the upload has finished with the file.
func (r Result) Cleanup() error {
	if r.workDir == "" {
		return nil
	}
	return os.RemoveAll(r.workDir)
}

// Assembler turns one job execution into a finished video file.
type Assembler struct {
	logg     *logger.Logger
	textGen  textGenerator
	synth    speechSynthesizer
	composer videoComposer
	workDir  string
}

type Params struct {
	Logger        *logger.Logger
	TextGenerator textGenerator
	Synthesizer   speechSynthesizer
	Composer      videoComposer
	WorkDir       string
}

// New builds an assembler, validating its collaborators.
func New(params Params) (*Assembler, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.TextGenerator == nil {
		return nil, errors.New("text generator is required")
	}
	if params.Synthesizer == nil {
		return nil, errors.New("synthesizer is required")
	}
	if params.Composer == nil {
		return nil, errors.New("composer is required")
	}
	if params.WorkDir == "" {
		return nil, errors.New("work dir is required")
	}
	return &Assembler{
		logg:     params.Logger,
		textGen:  params.TextGenerator,
		synth:    params.Synthesizer,
		composer: params.Composer,
		workDir:  params.WorkDir,
	}, nil
}

// Assemble runs the five pipeline stages strictly in order for one job
// execution. Any stage failure abandons this execution; the caller owns
// retry policy (there is none within a poll cycle).
func (a *Assembler) Assemble(ctx context.Context, job models.Job, preset models.MediaPreset) (Result, error) {
	compiled, err := brief.Compile(job.Category, preset.ExtraContext)
	if err != nil {
		return Result{}, err
	}

	raw, err := a.textGen.Ask(ctx, compiled.Prompt)
	if err != nil {
		return Result{}, assemblyError(StepGeneration, err)
	}
	story, err := textgen.ExtractStory(raw)
	if err != nil {
		// Keep the parse error's own code; it is its own taxonomy entry.
		return Result{}, err
	}

	ctx = a.logg.WithField(ctx, "story_title", story.Title)
	a.logg.Info(ctx, "story generated")

	audio, timings, err := a.synth.Synthesize(ctx, story.Content, preset.Voice, preset.VoiceSpeed)
	if err != nil {
		return Result{}, assemblyError(StepSynthesis, err)
	}

	track, err := subtitle.FromTimings(timings)
	if err != nil {
		return Result{}, assemblyError(StepSubtitles, err)
	}

	workDir, err := os.MkdirTemp(a.workDir, "execution-")
	if err != nil {
		return Result{}, assemblyError(StepWorkspace, err)
	}

	narrationPath := filepath.Join(workDir, "narration.mp3")
	subtitlePath := filepath.Join(workDir, "narration.srt")
	videoPath := filepath.Join(workDir, "video.mp4")

	if err := os.WriteFile(narrationPath, audio, 0o600); err != nil {
		os.RemoveAll(workDir)
		return Result{}, assemblyError(StepWorkspace, err)
	}
	if err := os.WriteFile(subtitlePath, []byte(track), 0o600); err != nil {
		os.RemoveAll(workDir)
		return Result{}, assemblyError(StepWorkspace, err)
	}

	err = a.composer.Compose(ctx, composer.CompositionInput{
		BackgroundVideoPath: preset.BackgroundVideoPath,
		BackgroundAudioPath: preset.BackgroundAudioPath,
		NarrationPath:       narrationPath,
		SubtitlePath:        subtitlePath,
		NarrationGain:       preset.NarrationGain,
		BackgroundGain:      preset.BackgroundGain,
		OutputPath:          videoPath,
	})
	if err != nil {
		os.RemoveAll(workDir)
		return Result{}, assemblyError(StepComposition, err)
	}

	a.logg.Info(ctx, "video composed")

	return Result{
		VideoPath: videoPath,
		Title:     story.Title,
		Tags:      compiled.Tags,
		workDir:   workDir,
	}, nil
}

func assemblyError(step string, cause error) error {
	return pkgerrors.Wrap(pkgerrors.CodeMediaAssembly, cause,
		fmt.Sprintf("%s step failed", step)).
		WithDetails(map[string]any{"step": step})
}
