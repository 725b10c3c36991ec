package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/video-stream/subtrans/internal/config"
	"github.com/video-stream/subtrans/internal/job"
	"github.com/video-stream/subtrans/internal/logging"
	"github.com/video-stream/subtrans/internal/storage"
	"github.com/video-stream/subtrans/internal/subtitle"
	"github.com/video-stream/subtrans/internal/subtitle/format"
	"github.com/video-stream/subtrans/internal/subtitle/merge"
	"github.com/video-stream/subtrans/internal/subtitle/postprocess"
)

// Artifact file names written into every job output directory
const (
	ArtifactSRT         = "translated.srt"
	ArtifactVTT         = "translated.vtt"
	ArtifactTranscript  = "transcript.md"
	ArtifactTranslation = "translation.md"
	ArtifactErrorReport = "error_report.json"
	ArtifactRawLog      = "llm_raw.jsonl"
)

// Credentials are the engine keys and models currently in effect
type Credentials struct {
	OpenAIKey   string
	OpenAIModel string
	GeminiKey   string
	GeminiModel string
}

// ClientFactory builds the LLM client for an engine name
type ClientFactory func(engine string) (Client, error)

// CredentialClients returns a factory that resolves credentials on every job, so
// key changes made through settings apply without a restart.
func CredentialClients(creds func() Credentials) ClientFactory {
	return func(engine string) (Client, error) {
		c := creds()
		switch engine {
		case "openai":
			if c.OpenAIKey == "" {
				return nil, fmt.Errorf("%w: openai api key missing", ErrNoClient)
			}
			return NewOpenAIClient(c.OpenAIKey, c.OpenAIModel), nil
		case "gemini":
			if c.GeminiKey == "" {
				return nil, fmt.Errorf("%w: gemini api key missing", ErrNoClient)
			}
			return NewGeminiClient(c.GeminiKey, func() string { return creds().GeminiModel }), nil
		default:
			return nil, fmt.Errorf("%w: unknown engine %q", ErrNoClient, engine)
		}
	}
}

// Service processes translation jobs
type Service struct {
	mediaPath  string
	outputPath string
	tuning     config.Tuning
	clients    ClientFactory
	log        *logrus.Entry
}

func NewService(mediaPath, outputPath string, tuning config.Tuning, clients ClientFactory) *Service {
	return &Service{
		mediaPath:  mediaPath,
		outputPath: outputPath,
		tuning:     tuning,
		clients:    clients,
		log:        logging.WithComponent("translate"),
	}
}

// HandleJob runs the full pipeline for one job: parse, merge, translate with repair,
// post-process and write the artifacts. Unresolved segments do not fail the job;
// they are reported in the result.
func (s *Service) HandleJob(ctx context.Context, j *job.Job, updateProgress func(float64)) (json.RawMessage, error) {
	started := time.Now()

	var params job.TranslateParams
	if err := json.Unmarshal(j.Params, &params); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	log := s.log.WithFields(logrus.Fields{"job": j.ID, "source": j.SourcePath})

	client, err := s.clients(params.Engine)
	if err != nil {
		return nil, err
	}

	content, err := storage.ReadSource(s.mediaPath, j.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("load subtitle: %w", err)
	}
	cues, skipped, err := format.Parse(j.SourcePath, content)
	if err != nil {
		return nil, fmt.Errorf("parse subtitle: %w", err)
	}
	if skipped > 0 {
		log.WithField("skipped", skipped).Warn("skipped malformed cues")
	}

	sourceLang := params.SourceLang
	if sourceLang == "" {
		sourceLang = storage.LangFromFilename(j.SourcePath)
	}
	if sourceLang == "" {
		sourceLang = "auto"
	}

	segments := NewSegments(s.merge(cues, params.MergeStrategy, log))
	log.WithFields(logrus.Fields{
		"cues":     len(cues),
		"segments": len(segments),
		"engine":   params.Engine,
		"target":   params.TargetLang,
		"preset":   params.Preset,
	}).Info("translation started")
	updateProgress(0.05)

	dir, err := storage.OutputDir(s.outputPath, j.ID)
	if err != nil {
		return nil, err
	}
	rawLog, err := OpenRawLog(filepath.Join(dir, ArtifactRawLog))
	if err != nil {
		return nil, err
	}
	defer rawLog.Close()

	opts := s.engineOptions(params, sourceLang)
	opts.RawLog = rawLog
	opts.Logger = log
	opts.OnProgress = func(p float64) { updateProgress(0.05 + 0.9*p) }

	out, err := NewEngine(client, opts).Run(ctx, segments)
	if err != nil {
		return nil, err
	}

	final := postprocess.Process(out.Track, postprocess.Options{
		MaxCharsPerLine: s.tuning.MaxCharsPerLine,
		MaxLines:        s.tuning.MaxLines,
	})

	meta := subtitle.Metadata{
		Title:      titleFromPath(j.SourcePath),
		SourceLang: sourceLang,
		TargetLang: params.TargetLang,
		SourceType: format.SourceType(j.SourcePath),
	}
	report, err := json.MarshalIndent(out.Report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode error report: %w", err)
	}

	artifacts := []struct {
		name string
		data []byte
	}{
		{ArtifactSRT, []byte(format.RenderSRT(final))},
		{ArtifactVTT, []byte(format.RenderVTT(final))},
		{ArtifactTranscript, []byte(format.RenderTranscriptMarkdown(meta, cues))},
		{ArtifactTranslation, []byte(format.RenderTranslationMarkdown(meta, out.Track))},
		{ArtifactErrorReport, report},
	}
	names := make([]string, 0, len(artifacts)+1)
	for _, a := range artifacts {
		if err := storage.WriteArtifact(dir, a.name, a.data); err != nil {
			return nil, err
		}
		names = append(names, a.name)
	}
	names = append(names, ArtifactRawLog)

	result := job.TranslateResult{
		OutputDir:  dir,
		Artifacts:  names,
		Segments:   len(segments),
		Cues:       len(final),
		Success:    out.Success,
		Unresolved: out.Unresolved,
		Rounds:     out.Rounds,
		Message:    out.Message,
		Duration:   time.Since(started).Seconds(),
	}
	log.WithFields(logrus.Fields{
		"cues":       result.Cues,
		"unresolved": result.Unresolved,
		"rounds":     result.Rounds,
		"took":       time.Since(started).Round(time.Millisecond),
	}).Info("translation complete")

	updateProgress(1.0)
	return json.Marshal(result)
}

func (s *Service) merge(cues []subtitle.RawCue, strategy string, log *logrus.Entry) []subtitle.MergedSegment {
	if strategy == "" {
		strategy = s.tuning.MergeStrategy
	}
	switch strategy {
	case "consecutive":
		return merge.MergeConsecutive(cues, s.tuning.MaxSegmentChars, merge.DefaultConsecutiveMaxGap, s.tuning.SentenceEnd)
	case "none":
		out := make([]subtitle.MergedSegment, 0, len(cues))
		for _, c := range cues {
			text := merge.CleanText(c.Text)
			if text == "" {
				continue
			}
			out = append(out, subtitle.MergedSegment{Text: text, Start: c.Start, End: c.End(), Duration: c.Duration})
		}
		return out
	default:
		opts := merge.DefaultOptions()
		opts.MaxChars = s.tuning.MaxSegmentChars
		opts.MaxDuration = s.tuning.MaxSegmentDuration
		opts.SentenceEnd = s.tuning.SentenceEnd
		opts.SubClause = s.tuning.SubClause
		opts.Logger = log
		return merge.New(opts).Merge(cues)
	}
}

func (s *Service) engineOptions(params job.TranslateParams, sourceLang string) EngineOptions {
	t := s.tuning
	scheme := TimestampIDs
	if params.SimplifiedIDs || t.SimplifiedIDs {
		scheme = SimplifiedIDs
	}
	return EngineOptions{
		CharBudget:     CharBudget(t.TokensPerBatch, t.CharsPerToken),
		MaxItems:       t.MaxItemsPerBatch,
		MaxRetryRounds: t.MaxRetryRounds,
		RetryDelay:     t.RetryDelay,
		Concurrency:    t.Concurrency,
		BatchInterval:  t.BatchInterval,
		CallTimeout:    t.CallTimeout,
		Classifier: Classifier{
			MinCheckLen:   t.RepeatMinCheckLen,
			RuneRepeat:    t.RuneRepeat,
			PatternMinLen: t.PatternMinLen,
			PatternRepeat: t.PatternRepeat,
		},
		Prompt: PromptOptions{
			SourceLang:   sourceLang,
			TargetLang:   params.TargetLang,
			Preset:       params.Preset,
			CustomPrompt: params.CustomPrompt,
			Scheme:       scheme,
		},
	}
}

// titleFromPath turns "show/ep01.en.srt" into "ep01"
func titleFromPath(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if lang := storage.LangFromFilename(filepath.Base(path)); lang != "" {
		name = strings.TrimSuffix(name, "."+lang)
	}
	return name
}
