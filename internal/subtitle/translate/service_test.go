package translate

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/video-stream/subtrans/internal/config"
	"github.com/video-stream/subtrans/internal/job"
)

const sampleSRT = `1
00:00:01,000 --> 00:00:02,500
Hello there.

2
00:00:03,000 --> 00:00:04,000
How are you?
`

func testService(t *testing.T, c Client) (*Service, string) {
	t.Helper()
	media := t.TempDir()
	if err := os.WriteFile(filepath.Join(media, "ep01.en.srt"), []byte(sampleSRT), 0644); err != nil {
		t.Fatal(err)
	}
	tuning := config.DefaultTuning()
	tuning.RetryDelay = 0
	tuning.BatchInterval = 0
	out := t.TempDir()
	clients := func(engine string) (Client, error) {
		if engine != "openai" {
			return nil, ErrNoClient
		}
		return c, nil
	}
	return NewService(media, out, tuning, clients), out
}

func translateJob(t *testing.T, params job.TranslateParams) *job.Job {
	t.Helper()
	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatal(err)
	}
	return &job.Job{ID: "job-1", Type: job.JobTranslate, SourcePath: "ep01.en.srt", Params: raw}
}

func TestServiceHandleJob(t *testing.T) {
	c := &fakeClient{reply: func(_ int, segs []promptSegment) (string, error) {
		return answer(segs, upper), nil
	}}
	svc, outRoot := testService(t, c)

	var last float64
	raw, err := svc.HandleJob(context.Background(), translateJob(t, job.TranslateParams{TargetLang: "x", Engine: "openai"}), func(p float64) {
		if p < last {
			t.Errorf("progress went backwards: %v after %v", p, last)
		}
		last = p
	})
	if err != nil {
		t.Fatal(err)
	}
	if last != 1 {
		t.Errorf("final progress = %v", last)
	}

	var res job.TranslateResult
	if err := json.Unmarshal(raw, &res); err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.Segments != 2 || res.Cues != 2 {
		t.Fatalf("result = %+v", res)
	}
	if res.OutputDir != filepath.Join(outRoot, "job-1") {
		t.Errorf("output dir = %s", res.OutputDir)
	}

	srt, err := os.ReadFile(filepath.Join(res.OutputDir, ArtifactSRT))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(srt), "T:HELLO THERE.") || !strings.Contains(string(srt), "00:00:03,000 --> 00:00:04,000") {
		t.Errorf("translated.srt:\n%s", srt)
	}

	md, _ := os.ReadFile(filepath.Join(res.OutputDir, ArtifactTranscript))
	if !strings.Contains(string(md), "# Transcript: ep01") {
		t.Errorf("transcript.md:\n%s", md)
	}
	for _, name := range res.Artifacts {
		if _, err := os.Stat(filepath.Join(res.OutputDir, name)); err != nil {
			t.Errorf("artifact %s: %v", name, err)
		}
	}

	if len(c.calls) != 1 || len(c.calls[0]) != 2 {
		t.Errorf("calls = %v", c.calls)
	}
}

func TestServiceReportsUnresolved(t *testing.T) {
	c := &fakeClient{reply: func(_ int, segs []promptSegment) (string, error) {
		return "", errors.New("boom")
	}}
	svc, _ := testService(t, c)
	svc.tuning.MaxRetryRounds = 1

	raw, err := svc.HandleJob(context.Background(), translateJob(t, job.TranslateParams{TargetLang: "x", Engine: "openai"}), func(float64) {})
	if err != nil {
		t.Fatal(err)
	}
	var res job.TranslateResult
	json.Unmarshal(raw, &res)
	if res.Success || res.Unresolved != 2 || res.Rounds != 1 {
		t.Fatalf("result = %+v", res)
	}

	var report ErrorReport
	data, err := os.ReadFile(filepath.Join(res.OutputDir, ArtifactErrorReport))
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatal(err)
	}
	if len(report.SoftErrors) != 2 || len(report.HardErrors) != 0 {
		t.Errorf("report = %+v", report)
	}
	if len(report.Unresolved) != 2 {
		t.Fatalf("unresolved = %+v", report.Unresolved)
	}
	for _, e := range report.Unresolved {
		if !strings.HasPrefix(e.Translated, FailedMarker) || e.Source == "" {
			t.Errorf("unresolved entry = %+v", e)
		}
	}

	srt, _ := os.ReadFile(filepath.Join(res.OutputDir, ArtifactSRT))
	if !strings.Contains(string(srt), FailedMarker) {
		t.Errorf("failed segments missing from track:\n%s", srt)
	}
}

func TestServiceErrors(t *testing.T) {
	svc, _ := testService(t, &fakeClient{})

	_, err := svc.HandleJob(context.Background(), translateJob(t, job.TranslateParams{TargetLang: "x", Engine: "gemini"}), func(float64) {})
	if !errors.Is(err, ErrNoClient) {
		t.Errorf("unknown engine err = %v", err)
	}

	j := translateJob(t, job.TranslateParams{TargetLang: "x", Engine: "openai"})
	j.SourcePath = "../outside.srt"
	if _, err := svc.HandleJob(context.Background(), j, func(float64) {}); err == nil {
		t.Error("path outside media root accepted")
	}
}

func TestCredentialClients(t *testing.T) {
	creds := Credentials{GeminiKey: "g", GeminiModel: "gemini-x"}
	factory := CredentialClients(func() Credentials { return creds })

	if _, err := factory("openai"); !errors.Is(err, ErrNoClient) {
		t.Errorf("openai without key err = %v", err)
	}
	c, err := factory("gemini")
	if err != nil || c.Name() != "gemini" {
		t.Fatalf("gemini client = %v, %v", c, err)
	}
	if _, err := factory("deepl"); !errors.Is(err, ErrNoClient) {
		t.Errorf("unknown engine err = %v", err)
	}
}

func TestTitleFromPath(t *testing.T) {
	tests := map[string]string{
		"show/ep01.en.srt": "ep01",
		"movie.vtt":        "movie",
		"a.b.c.srt":        "a.b.c",
	}
	for in, want := range tests {
		if got := titleFromPath(in); got != want {
			t.Errorf("titleFromPath(%q) = %q, want %q", in, got, want)
		}
	}
}
