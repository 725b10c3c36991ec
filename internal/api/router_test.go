package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/video-stream/subtrans/internal/api/middleware"
	"github.com/video-stream/subtrans/internal/auth"
	"github.com/video-stream/subtrans/internal/config"
	"github.com/video-stream/subtrans/internal/db"
	"github.com/video-stream/subtrans/internal/job"
	"github.com/video-stream/subtrans/internal/storage"
)

type testServer struct {
	handler http.Handler
	queue   *job.JobQueue
	token   string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	media := filepath.Join(dir, "media")
	output := filepath.Join(dir, "output")
	os.MkdirAll(filepath.Join(media, "show"), 0755)
	os.WriteFile(filepath.Join(media, "show", "ep1.en.srt"), []byte("1\n00:00:01,000 --> 00:00:02,000\nHi.\n"), 0644)

	database, err := db.NewSQLite(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if err := database.EnsureAdmin("admin", "secret"); err != nil {
		t.Fatal(err)
	}

	queue := job.NewJobQueue(database.DB())
	queue.RegisterHandler(job.JobTranslate, func(ctx context.Context, j *job.Job, progress func(float64)) (json.RawMessage, error) {
		out, err := storage.OutputDir(output, j.ID)
		if err != nil {
			return nil, err
		}
		if err := storage.WriteArtifact(out, "translated.srt", []byte("1\n00:00:01,000 --> 00:00:02,000\nSalut.\n")); err != nil {
			return nil, err
		}
		return json.Marshal(job.TranslateResult{OutputDir: out, Artifacts: []string{"translated.srt"}, Success: true})
	})

	limiter := middleware.NewRateLimiter(1000)
	t.Cleanup(func() {
		limiter.Stop()
		queue.Stop()
		database.Close()
	})

	cfg := &config.Config{MediaPath: media, OutputPath: output, CORSOrigins: []string{"*"}}
	ts := &testServer{
		handler: NewRouter(database, auth.NewJWTService("test-secret-0123456789"), cfg, queue, limiter, func() string { return "" }),
		queue:   queue,
	}

	rec := ts.do(t, "POST", "/api/auth/login", `{"username":"admin","password":"secret"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login = %d %s", rec.Code, rec.Body)
	}
	var login struct {
		Token string `json:"token"`
	}
	json.Unmarshal(rec.Body.Bytes(), &login)
	ts.token = login.Token
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if ts.token != "" {
		req.Header.Set("Authorization", "Bearer "+ts.token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func TestPublicRoutes(t *testing.T) {
	ts := newTestServer(t)

	if rec := ts.do(t, "GET", "/api/health", ""); rec.Code != http.StatusOK {
		t.Errorf("health = %d", rec.Code)
	}
	if rec := ts.do(t, "GET", "/metrics", ""); rec.Code != http.StatusOK {
		t.Errorf("metrics = %d", rec.Code)
	}

	ts.token = ""
	if rec := ts.do(t, "GET", "/api/jobs", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("jobs without token = %d", rec.Code)
	}
	if rec := ts.do(t, "POST", "/api/auth/login", `{"username":"admin","password":"wrong"}`); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login = %d", rec.Code)
	}
	if rec := ts.do(t, "POST", "/api/auth/login", `{"username":"admin"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("login without password = %d", rec.Code)
	}
}

func TestTranslateRequestValidation(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing target", `{"source_path":"show/ep1.en.srt","engine":"gemini"}`, http.StatusBadRequest},
		{"bad engine", `{"source_path":"show/ep1.en.srt","target_lang":"fr","engine":"deepl"}`, http.StatusBadRequest},
		{"not subtitle", `{"source_path":"show/ep1.mkv","target_lang":"fr","engine":"gemini"}`, http.StatusBadRequest},
		{"traversal", `{"source_path":"../etc/x.srt","target_lang":"fr","engine":"gemini"}`, http.StatusBadRequest},
		{"missing file", `{"source_path":"show/ep2.srt","target_lang":"fr","engine":"gemini"}`, http.StatusNotFound},
		{"custom without prompt", `{"source_path":"show/ep1.en.srt","target_lang":"fr","engine":"gemini","preset":"custom"}`, http.StatusBadRequest},
		{"unknown preset id", `{"source_path":"show/ep1.en.srt","target_lang":"fr","engine":"gemini","preset_id":99}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := ts.do(t, "POST", "/api/translate", tt.body); rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestTranslateJobLifecycle(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "POST", "/api/translate", `{"source_path":"show/ep1.en.srt","target_lang":"fr","engine":"openai"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("translate = %d %s", rec.Code, rec.Body)
	}
	var queued job.Job
	json.Unmarshal(rec.Body.Bytes(), &queued)

	deadline := time.Now().Add(5 * time.Second)
	for {
		j, err := ts.queue.GetJob(queued.ID)
		if err != nil {
			t.Fatal(err)
		}
		if j.Status == job.StatusCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job status = %s", j.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	rec = ts.do(t, "GET", "/api/jobs/"+queued.ID+"/artifacts/translated.srt", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Salut.") {
		t.Errorf("artifact = %d %s", rec.Code, rec.Body)
	}
	if rec := ts.do(t, "GET", "/api/jobs/"+queued.ID+"/artifacts/..%2Fsecret", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown artifact = %d", rec.Code)
	}
	if rec := ts.do(t, "POST", "/api/jobs/"+queued.ID+"/retry", ""); rec.Code != http.StatusConflict {
		t.Errorf("retry completed = %d", rec.Code)
	}
	if rec := ts.do(t, "GET", "/api/jobs/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing job = %d", rec.Code)
	}
}

func TestPresetsAndSettings(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "POST", "/api/presets", `{"name":"<b>Formal</b>","prompt":"Use formal register."}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create preset = %d %s", rec.Code, rec.Body)
	}
	var created struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	json.Unmarshal(rec.Body.Bytes(), &created)
	if created.Name != "Formal" {
		t.Errorf("name not sanitized: %q", created.Name)
	}
	if rec := ts.do(t, "PUT", "/api/presets/999", `{"name":"x","prompt":"y"}`); rec.Code != http.StatusNotFound {
		t.Errorf("update missing preset = %d", rec.Code)
	}

	body := `{"source_path":"show/ep1.en.srt","target_lang":"fr","engine":"gemini","preset_id":` + jsonInt(created.ID) + `}`
	if rec := ts.do(t, "POST", "/api/translate", body); rec.Code != http.StatusAccepted {
		t.Errorf("translate with preset = %d %s", rec.Code, rec.Body)
	}

	if rec := ts.do(t, "PUT", "/api/settings", `{"openai_api_key":"sk-abcdef123456","unknown":"x"}`); rec.Code != http.StatusNoContent {
		t.Fatalf("update settings = %d", rec.Code)
	}
	rec = ts.do(t, "GET", "/api/settings", "")
	if !strings.Contains(rec.Body.String(), "3456") || strings.Contains(rec.Body.String(), "sk-abcdef") {
		t.Errorf("settings not masked: %s", rec.Body)
	}
	if rec := ts.do(t, "GET", "/api/settings/gemini-models", ""); rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("models without key = %d %s", rec.Code, rec.Body)
	}
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
