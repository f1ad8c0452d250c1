package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"quill/internal/config"
	"quill/internal/document"
	"quill/internal/pipeline"
	"quill/internal/testsupport"
)

const healthyMetadata = `{"title":"Morning Walk","language":"en","summary":"A short walk.","emotions":["calm"],"characters":[]}`

type fakeClient struct {
	mu          sync.Mutex
	healthErr   error
	metadata    string
	metadataErr error
	analysis    string
	analysisErr error
	uploadErr   error
	uploads     []string
	links       [][2]string
}

func (c *fakeClient) HealthCheck(ctx context.Context) error { return c.healthErr }

func (c *fakeClient) ChatCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if strings.Contains(userPrompt, "\n\nTEXT:\n") {
		return c.metadata, c.metadataErr
	}
	return c.analysis, c.analysisErr
}

func (c *fakeClient) UploadFile(ctx context.Context, path, filename string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.uploadErr != nil {
		return "", c.uploadErr
	}
	c.uploads = append(c.uploads, filename)
	return "file-1", nil
}

func (c *fakeClient) LinkToCollection(ctx context.Context, fileID, collectionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.links = append(c.links, [2]string{fileID, collectionID})
	return nil
}

func (c *fakeClient) linkedCollections() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.links))
	for _, link := range c.links {
		out = append(out, link[1])
	}
	return out
}

type fakeTranscriber struct {
	transcript string
	err        error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, source, workDir string) (string, error) {
	return f.transcript, f.err
}

func diaryType() config.ContentType {
	return config.ContentType{
		Key:             "diary",
		Name:            "Personal Diary",
		TargetSubfolder: "Personal Diary",
		CollectionID:    "col-diary",
		IsDefault:       true,
	}
}

func dreamType() config.ContentType {
	return config.ContentType{
		Key:               "dream",
		Name:              "Dreams",
		TargetSubfolder:   "Dreams",
		DetectionKeywords: []string{"dream"},
		EnableAnalysis:    true,
		SystemPrompt:      "You analyze dreams.",
		UserPrompt:        "Analyze this dream.",
	}
}

func newTestPipeline(t *testing.T, client *fakeClient, transcriber pipeline.Transcriber) (*pipeline.Pipeline, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t,
		testsupport.WithContentTypes(diaryType(), dreamType()),
		testsupport.WithFocusCollection("col-focus"),
	)
	if transcriber == nil {
		transcriber = &fakeTranscriber{}
	}
	return pipeline.New(cfg, client, transcriber, nil, nil), cfg
}

func knowledgeDocs(t *testing.T, cfg *config.Config) []string {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join(cfg.Paths.KnowledgeDir, "*", "*.md"))
	if err != nil {
		t.Fatal(err)
	}
	return paths
}

func readDoc(t *testing.T, path string) *document.Document {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	doc, err := document.Parse(string(raw))
	if err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return doc
}

func TestProcessAudioFullCompletion(t *testing.T) {
	client := &fakeClient{metadata: healthyMetadata}
	p, cfg := newTestPipeline(t, client, &fakeTranscriber{transcript: "Went for a walk today."})

	source := filepath.Join(cfg.Paths.AudioInboxDir, "memo.m4a")
	if err := os.WriteFile(source, []byte("fake-audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := p.ProcessAudio(context.Background(), source)
	if err != nil {
		t.Fatalf("process audio: %v", err)
	}
	if !res.Complete || res.OutputPath == "" {
		t.Fatalf("expected full completion, got %+v", res)
	}

	doc := readDoc(t, res.OutputPath)
	if doc.Meta.Title != "Morning Walk" {
		t.Fatalf("unexpected title %q", doc.Meta.Title)
	}
	if doc.Meta.Type != "Personal Diary" {
		t.Fatalf("unexpected type %q", doc.Meta.Type)
	}
	if doc.Meta.Aliases[0] != "memo.m4a" {
		t.Fatalf("unexpected aliases %v", doc.Meta.Aliases)
	}

	if _, err := os.Stat(source); !os.IsNotExist(err) {
		t.Fatal("audio source should be archived away from the inbox")
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.AudioArchiveDir, "memo.m4a")); err != nil {
		t.Fatalf("archived audio missing: %v", err)
	}
	if len(client.uploads) != 1 {
		t.Fatalf("expected one upload, got %v", client.uploads)
	}
	if got := client.linkedCollections(); len(got) != 1 || got[0] != "col-diary" {
		t.Fatalf("unexpected collection links %v", got)
	}
}

func TestProcessAudioTranscriptionFailureLeavesSource(t *testing.T) {
	client := &fakeClient{metadata: healthyMetadata}
	p, cfg := newTestPipeline(t, client, &fakeTranscriber{err: errors.New("whisper crashed")})

	source := filepath.Join(cfg.Paths.AudioInboxDir, "memo.m4a")
	if err := os.WriteFile(source, []byte("fake-audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := p.ProcessAudio(context.Background(), source); err == nil {
		t.Fatal("expected transcription error")
	}
	if _, err := os.Stat(source); err != nil {
		t.Fatalf("failed transcription must leave the source untouched: %v", err)
	}
	if docs := knowledgeDocs(t, cfg); len(docs) != 0 {
		t.Fatalf("no document should be written, found %v", docs)
	}
}

func TestPartialAudioIngestQueuesRetryCopy(t *testing.T) {
	client := &fakeClient{metadataErr: errors.New("model offline")}
	p, cfg := newTestPipeline(t, client, &fakeTranscriber{transcript: "Went for a walk today."})

	source := filepath.Join(cfg.Paths.AudioInboxDir, "memo.m4a")
	if err := os.WriteFile(source, []byte("fake-audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := p.ProcessAudio(context.Background(), source)
	if err != nil {
		t.Fatalf("process audio: %v", err)
	}
	if res.Complete {
		t.Fatal("enrichment failure should yield a partial result")
	}

	doc := readDoc(t, res.OutputPath)
	if doc.Meta.Title != document.UntitledTitle {
		t.Fatalf("expected sentinel title, got %q", doc.Meta.Title)
	}

	retryCopy := filepath.Join(cfg.RetryDir(), filepath.Base(res.OutputPath))
	if _, err := os.Stat(retryCopy); err != nil {
		t.Fatalf("partial document should be queued in the retry root: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.AudioArchiveDir, "memo.m4a")); err != nil {
		t.Fatalf("partial completion still archives the audio: %v", err)
	}
	if len(client.uploads) != 0 {
		t.Fatalf("partial documents must not sync, got uploads %v", client.uploads)
	}
}

func TestPartialTextRoundTrip(t *testing.T) {
	client := &fakeClient{metadataErr: errors.New("model offline")}
	p, cfg := newTestPipeline(t, client, nil)

	source := filepath.Join(cfg.Paths.TextInboxDir, "note.txt")
	if err := os.WriteFile(source, []byte("Went for a walk today."), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := p.ProcessText(context.Background(), source)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if res.Complete {
		t.Fatal("first pass should be partial")
	}
	if readDoc(t, res.OutputPath).Meta.Title != document.UntitledTitle {
		t.Fatal("partial document should carry the sentinel title")
	}
	if _, err := os.Stat(source); err != nil {
		t.Fatalf("partial completion must leave the text source in place: %v", err)
	}

	// The collaborator recovers; the scanner hands the stranded note back.
	client.metadataErr = nil
	client.metadata = healthyMetadata

	res, err = p.ProcessText(context.Background(), source)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if !res.Complete {
		t.Fatal("second pass should complete")
	}
	if got := readDoc(t, res.OutputPath).Meta.Title; got != "Morning Walk" {
		t.Fatalf("unexpected title %q", got)
	}
	if _, err := os.Stat(source); !os.IsNotExist(err) {
		t.Fatal("completed text source should be removed")
	}
}

func TestIngestSyncFailureOffloadsForRetry(t *testing.T) {
	client := &fakeClient{metadata: healthyMetadata, uploadErr: errors.New("store down")}
	p, cfg := newTestPipeline(t, client, nil)

	source := filepath.Join(cfg.Paths.TextInboxDir, "note.txt")
	if err := os.WriteFile(source, []byte("Went for a walk today."), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := p.ProcessText(context.Background(), source)
	if err != nil {
		t.Fatalf("process text: %v", err)
	}
	if !res.Complete {
		t.Fatal("a failed upload must not downgrade a complete ingestion")
	}
	if _, err := os.Stat(res.OutputPath); err != nil {
		t.Fatalf("document should be persisted: %v", err)
	}

	// The unsynced document must land in the retry root so the scanner
	// keeps re-attempting the upload.
	retryCopy := filepath.Join(cfg.RetryDir(), filepath.Base(res.OutputPath))
	if _, err := os.Stat(retryCopy); err != nil {
		t.Fatalf("unsynced document should be offloaded to the retry root: %v", err)
	}

	client.uploadErr = nil
	res, err = p.ProcessText(context.Background(), retryCopy)
	if err != nil {
		t.Fatalf("retry pass: %v", err)
	}
	if !res.Complete {
		t.Fatal("retry pass should complete once the store recovers")
	}
	if got := len(client.uploads); got != 1 {
		t.Fatalf("expected one upload after recovery, got %d", got)
	}
	if _, err := os.Stat(retryCopy); !os.IsNotExist(err) {
		t.Fatal("retry copy should be removed after a successful sync")
	}
	if docs := knowledgeDocs(t, cfg); len(docs) != 1 {
		t.Fatalf("expected a single knowledge document, got %v", docs)
	}
}

func TestDreamIngestRunsAnalysis(t *testing.T) {
	client := &fakeClient{metadata: healthyMetadata, analysis: "Recurring theme: falling."}
	p, _ := newTestPipeline(t, client, nil)

	source := "Last night I had a dream about flying over water."
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := p.ProcessText(context.Background(), path)
	if err != nil {
		t.Fatalf("process text: %v", err)
	}
	doc := readDoc(t, res.OutputPath)
	if doc.Meta.Type != "Dreams" {
		t.Fatalf("expected dream classification, got %q", doc.Meta.Type)
	}
	if doc.Analysis != "Recurring theme: falling." {
		t.Fatalf("missing analysis section: %q", doc.Analysis)
	}
	if !res.Complete {
		t.Fatal("analysis succeeded; run should be complete")
	}
}

func TestRepairCompletesAndPromotes(t *testing.T) {
	client := &fakeClient{metadata: healthyMetadata}
	p, cfg := newTestPipeline(t, client, nil)

	stranded := &document.Document{
		Meta: document.FrontMatter{
			ID:      "2025-03-14-diary-1",
			Title:   document.UntitledTitle,
			Date:    "2025-03-14",
			Time:    "07:45",
			Type:    "Personal Diary",
			Aliases: []string{"memo.m4a"},
		},
		Transcript: "Went for a walk today.",
	}
	retryPath := filepath.Join(cfg.RetryDir(), "2025-03-14-diary-1.md")
	if err := stranded.WriteFile(retryPath); err != nil {
		t.Fatal(err)
	}

	res, err := p.ProcessText(context.Background(), retryPath)
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if !res.Complete {
		t.Fatal("repair with healthy collaborator should complete")
	}

	official := filepath.Join(cfg.Paths.KnowledgeDir, "Personal Diary", "2025-03-14-diary-1.md")
	if res.OutputPath != official {
		t.Fatalf("unexpected output path %q", res.OutputPath)
	}
	doc := readDoc(t, official)
	if doc.Meta.Title != "Morning Walk" {
		t.Fatalf("title not repaired: %q", doc.Meta.Title)
	}
	if doc.Meta.ID != "2025-03-14-diary-1" {
		t.Fatalf("identifier must survive repair, got %q", doc.Meta.ID)
	}
	if _, err := os.Stat(retryPath); !os.IsNotExist(err) {
		t.Fatal("retry copy should be deleted after promotion")
	}
	if len(client.uploads) != 1 {
		t.Fatalf("repaired document should sync once, got %v", client.uploads)
	}
}

func TestRepairSkipsWhenServerUnreachable(t *testing.T) {
	client := &fakeClient{
		metadataErr: errors.New("connection refused"),
		healthErr:   errors.New("connection refused"),
	}
	p, cfg := newTestPipeline(t, client, nil)

	stranded := &document.Document{
		Meta: document.FrontMatter{
			ID:    "2025-03-14-diary-1",
			Title: document.UntitledTitle,
			Date:  "2025-03-14",
			Type:  "Personal Diary",
		},
		Transcript: "Went for a walk today.",
	}
	retryPath := filepath.Join(cfg.RetryDir(), "2025-03-14-diary-1.md")
	if err := stranded.WriteFile(retryPath); err != nil {
		t.Fatal(err)
	}
	before, err := os.ReadFile(retryPath)
	if err != nil {
		t.Fatal(err)
	}

	res, err := p.ProcessText(context.Background(), retryPath)
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if res.Complete {
		t.Fatal("unreachable server must leave the file for a later pass")
	}
	after, err := os.ReadFile(retryPath)
	if err != nil {
		t.Fatalf("file should remain in the retry root: %v", err)
	}
	if string(before) != string(after) {
		t.Fatal("file must not be rewritten during an outage")
	}
	if len(client.uploads) != 0 {
		t.Fatalf("no sync during outage, got %v", client.uploads)
	}
}

func TestRepairUsesFallbackTitleWhenServerHealthy(t *testing.T) {
	client := &fakeClient{metadata: "no json here"}
	p, cfg := newTestPipeline(t, client, nil)

	stranded := &document.Document{
		Meta: document.FrontMatter{
			ID:    "2025-03-14-diary-1",
			Title: document.UntitledTitle,
			Date:  "2025-03-14",
			Type:  "Personal Diary",
		},
		Transcript: "Went for a walk today.",
	}
	retryPath := filepath.Join(cfg.RetryDir(), "2025-03-14-diary-1.md")
	if err := stranded.WriteFile(retryPath); err != nil {
		t.Fatal(err)
	}

	res, err := p.ProcessText(context.Background(), retryPath)
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if !res.Complete {
		t.Fatalf("fallback title should complete the document, got %+v", res)
	}
	doc := readDoc(t, res.OutputPath)
	if doc.Meta.Title != "Recovered Entry 2025-03-14" {
		t.Fatalf("unexpected fallback title %q", doc.Meta.Title)
	}
}

func TestRepairAbandonsMalformedFrontMatter(t *testing.T) {
	client := &fakeClient{metadata: healthyMetadata}
	p, cfg := newTestPipeline(t, client, nil)

	retryPath := filepath.Join(cfg.RetryDir(), "broken.md")
	content := "---\n\tnot: [valid\n---\n\nbody"
	if err := os.WriteFile(retryPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := p.ProcessText(context.Background(), retryPath); err == nil {
		t.Fatal("expected parse error")
	}
	after, err := os.ReadFile(retryPath)
	if err != nil {
		t.Fatalf("malformed file must not be deleted: %v", err)
	}
	if string(after) != content {
		t.Fatal("malformed file must not be rewritten")
	}
}

func TestSyncExistingLinksFocusCollection(t *testing.T) {
	client := &fakeClient{metadata: healthyMetadata}
	p, cfg := newTestPipeline(t, client, nil)

	doc := &document.Document{
		Meta: document.FrontMatter{
			ID:    "2025-03-14-diary-1",
			Title: "Morning Walk",
			Date:  "2025-03-14",
			Type:  "Personal Diary",
			Tags:  []string{"FOCUS", "garden"},
		},
		Transcript: "Went for a walk today.",
	}
	path := filepath.Join(cfg.Paths.KnowledgeDir, "Personal Diary", "2025-03-14-diary-1.md")
	if err := doc.WriteFile(path); err != nil {
		t.Fatal(err)
	}

	res, err := p.SyncExisting(context.Background(), path)
	if err != nil {
		t.Fatalf("sync existing: %v", err)
	}
	if !res.Complete {
		t.Fatal("sync should succeed")
	}
	linked := client.linkedCollections()
	if len(linked) != 2 || linked[0] != "col-diary" || linked[1] != "col-focus" {
		t.Fatalf("unexpected collection links %v", linked)
	}
}

func TestSyncExistingOffloadsOnFailure(t *testing.T) {
	client := &fakeClient{uploadErr: errors.New("store down")}
	p, cfg := newTestPipeline(t, client, nil)

	doc := &document.Document{
		Meta: document.FrontMatter{
			ID:    "2025-03-14-diary-1",
			Title: "Morning Walk",
			Date:  "2025-03-14",
			Type:  "Personal Diary",
		},
		Transcript: "Went for a walk today.",
	}
	path := filepath.Join(cfg.Paths.KnowledgeDir, "Personal Diary", "2025-03-14-diary-1.md")
	if err := doc.WriteFile(path); err != nil {
		t.Fatal(err)
	}

	res, err := p.SyncExisting(context.Background(), path)
	if err != nil {
		t.Fatalf("sync existing: %v", err)
	}
	if res.Complete {
		t.Fatal("failed upload should report incomplete")
	}
	offloaded := filepath.Join(cfg.RetryDir(), "2025-03-14-diary-1.md")
	if _, err := os.Stat(offloaded); err != nil {
		t.Fatalf("failed sync should offload to the retry root: %v", err)
	}
}
