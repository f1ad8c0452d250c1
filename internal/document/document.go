// Package document models the markdown knowledge documents the pipeline
// produces: a YAML front-matter block followed by a transcript section and
// an optional analysis section.
package document

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// UntitledTitle marks a document whose enrichment has not produced a real
// title yet. Documents carrying it are queued for repair.
const UntitledTitle = "Untitled"

const (
	frontMatterDelimiter = "---"
	transcriptHeading    = "## Transcript"
	analysisHeading      = "## Analysis"
)

// FrontMatter is the metadata block at the head of every knowledge document.
// Field order here is the serialization order.
type FrontMatter struct {
	ID         string   `yaml:"id"`
	Language   string   `yaml:"language"`
	Title      string   `yaml:"title"`
	Aliases    []string `yaml:"aliases"`
	Date       string   `yaml:"date"`
	Time       string   `yaml:"time"`
	Type       string   `yaml:"type"`
	Tags       []string `yaml:"tags"`
	Emotions   []string `yaml:"emotions"`
	Characters []string `yaml:"characters"`
	Summary    string   `yaml:"summary"`
	Related    string   `yaml:"related"`
	Focus      bool     `yaml:"focus"`
}

// Document is a parsed or to-be-written knowledge document.
type Document struct {
	Meta       FrontMatter
	Transcript string
	Analysis   string
}

// HasFrontMatter reports whether content opens with a front-matter block,
// distinguishing previously persisted documents from raw text input.
func HasFrontMatter(content string) bool {
	return strings.HasPrefix(content, frontMatterDelimiter)
}

// Parse decodes a knowledge document. The transcript is the text between the
// transcript heading and the analysis heading (or end of file); malformed or
// unterminated front matter is an error.
func Parse(content string) (*Document, error) {
	if !HasFrontMatter(content) {
		return nil, errors.New("document: missing front matter")
	}
	rest := strings.TrimPrefix(content, frontMatterDelimiter)
	end := strings.Index(rest, "\n"+frontMatterDelimiter)
	if end < 0 {
		return nil, errors.New("document: unterminated front matter")
	}
	var meta FrontMatter
	if err := yaml.Unmarshal([]byte(rest[:end]), &meta); err != nil {
		return nil, fmt.Errorf("document: invalid front matter: %w", err)
	}
	doc := &Document{Meta: meta}
	doc.Transcript, doc.Analysis = splitBody(rest[end+len("\n"+frontMatterDelimiter):])
	return doc, nil
}

func splitBody(body string) (transcript, analysis string) {
	if i := strings.Index(body, analysisHeading); i >= 0 {
		analysis = strings.TrimSpace(body[i+len(analysisHeading):])
		body = body[:i]
	}
	if i := strings.Index(body, transcriptHeading); i >= 0 {
		body = body[i+len(transcriptHeading):]
	}
	return strings.TrimSpace(body), analysis
}

// Render serializes the document back to markdown. Front-matter keys keep
// their declared order and list fields are always emitted, so round-tripping
// a document through Parse and Render is stable.
func (d *Document) Render() (string, error) {
	meta := d.Meta
	if meta.Aliases == nil {
		meta.Aliases = []string{}
	}
	if meta.Tags == nil {
		meta.Tags = []string{}
	}
	if meta.Emotions == nil {
		meta.Emotions = []string{}
	}
	if meta.Characters == nil {
		meta.Characters = []string{}
	}
	raw, err := yaml.Marshal(&meta)
	if err != nil {
		return "", fmt.Errorf("document: encode front matter: %w", err)
	}

	var b strings.Builder
	b.WriteString(frontMatterDelimiter)
	b.WriteString("\n")
	b.Write(raw)
	b.WriteString(frontMatterDelimiter)
	b.WriteString("\n\n")
	b.WriteString(transcriptHeading)
	b.WriteString("\n\n")
	b.WriteString(d.Transcript)
	if d.Analysis != "" {
		b.WriteString("\n\n")
		b.WriteString(analysisHeading)
		b.WriteString("\n\n")
		b.WriteString(d.Analysis)
	}
	b.WriteString("\n")
	return b.String(), nil
}

// WriteFile renders the document and writes it to path.
func (d *Document) WriteFile(path string) error {
	content, err := d.Render()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("document: write %s: %w", path, err)
	}
	return nil
}

// NeedsTitle reports whether the document still carries the sentinel title.
// A YAML null decodes to the empty string, which counts as missing too.
func (d *Document) NeedsTitle() bool {
	switch d.Meta.Title {
	case "", UntitledTitle, "null":
		return true
	}
	return false
}

// Complete reports whether the document needs no further repair.
func (d *Document) Complete(analysisRequired bool) bool {
	if d.NeedsTitle() {
		return false
	}
	return !analysisRequired || d.Analysis != ""
}

// FallbackTitle is the deterministic title given to a document whose
// enrichment keeps failing even though the collaborator is reachable.
func FallbackTitle(date string) string {
	return strings.TrimSpace("Recovered Entry " + date)
}

// AllocateID finds the smallest counter n >= 1 for which
// <date>-<typeKey>-<n>.md does not yet exist in dir, and returns that
// identifier together with the resulting path.
func AllocateID(dir, date, typeKey string) (id, path string, err error) {
	for n := 1; ; n++ {
		id = fmt.Sprintf("%s-%s-%d", date, typeKey, n)
		path = filepath.Join(dir, id+".md")
		if _, statErr := os.Stat(path); statErr != nil {
			if errors.Is(statErr, fs.ErrNotExist) {
				return id, path, nil
			}
			return "", "", fmt.Errorf("document: probe %s: %w", path, statErr)
		}
	}
}
