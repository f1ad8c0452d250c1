package pipeline

import (
	"context"

	"quill/internal/config"
	"quill/internal/document"
	"quill/internal/logging"
	"quill/internal/services/openwebui"
)

// enrichmentExcerptLimit caps how much cleaned text the metadata prompt sees.
const enrichmentExcerptLimit = 2500

// enrichment is the metadata block requested from the model.
type enrichment struct {
	Title      string   `json:"title"`
	Language   string   `json:"language"`
	Emotions   []string `json:"emotions"`
	Characters []string `json:"characters"`
	Summary    string   `json:"summary"`
}

func defaultEnrichment() enrichment {
	return enrichment{
		Title:      document.UntitledTitle,
		Language:   "en",
		Emotions:   []string{},
		Characters: []string{},
	}
}

// enrich asks the model for title, summary, language, emotions, and
// characters. Any failure returns the sentinel defaults; enrichment never
// aborts an ingestion run.
func (p *Pipeline) enrich(ctx context.Context, text string) enrichment {
	userPrompt := p.cfg.Metadata.UserPrompt + "\n\nTEXT:\n" + excerpt(text, enrichmentExcerptLimit)
	response, err := p.client.ChatCompletion(ctx, p.cfg.Metadata.SystemPrompt, userPrompt)
	if err != nil {
		p.logger.Warn("enrichment request failed", logging.Error(err))
		return defaultEnrichment()
	}

	result := defaultEnrichment()
	if err := openwebui.DecodeModelJSON(response, &result); err != nil {
		p.logger.Warn("enrichment response unparseable", logging.Error(err))
		return defaultEnrichment()
	}
	if result.Title == "" {
		result.Title = document.UntitledTitle
	}
	if result.Language == "" {
		result.Language = "en"
	}
	if result.Emotions == nil {
		result.Emotions = []string{}
	}
	if result.Characters == nil {
		result.Characters = []string{}
	}
	return result
}

// analyze runs the content type's analysis prompts over the transcript.
// Failures degrade to an empty result; the repair pass will try again.
func (p *Pipeline) analyze(ctx context.Context, contentType config.ContentType, text string) string {
	p.logger.Info("running analysis", logging.String(logging.FieldContentType, contentType.Key))
	userPrompt := contentType.UserPrompt + "\n\nTRANSCRIPT:\n" + text
	response, err := p.client.ChatCompletion(ctx, contentType.SystemPrompt, userPrompt)
	if err != nil {
		p.logger.Warn("analysis request failed",
			logging.String(logging.FieldContentType, contentType.Key), logging.Error(err))
		return ""
	}
	return response
}

func excerpt(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
