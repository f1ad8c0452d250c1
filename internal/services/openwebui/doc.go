// Package openwebui wraps the Open WebUI HTTP API used by the pipeline: chat
// completions for metadata enrichment and analysis, file upload into the
// knowledge store, and collection membership. Transient failures surface as
// errors the pipeline maps to retry-directory placement; the client itself
// retries rate limits and server errors with capped backoff.
package openwebui
