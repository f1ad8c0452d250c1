package services_test

import (
	"context"
	"testing"

	"quill/internal/services"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	if _, ok := services.NotePathFromContext(ctx); ok {
		t.Fatal("expected empty context to carry no note path")
	}

	ctx = services.WithNotePath(ctx, "/inbox/a.m4a")
	ctx = services.WithStage(ctx, "extract")
	ctx = services.WithRequestID(ctx, "req-1")

	if path, ok := services.NotePathFromContext(ctx); !ok || path != "/inbox/a.m4a" {
		t.Fatalf("note path = %q, %v", path, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "extract" {
		t.Fatalf("stage = %q, %v", stage, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-1" {
		t.Fatalf("request id = %q, %v", rid, ok)
	}
}

func TestEmptyValuesNotStored(t *testing.T) {
	ctx := services.WithStage(context.Background(), "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("empty stage should not be stored")
	}
	ctx = services.WithRequestID(context.Background(), "")
	if _, ok := services.RequestIDFromContext(ctx); ok {
		t.Fatal("empty request id should not be stored")
	}
}
