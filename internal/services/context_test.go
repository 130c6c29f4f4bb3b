package services

import (
	"context"
	"testing"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	ctx = WithJobID(ctx, "some-video")
	ctx = WithStage(ctx, "transcription")
	ctx = WithRequestID(ctx, "req-1")

	if id, ok := JobIDFromContext(ctx); !ok || id != "some-video" {
		t.Fatalf("job id = %q, %v", id, ok)
	}
	if stage, ok := StageFromContext(ctx); !ok || stage != "transcription" {
		t.Fatalf("stage = %q, %v", stage, ok)
	}
	if rid, ok := RequestIDFromContext(ctx); !ok || rid != "req-1" {
		t.Fatalf("request id = %q, %v", rid, ok)
	}
}

func TestContextEmptyValuesIgnored(t *testing.T) {
	ctx := WithStage(context.Background(), "")
	if _, ok := StageFromContext(ctx); ok {
		t.Fatal("expected no stage for empty value")
	}
}
