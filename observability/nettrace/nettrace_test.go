package nettrace

import (
	"context"
	"errors"
	"testing"
)

func TestTracerStartSpanRecordsTagsAndErrors(t *testing.T) {
	tracer := New("ocrpipe.test")
	ctx, span := tracer.StartSpan(context.Background(), "recognize-page")
	if ctx == nil {
		t.Fatalf("expected non-nil context")
	}
	span.SetTag("page", 1)
	span.SetError(errors.New("boom"))
	span.Finish()
}

func TestTracerDefaultsFamilyWhenEmpty(t *testing.T) {
	tracer := New("")
	_, span := tracer.StartSpan(context.Background(), "op")
	span.Finish()
}
