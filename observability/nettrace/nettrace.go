// Package nettrace adapts golang.org/x/net/trace to the observability.Tracer
// contract, giving the recognizer pool (§5) a /debug/requests-style
// inspector for in-flight recognizer calls and the per-request timeout
// sweep.
package nettrace

import (
	"context"

	"golang.org/x/net/trace"

	"github.com/wudi/ocrpipe/observability"
)

// Tracer implements observability.Tracer on top of golang.org/x/net/trace
// event traces, grouped under a fixed family so they show up together in
// the /debug/requests page.
type Tracer struct {
	Family string
}

// New constructs a Tracer that groups spans under family (e.g.
// "ocrpipe.recognizer").
func New(family string) *Tracer {
	return &Tracer{Family: family}
}

func (t *Tracer) StartSpan(ctx context.Context, name string) (context.Context, observability.Span) {
	family := t.Family
	if family == "" {
		family = "ocrpipe"
	}
	tr := trace.New(family, name)
	return ctx, &span{tr: tr}
}

type span struct {
	tr trace.Trace
}

func (s *span) SetTag(key string, value interface{}) {
	s.tr.LazyPrintf("%s=%v", key, value)
}

func (s *span) SetError(err error) {
	if err == nil {
		return
	}
	s.tr.LazyPrintf("error=%v", err)
	s.tr.SetError()
}

func (s *span) Finish() {
	s.tr.Finish()
}
