// Package pipeline implements the per-page orchestrator of §4.I: it
// sequences preprocessing, recognition, the recovery suite, and the filter
// suite into a single PageResult, honoring the recovery budget and the
// error-propagation policy of §7.
package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"sort"
	"strings"

	"github.com/wudi/ocrpipe/cache"
	"github.com/wudi/ocrpipe/filters"
	"github.com/wudi/ocrpipe/geo"
	"github.com/wudi/ocrpipe/imageprep"
	"github.com/wudi/ocrpipe/observability"
	"github.com/wudi/ocrpipe/page"
	"github.com/wudi/ocrpipe/recognizer"
	"github.com/wudi/ocrpipe/recovery"
	"github.com/wudi/ocrpipe/spatial"
	"github.com/wudi/ocrpipe/textutil"
)

// AlgorithmVersion is stamped onto every emitted Result and checked by
// cache.Valid (§3, §6).
const AlgorithmVersion = 1

// Chunking thresholds for over-size pages (§4.E.3): pages wider than
// chunkMaxWidth or taller than chunkMaxHeight are tiled vertically.
const (
	chunkMaxWidth  = 4000
	chunkMaxHeight = 8000
	chunkHeight    = 4000
	chunkOverlap   = 200
)

// Request carries one page's recognition request into the orchestrator.
type Request struct {
	DocumentID        string
	PageNumber        int
	Image             []byte
	Language          string
	DPI               int
	PSM               string // caller override; empty selects the §4.I default
	DebugCollectDrops bool
}

// Config wires the orchestrator's optional collaborators. Cache, Logger,
// and Tracer default to no-ops when left nil.
type Config struct {
	Cache  cache.Cache
	Logger observability.Logger
	Tracer observability.Tracer
}

// Orchestrator sequences the pipeline of §4.I over a fixed recognizer
// driver, per the pool wiring of §5 (one driver handle per page, acquired
// by the caller before Process is invoked).
type Orchestrator struct {
	driver     recognizer.Driver
	cache      cache.Cache
	logger     observability.Logger
	tracer     observability.Tracer
	thresholds filters.Thresholds
}

// New constructs an Orchestrator over driver, applying cfg's collaborators
// (or their no-op defaults).
func New(driver recognizer.Driver, cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NopLogger{}
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	return &Orchestrator{
		driver:     driver,
		cache:      cfg.Cache,
		logger:     logger,
		tracer:     tracer,
		thresholds: filters.DefaultThresholds(),
	}
}

// Process runs the full §4.I procedure for one page.
func (o *Orchestrator) Process(ctx context.Context, req Request) (page.Result, error) {
	ctx, span := o.tracer.StartSpan(ctx, "pipeline.process")
	defer span.Finish()

	script := deriveScript(req.Language)

	// 2. Configure recognizer params (E): caller override, else
	// sparse_text for CJK else auto. Resolved ahead of the cache lookup so
	// the cache key reflects the psm actually used, not an unresolved
	// override.
	psm := req.PSM
	if psm == "" {
		if script.IsCJK() {
			psm = "sparse_text"
		} else {
			psm = "auto"
		}
	}

	cacheParams := cache.Params{Language: req.Language, DPI: req.DPI, PageSegMode: psm}
	if o.cache != nil && req.DocumentID != "" {
		if entry, ok := o.cache.Get(req.DocumentID, req.PageNumber); ok && cache.Valid(entry, cacheParams, AlgorithmVersion) {
			o.logger.Debug("cache hit", observability.String("document", req.DocumentID), observability.Int("page", req.PageNumber))
			span.SetTag(observability.MetricCacheHit, true)
			return entry.Result, nil
		}
	}
	span.SetTag(observability.MetricCacheMiss, true)

	// 1. Preprocess (A).
	pre, err := imageprep.Preprocess(req.Image, imageprep.Options{
		Binarize:   imageprep.BinarizationAllowed(script),
		ReturnGray: true,
	})
	if err != nil {
		span.SetError(err)
		return page.Result{}, err
	}
	preBytes, err := encodeRGBA(pre.Image)
	if err != nil {
		span.SetError(err)
		return page.Result{}, err
	}

	recReq := recognizer.PageRequest{
		Image: preBytes, Width: pre.Width, Height: pre.Height,
		DPI: req.DPI, Language: req.Language, PSM: psm,
	}

	// 3. Whole-page or chunked recognition (E.3, B).
	var out recognizer.PageOutput
	if pre.Width > chunkMaxWidth || pre.Height > chunkMaxHeight {
		out, err = recognizeChunked(ctx, o.driver, recReq)
	} else {
		out, err = o.driver.RecognizePage(ctx, recReq)
	}
	if err != nil {
		span.SetError(err)
		return page.Result{}, page.WrapError(page.KindRecognizer, "recognize-page", err)
	}

	st := page.NewState(pre.Width, pre.Height, req.DPI, req.Language, psm)
	st.Gray = pre.Gray
	st.DebugCollectDrops = req.DebugCollectDrops
	st.Words = out.Words
	st.Lines = out.Lines
	st.LineBoxes = out.LineBoxes
	for _, lb := range out.LineBoxes {
		if lineBoxHasWords(lb, out.Words) {
			st.LineKeysWithWords[lb.Key] = true
		}
	}
	st.RecoveryBudget = recovery.DefaultBudget(len(st.Words), script)

	// G.1's retry always wants a binarized raster even though the main
	// pass's policy (§4.A) disables binarization for CJK scripts; force a
	// second, binarize-only preprocessing pass to supply it rather than
	// re-running the recognizer against the un-binarized page.
	binarizedBytes := preBytes
	if script.IsCJK() {
		binPre, berr := imageprep.Preprocess(req.Image, imageprep.Options{Binarize: true})
		if berr != nil {
			span.SetError(berr)
			return page.Result{}, berr
		}
		if binarizedBytes, err = encodeRGBA(binPre.Image); err != nil {
			span.SetError(err)
			return page.Result{}, err
		}
	}

	rc := recovery.Context{Image: preBytes, BinarizedImage: binarizedBytes, Driver: o.driver, State: st, Script: script}

	// 4. CJK retry condition (G.1), called directly rather than through
	// recovery.Run; the words it admits are appended to the initial pass and
	// count against the recovery budget.
	if added, rerr := recovery.CJKRetry(ctx, rc); rerr != nil {
		o.logger.Warn("cjk retry failed", observability.Error("err", rerr))
	} else if added > 0 {
		o.rebuildLines(st, script)
	}

	// 5. Line noise cleanup (F.1), unless CJK+very-sparse (gated inside the
	// filter itself).
	filters.BuildProtectedSet(st, script, o.thresholds)
	filters.ApplyLineNoiseCleanup(st, script, o.thresholds)

	// 6. Recovery suite, stages G.2 -> G.7, budget-gated.
	recoveryStages := []recovery.Stage{
		recovery.CJKVerticalGapRescan,
		recovery.LineRescanLowCoverage,
		recovery.LatinNeighborhoodRescue,
		recovery.EmptyLineBoxFallback,
		recovery.LargeGapFallback,
		recovery.TopBandProbe,
	}
	for _, stage := range recoveryStages {
		added, rerr := recovery.Run(ctx, rc, stage)
		if rerr != nil {
			o.logger.Warn("recovery stage failed", observability.Error("err", rerr))
			continue
		}
		if added > 0 {
			o.rebuildLines(st, script)
			span.SetTag(observability.MetricRecoveryAdded, st.RecoveryAdded)
		}
	}

	// 7. Image-tile (F.3), background-variance (F.4); CJK-specific filters.
	filters.BuildProtectedSet(st, script, o.thresholds)
	filters.ApplyImageTileMask(st, script, o.thresholds)
	filters.ApplyBackgroundVariance(st, script, o.thresholds)
	if script.IsCJK() {
		filters.ApplyIsolatedCJKNoise(st, script, o.thresholds)
		if script.Korean {
			filters.ApplyKoreanJamoGhosts(st, script, o.thresholds)
		}
		filters.ApplyWeakIsolatedCJKLines(st, script, o.thresholds)
	}

	// 8. Latin watermark (F.8) + garbage pruners (F.9), then the protected
	// set is rebuilt and the tile/background filters run once more. No
	// dropped words are re-recognized or rescued in this step.
	if script.IsLatinOnly() {
		filters.ApplyWatermarkSuppression(st, script, o.thresholds)
		highRecall := filters.ShouldUseHighRecall(st, o.thresholds)
		filters.ApplyLatinGarbagePruners(st, script, o.thresholds, highRecall)

		filters.BuildProtectedSet(st, script, o.thresholds)
		filters.ApplyImageTileMask(st, script, o.thresholds)
		filters.ApplyBackgroundVariance(st, script, o.thresholds)
	}

	// 9. Post-prune line rescue (G.8).
	if added, rerr := recovery.Run(ctx, rc, recovery.PostPruneLineRescue); rerr != nil {
		o.logger.Warn("post-prune line rescue failed", observability.Error("err", rerr))
	} else if added > 0 {
		o.rebuildLines(st, script)
	}

	// 10. Final line rebuild + normalization.
	o.rebuildLines(st, script)
	st.Lines = spatial.NormalizeFinalLines(st.Lines, script, func(words []page.Word) bool {
		line := page.Line{Words: words}
		return filters.LineLexicalHits(line) >= o.thresholds.ReadabilityMinLexicalHits
	})

	// 11. Construct full_text.
	fullText := constructFullText(st, script, out.PlainText, o.thresholds)

	confidence := meanWordConfidence(st.Words)

	result := page.Result{
		PageNumber:       req.PageNumber,
		Width:            pre.Width,
		Height:           pre.Height,
		DPI:              req.DPI,
		Language:         req.Language,
		PageSegMode:      psm,
		AlgorithmVersion: AlgorithmVersion,
		Words:            st.Words,
		Lines:            st.Lines,
		Text:             fullText,
		Confidence:       confidence,
	}
	if req.DebugCollectDrops {
		result.Debug = &page.DebugInfo{Drops: st.Drops}
	}

	// 12. Emit PageResult, refreshing the cache.
	if o.cache != nil && req.DocumentID != "" {
		o.cache.Put(req.DocumentID, req.PageNumber, cache.Entry{
			DocumentID: req.DocumentID,
			Page:       req.PageNumber,
			Result:     result,
			Params:     cacheParams,
		})
	}
	return result, nil
}

func (o *Orchestrator) rebuildLines(st *page.State, script page.Script) {
	st.Lines = spatial.RebuildLinesFromWords(st.Lines, st.Words, script)
	if len(st.Lines) == 0 && len(st.Words) > 0 {
		st.Lines = spatial.BuildLinesFromWordsByY(st.Words, float64(st.Height))
	}
}

// encodeRGBA PNG-encodes a preprocessed canvas so it can be threaded into
// a recognizer.PageRequest or recovery.Context, both of which carry images
// as encoded bytes rather than decoded rasters.
func encodeRGBA(img *image.RGBA) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, page.WrapError(page.KindPreprocess, "encode", err)
	}
	return buf.Bytes(), nil
}

func deriveScript(language string) page.Script {
	kind, korean := textutil.ScriptForLanguage(language)
	return page.Script{Kind: page.ScriptKind(kind), Korean: korean}
}

func lineBoxHasWords(lb page.LineBox, words []page.Word) bool {
	for _, w := range words {
		if geo.IoU(w.Box, lb.Box) > 0 || geo.Intersect(w.Box, lb.Box).Area() > 0 {
			return true
		}
	}
	return false
}

// recognizeChunked tiles an over-size page vertically (§4.E.3: chunk
// height 4000, overlap 200) and deduplicates words landing in the overlap
// band by a quantized (x0,y0,x1,y1,text) key.
func recognizeChunked(ctx context.Context, d recognizer.Driver, req recognizer.PageRequest) (recognizer.PageOutput, error) {
	var chunks []geo.BBox
	for y := 0; y < req.Height; y += chunkHeight - chunkOverlap {
		y1 := y + chunkHeight
		if y1 > req.Height {
			y1 = req.Height
		}
		chunks = append(chunks, geo.BBox{X0: 0, Y0: float64(y), X1: float64(req.Width), Y1: float64(y1)})
		if y1 >= req.Height {
			break
		}
	}

	out, err := recognizer.RecognizeChunked(ctx, d, req, chunks)
	if err != nil {
		return recognizer.PageOutput{}, err
	}
	out.Words = dedupQuantized(out.Words)
	return out, nil
}

// dedupQuantized removes exact duplicate words (same rounded box and text)
// produced when a chunk's overlap band is recognized twice.
func dedupQuantized(words []page.Word) []page.Word {
	seen := make(map[string]bool, len(words))
	out := make([]page.Word, 0, len(words))
	for _, w := range words {
		key := quantizedKey(w)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, w)
	}
	return out
}

func quantizedKey(w page.Word) string {
	round := func(v float64) int64 { return int64(v + 0.5) }
	var b strings.Builder
	writeInt(&b, round(w.Box.X0))
	b.WriteByte(',')
	writeInt(&b, round(w.Box.Y0))
	b.WriteByte(',')
	writeInt(&b, round(w.Box.X1))
	b.WriteByte(',')
	writeInt(&b, round(w.Box.Y1))
	b.WriteByte(',')
	b.WriteString(w.Text)
	return b.String()
}

func writeInt(b *strings.Builder, v int64) {
	if v < 0 {
		b.WriteByte('-')
		v = -v
	}
	if v == 0 {
		b.WriteByte('0')
		return
	}
	var digits [20]byte
	i := len(digits)
	for v > 0 {
		i--
		digits[i] = byte('0' + v%10)
		v /= 10
	}
	b.Write(digits[i:])
}

// constructFullText implements §4.I step 11: lines joined by newline, else
// words joined by spaces, else the raw recognizer text subject to a Latin
// readability gate.
func constructFullText(st *page.State, script page.Script, rawText string, cfg filters.Thresholds) string {
	if lines := nonEmptyLineTexts(st.Lines); len(lines) > 0 {
		return strings.Join(lines, "\n")
	}
	if len(st.Words) > 0 {
		tokens := make([]string, len(st.Words))
		for i, w := range st.Words {
			tokens[i] = w.Text
		}
		return strings.Join(tokens, " ")
	}
	rawText = strings.TrimSpace(rawText)
	if rawText == "" {
		return ""
	}
	if script.IsLatinOnly() && !rawTextReadable(rawText, cfg) {
		return ""
	}
	return rawText
}

func nonEmptyLineTexts(lines []page.Line) []string {
	out := make([]string, 0, len(lines))
	sorted := append([]page.Line(nil), lines...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Box.Y0 < sorted[j].Box.Y0 })
	for _, l := range sorted {
		if strings.TrimSpace(l.Text) != "" {
			out = append(out, l.Text)
		}
	}
	return out
}

// rawTextReadable scores the raw recognizer plain text with the same
// readability model filter 10 uses, treating each whitespace-separated
// token as a word of neutral confidence (the raw text carries none).
func rawTextReadable(text string, cfg filters.Thresholds) bool {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return false
	}
	words := make([]page.Word, len(fields))
	for i, f := range fields {
		words[i] = page.Word{Text: f, Confidence: 60}
	}
	line := page.Line{Words: words}
	return filters.LineReadability(line, cfg) >= cfg.ReadabilityMinScore
}

func meanWordConfidence(words []page.Word) float64 {
	if len(words) == 0 {
		return 0
	}
	var sum float64
	for _, w := range words {
		sum += w.Confidence
	}
	return sum / float64(len(words))
}
