package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"photo-grouper/internal/config"
	"photo-grouper/internal/llm"
	"photo-grouper/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type Stage string

const (
	StageReceived   Stage = "received"
	StageResized    Stage = "resized"
	StageQueried    Stage = "queried"
	StageExtracted  Stage = "extracted"
	StageReconciled Stage = "reconciled"
	StageAssembled  Stage = "assembled"
	StageResponded  Stage = "responded"
	StageFailed     Stage = "failed"
)

// Observer receives pipeline measurements. The metrics package implements it.
type Observer interface {
	ObserveStage(stage string, d time.Duration)
	ObserveUpstream(provider, result string, d time.Duration)
	ObserveRepair(kind string)
	ObserveBatch(result string, admitted, rejected int)
}

// Recorder persists batch outcomes for later inspection.
type Recorder interface {
	Record(ctx context.Context, rec models.BatchRecord) error
}

type Outcome struct {
	BatchID     string
	TotalFiles  int
	Items       []models.UploadedItem
	Rejected    []models.RejectedFile
	Results     []models.ProductResult
	Repairs     []Repair
	RawResponse string
}

// Pipeline runs one batch: admit, resize, query, extract, reconcile and
// assemble. It holds no per-batch state, so one instance serves concurrent
// requests.
type Pipeline struct {
	cfg       config.ProcessingConfig
	client    llm.Client
	resizer   *ImageResizer
	engine    *GroupingEngine
	assembler *ResultAssembler
	observer  Observer
	recorder  Recorder
	log       logrus.FieldLogger
}

type PipelineOption func(*Pipeline)

func WithObserver(o Observer) PipelineOption { return func(p *Pipeline) { p.observer = o } }
func WithRecorder(r Recorder) PipelineOption { return func(p *Pipeline) { p.recorder = r } }

func NewPipeline(cfg config.ProcessingConfig, client llm.Client, engine *GroupingEngine, resizer *ImageResizer, assembler *ResultAssembler, log logrus.FieldLogger, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		cfg:       cfg,
		client:    client,
		resizer:   resizer,
		engine:    engine,
		assembler: assembler,
		log:       log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) Run(ctx context.Context, uploads []models.Upload, note string) (*Outcome, error) {
	out := &Outcome{
		BatchID:    uuid.NewString(),
		TotalFiles: len(uploads),
	}
	log := p.log.WithField("batch_id", out.BatchID)
	started := time.Now()

	err := p.run(ctx, out, uploads, note, log)

	result := ErrorKind(err)
	if p.observer != nil {
		p.observer.ObserveBatch(result, len(out.Items), len(out.Rejected))
	}
	p.record(ctx, out, err, log)

	if err != nil {
		log.WithFields(logrus.Fields{
			"stage":    StageFailed,
			"kind":     result,
			"error":    err.Error(),
			"duration": time.Since(started).String(),
		}).Error("Batch failed")
		return out, err
	}

	log.WithFields(logrus.Fields{
		"stage":    StageAssembled,
		"groups":   len(out.Results),
		"items":    len(out.Items),
		"rejected": len(out.Rejected),
		"repairs":  len(out.Repairs),
		"duration": time.Since(started).String(),
	}).Info("Batch processed")
	return out, nil
}

func (p *Pipeline) run(ctx context.Context, out *Outcome, uploads []models.Upload, note string, log logrus.FieldLogger) error {
	if len(uploads) > p.cfg.MaxBatch {
		return fmt.Errorf("%w: %d files, limit is %d", ErrBatchTooLarge, len(uploads), p.cfg.MaxBatch)
	}

	out.Items, out.Rejected = Admit(uploads, p.cfg.MaxImageBytes)
	for _, rej := range out.Rejected {
		log.WithFields(logrus.Fields{
			"filename": rej.Filename,
			"error":    rej.Error,
		}).Warn("File rejected")
	}
	log.WithFields(logrus.Fields{
		"stage":    StageReceived,
		"admitted": len(out.Items),
		"rejected": len(out.Rejected),
	}).Info("Batch received")

	if len(out.Items) == 0 {
		return fmt.Errorf("%w: %d files uploaded, none admitted", ErrNoValidItems, len(uploads))
	}

	stageStart := time.Now()
	images, err := p.resizeAll(ctx, out.Items)
	if err != nil {
		return fmt.Errorf("batch cancelled while resizing: %w", err)
	}
	p.observeStage(StageResized, stageStart)
	log.WithFields(logrus.Fields{
		"stage":    StageResized,
		"images":   len(images),
		"duration": time.Since(stageStart).String(),
	}).Debug("Images resized")

	stageStart = time.Now()
	raw, err := p.engine.Group(ctx, out.Items, images, note)
	if p.observer != nil {
		p.observer.ObserveUpstream(p.client.Name(), ErrorKind(err), time.Since(stageStart))
	}
	if err != nil {
		return err
	}
	out.RawResponse = raw
	p.observeStage(StageQueried, stageStart)
	log.WithFields(logrus.Fields{
		"stage":    StageQueried,
		"provider": p.client.Name(),
		"model":    p.client.Model(),
		"length":   len(raw),
	}).Debug("Model responded")

	stageStart = time.Now()
	claims, err := p.engine.Extract(raw)
	if err != nil {
		return err
	}
	p.observeStage(StageExtracted, stageStart)
	log.WithFields(logrus.Fields{
		"stage":  StageExtracted,
		"claims": len(claims),
	}).Debug("Claims extracted")

	stageStart = time.Now()
	groups, repairs := Reconcile(claims, out.Items)
	out.Repairs = repairs
	for _, r := range repairs {
		if p.observer != nil {
			p.observer.ObserveRepair(string(r.Kind))
		}
		log.WithFields(logrus.Fields{
			"stage":     StageReconciled,
			"repair":    r.Kind,
			"claim":     r.Claim,
			"reference": r.Reference,
			"index":     r.Index,
			"reason":    r.Reason,
		}).Warn("Reconciled model output")
	}
	p.observeStage(StageReconciled, stageStart)
	log.WithFields(logrus.Fields{
		"stage":   StageReconciled,
		"groups":  len(groups),
		"repairs": len(repairs),
	}).Debug("Groups reconciled")

	stageStart = time.Now()
	results, err := p.assembler.Assemble(groups, out.Items)
	if err != nil {
		return err
	}
	out.Results = results
	p.observeStage(StageAssembled, stageStart)
	return nil
}

func (p *Pipeline) resizeAll(ctx context.Context, items []models.UploadedItem) ([]llm.Image, error) {
	images := make([]llm.Image, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for i := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, mime := p.resizer.Resize(items[i].Data, p.cfg.MaxDimension)
			images[i] = llm.Image{Data: data, MimeType: mime}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}

func (p *Pipeline) observeStage(stage Stage, start time.Time) {
	if p.observer != nil {
		p.observer.ObserveStage(string(stage), time.Since(start))
	}
}

func (p *Pipeline) record(ctx context.Context, out *Outcome, err error, log logrus.FieldLogger) {
	if p.recorder == nil {
		return
	}

	rec := models.BatchRecord{
		BatchID:       out.BatchID,
		Provider:      p.client.Name(),
		Model:         p.client.Model(),
		AdmittedCount: len(out.Items),
		RejectedCount: len(out.Rejected),
		GroupCount:    len(out.Results),
		Status:        ErrorKind(err),
		RawResponse:   out.RawResponse,
	}
	if err != nil {
		rec.Error = err.Error()
		if raw := RawResponse(err); raw != "" {
			rec.RawResponse = raw
		}
	}

	if recErr := p.recorder.Record(context.WithoutCancel(ctx), rec); recErr != nil {
		log.WithFields(logrus.Fields{
			"error": recErr.Error(),
		}).Warn("Failed to archive batch")
	}
}

// Admit filters uploads by size and type. Admitted items are re-indexed
// contiguously from 0 in upload order.
func Admit(uploads []models.Upload, maxBytes int64) ([]models.UploadedItem, []models.RejectedFile) {
	var (
		items    []models.UploadedItem
		rejected []models.RejectedFile
	)
	for _, up := range uploads {
		if reason := admissionError(up, maxBytes); reason != "" {
			rejected = append(rejected, models.RejectedFile{Filename: up.Filename, Error: reason})
			continue
		}
		items = append(items, models.UploadedItem{
			Index:       len(items),
			Filename:    up.Filename,
			ContentType: contentType(up),
			Data:        up.Data,
			Size:        len(up.Data),
		})
	}
	return items, rejected
}

func admissionError(up models.Upload, maxBytes int64) string {
	size := up.Size
	if int64(len(up.Data)) > size {
		size = int64(len(up.Data))
	}
	switch {
	case size > maxBytes:
		return fmt.Sprintf("file too large (%d bytes, max %d)", size, maxBytes)
	case len(up.Data) == 0:
		return "file is empty"
	case !strings.HasPrefix(contentType(up), "image/"):
		return fmt.Sprintf("unsupported content type %q", contentType(up))
	}
	return ""
}

// contentType trusts the declared type unless it is missing or generic.
func contentType(up models.Upload) string {
	ct := strings.TrimSpace(strings.ToLower(up.ContentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == "" || ct == "application/octet-stream" {
		return http.DetectContentType(up.Data)
	}
	return ct
}
