package workflow

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ymu4/document-processor/config"
	"github.com/ymu4/document-processor/internal/agent/analyzer"
	"github.com/ymu4/document-processor/internal/agent/metrics"
	"github.com/ymu4/document-processor/internal/agent/recovery"
	"github.com/ymu4/document-processor/internal/llm"
	"github.com/ymu4/document-processor/internal/models"
	"github.com/ymu4/document-processor/pkg/converters"
	"github.com/ymu4/document-processor/pkg/logger"
)

// ErrNothingToAnalyze is returned when generation is asked for an unparsed record.
var ErrNothingToAnalyze = errors.New("no parsed document to analyze")

var graphDeclRe = regexp.MustCompile(`(?m)^[ \t]*(graph|flowchart)\b`)

// WorkflowService turns documents into process artifacts and optimizes them.
type WorkflowService interface {
	Generate(ctx context.Context, rec *models.DocumentRecord) (*models.GeneratedArtifacts, error)
	Optimize(ctx context.Context, req models.OptimizeRequest) (*models.OptimizeResult, error)
	Metrics(document, diagram string) models.ProcessMetrics
}

type ServiceConfig struct {
	WorkdayHours          float64
	DefaultSavingsPercent int
	MaxPromptRunes        int
}

// ConfigFrom adapts the application config.
func ConfigFrom(cfg *config.Config) *ServiceConfig {
	return &ServiceConfig{
		WorkdayHours:          cfg.Metrics.WorkdayHours,
		DefaultSavingsPercent: cfg.Metrics.DefaultSavingsPercent,
		MaxPromptRunes:        cfg.LLM.MaxPromptRunes,
	}
}

type Service struct {
	generator llm.Generator
	diagrams  *metrics.DiagramExtractor
	documents *metrics.DocumentExtractor
	merger    *metrics.Merger
	recovery  *recovery.Parser
	converter *converters.HTMLConverter
	logger    logger.Logger
	config    *ServiceConfig
}

func NewService(gen llm.Generator, log logger.Logger, cfg *ServiceConfig) *Service {
	if cfg == nil {
		cfg = &ServiceConfig{
			WorkdayHours:          8,
			DefaultSavingsPercent: metrics.DefaultSavingsPercent,
			MaxPromptRunes:        60000,
		}
	}
	log = log.Named("workflow")
	return &Service{
		generator: gen,
		diagrams:  metrics.NewDiagramExtractor(cfg.WorkdayHours, log),
		documents: metrics.NewDocumentExtractor(cfg.WorkdayHours, log),
		merger:    metrics.NewMerger(cfg.WorkdayHours, cfg.DefaultSavingsPercent),
		recovery:  recovery.NewParser(log),
		converter: converters.NewHTMLConverter(),
		logger:    log,
		config:    cfg,
	}
}

// Generate asks the provider for a process document and a flow diagram, then
// derives merged metrics from both.
func (s *Service) Generate(ctx context.Context, rec *models.DocumentRecord) (*models.GeneratedArtifacts, error) {
	if rec == nil || !rec.Parsed {
		return nil, ErrNothingToAnalyze
	}

	content := truncateRunes(rec.PlainText(","), s.config.MaxPromptRunes)
	hints := analyzer.Analyze(rec)
	names := rec.FileNames
	if len(names) == 0 {
		names = []string{rec.FileName}
	}

	var docRaw, diagramRaw string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := s.generator.Generate(gctx, documentPrompt(names, content, hints), documentSystem, llm.Options{Task: llm.TaskDocument})
		if err != nil {
			return fmt.Errorf("generating document: %w", err)
		}
		docRaw = out
		return nil
	})
	g.Go(func() error {
		out, err := s.generator.Generate(gctx, diagramPrompt(content, hints), diagramSystem, llm.Options{Task: llm.TaskDiagram})
		if err != nil {
			return fmt.Errorf("generating diagram: %w", err)
		}
		diagramRaw = out
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("Generation failed", logger.String("fileName", rec.FileName), logger.Error(err))
		return nil, err
	}

	html := s.converter.Convert(docRaw)
	diagram := NormalizeDiagram(diagramRaw)

	out := &models.GeneratedArtifacts{
		Document: html,
		Diagram:  models.DiagramDescription{Diagram: diagram, Type: models.DiagramTypeFlow},
		Metrics:  s.Metrics(html, diagram),
	}
	s.logger.Info("Generated process artifacts",
		logger.Strings("files", names),
		logger.Int("totalSteps", out.Metrics.TotalSteps),
		logger.String("totalTime", out.Metrics.TotalTime),
	)
	return out, nil
}

// Metrics merges what the diagram and the document each say about the process.
func (s *Service) Metrics(document, diagram string) models.ProcessMetrics {
	dm := s.diagrams.Extract(diagram)
	docm := s.documents.Extract(document)
	return s.merger.Merge(dm.ProcessMetrics, docm, nil).Metrics
}

// Optimize asks the provider for an improved process and reconciles the answer,
// however malformed, into metrics comparable with the original.
func (s *Service) Optimize(ctx context.Context, req models.OptimizeRequest) (*models.OptimizeResult, error) {
	raw, err := s.generator.Generate(ctx, optimizePrompt(req), optimizeSystem, llm.Options{Task: llm.TaskOptimize})
	if err != nil {
		s.logger.Error("Optimization failed", logger.Error(err))
		return nil, fmt.Errorf("generating optimization: %w", err)
	}

	recovered := recovery.WithDefaults(s.recovery.Recover(raw))

	workflow := req.WorkflowDiagram
	newDiagram := models.EmptyMetrics()
	if strings.TrimSpace(recovered.Workflow) != "" {
		workflow = models.DiagramDescription{Diagram: NormalizeDiagram(recovered.Workflow), Type: models.DiagramTypeFlow}
		newDiagram = s.diagrams.Extract(workflow.Diagram).ProcessMetrics
	}
	if workflow.Type == "" {
		workflow.Type = models.DiagramTypeFlow
	}

	optimized := s.merger.Merge(newDiagram, recovered.Metrics(), nil).Metrics
	original := s.diagrams.Extract(req.WorkflowDiagram.Diagram).ProcessMetrics
	merged := s.merger.Merge(original, req.OriginalMetrics, &optimized)

	return &models.OptimizeResult{
		Summary:            recovered.Summary,
		Suggestions:        recovered.Suggestions,
		Metrics:            *merged.Optimized,
		OriginalMetrics:    merged.Metrics,
		WorkflowDiagram:    workflow,
		TimeSavingsPercent: *merged.TimeSavingsPercent,
	}, nil
}

// NormalizeDiagram strips code fences and surrounding prose and makes sure the
// text starts with a graph declaration.
func NormalizeDiagram(raw string) string {
	d := converters.StripFence(raw)
	if loc := graphDeclRe.FindStringIndex(d); loc != nil {
		d = d[loc[0]:]
		if i := strings.Index(d, "```"); i >= 0 {
			d = d[:i]
		}
		return strings.TrimSpace(d)
	}
	if strings.TrimSpace(d) == "" {
		return ""
	}
	return "graph TD\n" + strings.TrimSpace(d)
}
