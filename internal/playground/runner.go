// Package playground runs test generations for prompts under edit and
// batch tests over stored trends.
package playground

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/runixer/trendstudio/internal/config"
	"github.com/runixer/trendstudio/internal/jobtype"
	"github.com/runixer/trendstudio/internal/openrouter"
	"github.com/runixer/trendstudio/internal/prompt"
	"github.com/runixer/trendstudio/internal/runlog"
	"github.com/runixer/trendstudio/internal/storage"
	"github.com/runixer/trendstudio/internal/trend"
)

var (
	ErrDisabled    = errors.New("playground is disabled")
	ErrEmptyPrompt = errors.New("prompt is empty")
)

// Generator produces images from a prompt. openrouter.Client satisfies it.
type Generator interface {
	CreateImage(ctx context.Context, req openrouter.ImageRequest) (openrouter.ImageResponse, error)
}

// TrendSource is the subset of the trend service used by batch tests.
type TrendSource interface {
	List(ctx context.Context, filter trend.Filter) ([]trend.Trend, error)
	Get(ctx context.Context, id int64) (*trend.Trend, error)
	Sections(ctx context.Context, id int64) ([]prompt.Section, error)
}

// Params are the generation parameters shared by a run and a batch test.
// Zero values fall back to the configured defaults.
type Params struct {
	Model        string            `json:"model,omitempty"`
	Temperature  *float64          `json:"temperature,omitempty"`
	Seed         *int64            `json:"seed,omitempty"`
	AspectRatio  string            `json:"aspect_ratio,omitempty"`
	ImageSize    string            `json:"image_size,omitempty"`
	OutputFormat string            `json:"output_format,omitempty"`
	InputImage   string            `json:"input_image,omitempty"`
	Variables    map[string]string `json:"variables,omitempty"`
}

// Config is one playground run: the sections under edit plus parameters.
type Config struct {
	Sections []prompt.Section `json:"sections"`
	Params
}

// Result of a single generation. Generation failures land in Error.
type Result struct {
	Prompt              string           `json:"prompt"`
	ImageURL            string           `json:"image_url,omitempty"`
	ImageFile           string           `json:"image_file,omitempty"`
	Error               string           `json:"error,omitempty"`
	UnresolvedVariables []string         `json:"unresolved_variables,omitempty"`
	Log                 *runlog.Exchange `json:"log,omitempty"`
	DurationMs          int              `json:"duration_ms"`
}

// OK reports whether the run produced an image.
func (r Result) OK() bool {
	return r.Error == "" && (r.ImageURL != "" || r.ImageFile != "")
}

// BatchItem is the outcome for one trend of a batch test.
type BatchItem struct {
	TrendID int64  `json:"trend_id"`
	Slug    string `json:"slug,omitempty"`
	Title   string `json:"title,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
	Result  Result `json:"result"`
}

type Runner struct {
	cfg    config.PlaygroundConfig
	gen    Generator
	vars   storage.VariableRepository
	trends TrendSource
	runlog *runlog.Logger
	files  *FileStore
	logger *slog.Logger
}

// NewRunner creates a runner. A nil generator makes every run fail with ErrDisabled.
func NewRunner(cfg config.PlaygroundConfig, gen Generator, vars storage.VariableRepository, trends TrendSource, rl *runlog.Logger, files *FileStore, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:    cfg,
		gen:    gen,
		vars:   vars,
		trends: trends,
		runlog: rl,
		files:  files,
		logger: logger.With("component", "playground"),
	}
}

// Files returns the store generated images are written to.
func (r *Runner) Files() *FileStore {
	return r.files
}

// Run generates one image from the enabled sections of cfg.
func (r *Runner) Run(ctx context.Context, cfg Config) Result {
	return r.run(ctx, cfg, runlog.KindRun, nil)
}

// BatchTest generates one image per enabled trend, one trend at a time.
// An empty trendIDs means every enabled trend. A failing trend does not stop
// the batch; context cancellation does, and the items done so far are returned.
func (r *Runner) BatchTest(ctx context.Context, trendIDs []int64, params Params) []BatchItem {
	ctx = jobtype.WithJobType(ctx, jobtype.Batch)
	start := time.Now()
	defer func() { batchDuration.Observe(time.Since(start).Seconds()) }()

	if len(trendIDs) == 0 {
		enabled := true
		trends, err := r.trends.List(ctx, trend.Filter{Enabled: &enabled})
		if err != nil {
			r.logger.Error("failed to list trends for batch test", "error", err)
			return nil
		}
		for _, t := range trends {
			trendIDs = append(trendIDs, t.ID)
		}
	}

	r.logger.Info("batch test started", "trends", len(trendIDs))

	delay := r.cfg.GetBatchDelay()
	items := make([]BatchItem, 0, len(trendIDs))
	requested := 0
	for _, id := range trendIDs {
		if ctx.Err() != nil {
			break
		}

		item := BatchItem{TrendID: id}
		t, err := r.trends.Get(ctx, id)
		if err != nil {
			item.Result.Error = err.Error()
			items = append(items, item)
			continue
		}
		item.Slug = t.Slug
		item.Title = t.Title
		if !t.Enabled {
			item.Skipped = true
			items = append(items, item)
			continue
		}

		sections, err := r.trends.Sections(ctx, id)
		if err != nil {
			item.Result.Error = err.Error()
			items = append(items, item)
			continue
		}

		if requested > 0 && delay > 0 {
			select {
			case <-ctx.Done():
				return items
			case <-time.After(delay):
			}
		}
		requested++

		trendID := id
		item.Result = r.run(ctx, Config{Sections: sections, Params: params}, runlog.KindBatch, &trendID)
		items = append(items, item)

		r.logger.Info("batch test item done",
			"trend_id", id,
			"slug", t.Slug,
			"ok", item.Result.OK(),
			"error", item.Result.Error,
		)
	}

	s := Summarize(items)
	r.logger.Info("batch test finished",
		"succeeded", s.Succeeded,
		"failed", s.Failed,
		"skipped", s.Skipped,
		"cancelled", ctx.Err() != nil,
		"duration", time.Since(start),
	)
	return items
}

// BatchSummary counts batch test outcomes.
type BatchSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

func Summarize(items []BatchItem) BatchSummary {
	s := BatchSummary{Total: len(items)}
	for _, it := range items {
		switch {
		case it.Skipped:
			s.Skipped++
		case it.Result.OK():
			s.Succeeded++
		default:
			s.Failed++
		}
	}
	return s
}

func (r *Runner) run(ctx context.Context, cfg Config, kind runlog.Kind, trendID *int64) Result {
	start := time.Now()
	p := r.withDefaults(cfg.Params)

	vars := r.variables(p.Variables)
	text := prompt.SectionsToFlatText(nonBlank(prompt.SubstituteSections(cfg.Sections, vars)))

	// Values may themselves contain braces, so look at the template side.
	res := Result{
		Prompt:              text,
		UnresolvedVariables: prompt.Unresolved(prompt.SectionsToFlatText(cfg.Sections), vars),
	}
	if n := len(res.UnresolvedVariables); n > 0 {
		playgroundUnresolvedTotal.Add(float64(n))
	}

	finish := func(err error) Result {
		if err != nil {
			res.Error = err.Error()
		}
		res.DurationMs = int(time.Since(start).Milliseconds())
		recordRun(string(kind), res.OK())
		return res
	}

	if err := validateParams(p); err != nil {
		return finish(err)
	}
	if text == "" {
		return finish(ErrEmptyPrompt)
	}
	if r.gen == nil {
		return finish(ErrDisabled)
	}

	req := openrouter.ImageRequest{
		Model:       p.Model,
		Prompt:      text,
		InputImage:  p.InputImage,
		AspectRatio: p.AspectRatio,
		ImageSize:   p.ImageSize,
		Temperature: p.Temperature,
		Seed:        p.Seed,
	}
	resp, genErr := r.gen.CreateImage(ctx, req)

	ex := &runlog.Exchange{
		Kind:             kind,
		TrendID:          trendID,
		Prompt:           text,
		Model:            p.Model,
		Request:          runlog.RedactDataURLs(resp.DebugRequestBody),
		Response:         runlog.RedactDataURLs(resp.DebugResponseBody),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalCost:        resp.Usage.Cost,
		Metadata: map[string]interface{}{
			"aspect_ratio":  p.AspectRatio,
			"image_size":    p.ImageSize,
			"output_format": p.OutputFormat,
			"temperature":   p.Temperature,
			"seed":          p.Seed,
			"unresolved":    res.UnresolvedVariables,
		},
	}

	err := genErr
	if err == nil {
		urls := resp.ImageURLs()
		if len(urls) == 0 {
			err = openrouter.ErrNoImage
		} else {
			err = r.storeImage(urls[0], p.OutputFormat, &res)
		}
	}
	if err != nil {
		var tid int64
		if trendID != nil {
			tid = *trendID
		}
		r.logger.Warn("generation failed", "kind", kind, "trend_id", tid, "error", err)
		ex.ErrorMessage = err.Error()
	} else {
		ex.Success = true
		ex.ImageURL = res.ImageURL
		if res.ImageFile != "" {
			ex.ImageURL = res.ImageFile
		}
	}

	res = finish(err)
	ex.DurationMs = res.DurationMs
	r.runlog.Log(ctx, ex)
	res.Log = ex
	return res
}

// storeImage keeps https URLs as they are and writes data URLs to disk.
func (r *Runner) storeImage(url, format string, res *Result) error {
	if !isDataURL(url) {
		res.ImageURL = url
		return nil
	}
	if r.files == nil {
		return errors.New("no output directory configured for generated images")
	}
	name, err := r.files.SaveDataURL(url, format)
	if err != nil {
		return err
	}
	res.ImageFile = name
	return nil
}

// nonBlank drops sections without content so empty markers never reach the model.
func nonBlank(sections []prompt.Section) []prompt.Section {
	out := sections[:0]
	for _, s := range sections {
		if strings.TrimSpace(s.Content) != "" {
			out = append(out, s)
		}
	}
	return out
}

// variables merges master variables with per-run overrides.
func (r *Runner) variables(overrides map[string]string) map[string]string {
	vars := make(map[string]string)
	if r.vars != nil {
		master, err := r.vars.GetVariables()
		if err != nil {
			r.logger.Warn("failed to load master variables", "error", err)
		}
		for k, v := range master {
			vars[k] = v
		}
	}
	for k, v := range overrides {
		vars[k] = v
	}
	return vars
}

func (r *Runner) withDefaults(p Params) Params {
	if p.Model == "" {
		p.Model = r.cfg.Model
	}
	if p.Temperature == nil && r.cfg.Temperature > 0 {
		t := r.cfg.Temperature
		p.Temperature = &t
	}
	if p.AspectRatio == "" {
		p.AspectRatio = r.cfg.AspectRatio
	}
	if p.ImageSize == "" {
		p.ImageSize = r.cfg.ImageSize
	}
	if p.OutputFormat == "" {
		p.OutputFormat = r.cfg.OutputFormat
	}
	if p.OutputFormat == "" {
		p.OutputFormat = "png"
	}
	return p
}

func validateParams(p Params) error {
	var errs []error
	if p.Model == "" {
		errs = append(errs, errors.New("model is required"))
	}
	if p.AspectRatio != "" && !config.ValidAspectRatios[p.AspectRatio] {
		errs = append(errs, fmt.Errorf("unsupported aspect ratio %q", p.AspectRatio))
	}
	if p.ImageSize != "" && !config.ValidImageSizes[p.ImageSize] {
		errs = append(errs, fmt.Errorf("unsupported image size %q", p.ImageSize))
	}
	if !config.ValidOutputFormats[p.OutputFormat] {
		errs = append(errs, fmt.Errorf("unsupported output format %q", p.OutputFormat))
	}
	if p.Temperature != nil && (*p.Temperature < 0 || *p.Temperature > 2) {
		errs = append(errs, errors.New("temperature must be between 0 and 2"))
	}
	if p.InputImage != "" && !isDataURL(p.InputImage) &&
		!strings.HasPrefix(p.InputImage, "https://") && !strings.HasPrefix(p.InputImage, "http://") {
		errs = append(errs, errors.New("input image must be a data URL or an http(s) URL"))
	}
	return errors.Join(errs...)
}
