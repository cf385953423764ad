package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fjacquet/stmt-forensics/internal/dateutils"
	"fjacquet/stmt-forensics/internal/logging"
	"fjacquet/stmt-forensics/internal/models"
	"fjacquet/stmt-forensics/internal/scoring"
	"fjacquet/stmt-forensics/internal/store"
	"fjacquet/stmt-forensics/internal/validation"

	"golang.org/x/sync/errgroup"
)

// FieldsSuffix names the extraction sidecar of a statement:
// march.xlsx is paired with march.fields.json.
const FieldsSuffix = ".fields.json"

// Result is the outcome for one file of a run.
type Result struct {
	Path   string  `json:"path"`
	Report *Report `json:"report,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// Summary collects the results of a run in input order.
type Summary struct {
	Results   []Result `json:"results"`
	Processed int      `json:"processed"`
	Review    int      `json:"review"`
	Failed    int      `json:"failed"`
}

// Runner re-analyzes sets of statements against the history store.
type Runner struct {
	analyzer *Analyzer
	repo     store.Repository
	workers  int
	logger   logging.Logger
}

// NewRunner creates a Runner. workers below 1 means one.
func NewRunner(analyzer *Analyzer, repo store.Repository, workers int, logger logging.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		analyzer: analyzer,
		repo:     repo,
		workers:  workers,
		logger:   logging.OrDefault(logger),
	}
}

// Discover lists the statement files directly inside dir, sorted by name.
func Discover(dir string) ([]string, error) {
	if err := validation.IsValidDirectory(dir); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error reading directory %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !validation.IsStatementFile(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// SidecarPath returns the extraction sidecar path for a statement file.
func SidecarPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + FieldsSuffix
}

// LoadDocument reads a statement file and its optional sidecar.
func LoadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the operator
	if err != nil {
		return Document{}, fmt.Errorf("error reading file %s: %w", path, err)
	}
	doc := Document{
		ID:       store.DocumentID(data),
		Filename: filepath.Base(path),
		DocType:  models.DocBankStatement,
		Data:     data,
	}

	raw, err := os.ReadFile(SidecarPath(path)) // #nosec G304
	switch {
	case errors.Is(err, os.ErrNotExist):
		return doc, nil
	case err != nil:
		return Document{}, fmt.Errorf("error reading sidecar for %s: %w", path, err)
	}
	fields, err := models.DecodeExtractedFields(raw)
	if err != nil {
		return Document{}, fmt.Errorf("sidecar for %s: %w", path, err)
	}
	doc.Extracted = &fields
	return doc, nil
}

// Reanalyze runs every statement file in dir.
func (r *Runner) Reanalyze(ctx context.Context, dir string) (*Summary, error) {
	paths, err := Discover(dir)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, paths)
}

// Run analyzes paths and rebuilds the history of every account they touch.
// Files are normalized concurrently; each account is then validated and
// persisted in period order so a statement is compared with its predecessor.
// A failing file is reported in its Result and never stops the others.
func (r *Runner) Run(ctx context.Context, paths []string) (*Summary, error) {
	r.logger.Info("Starting re-analysis",
		logging.Field{Key: logging.FieldCount, Value: len(paths)},
		logging.Field{Key: "workers", Value: r.workers})

	results := make([]Result, len(paths))
	reports := make([]*Report, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, path := range paths {
		results[i].Path = path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, err := LoadDocument(path)
			if err != nil {
				results[i].Error = err.Error()
				r.logger.WithError(err).Warn("Skipping document",
					logging.Field{Key: logging.FieldFile, Value: path})
				return nil
			}
			reports[i] = r.analyzer.Prepare(gctx, doc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("re-analysis cancelled: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("re-analysis cancelled: %w", err)
	}

	// Earlier results for these documents are dropped so each one is compared
	// with its predecessor in this run. Records of documents outside the run
	// stay and still act as predecessors.
	if ids := documentIDs(reports); len(ids) > 0 {
		if err := r.repo.DeleteDocuments(ctx, ids...); err != nil {
			return nil, fmt.Errorf("error clearing history: %w", err)
		}
	}
	groups := groupByAccount(reports)

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for _, group := range groups {
		g.Go(func() error {
			for _, i := range group {
				if err := gctx.Err(); err != nil {
					return err
				}
				report := r.analyzer.Evaluate(gctx, reports[i], store.Excluding(r.repo, reports[i].DocumentID))
				results[i].Report = report
				if err := r.repo.Save(gctx, report.Record()); err != nil {
					results[i].Error = fmt.Sprintf("error saving history: %v", err)
					r.logger.WithError(err).Error("Failed to save statement",
						logging.Field{Key: logging.FieldDocumentID, Value: report.DocumentID})
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("re-analysis cancelled: %w", err)
	}

	summary := &Summary{Results: results}
	for _, res := range results {
		switch {
		case res.Error != "":
			summary.Failed++
		case res.Report.Outcome.Status == scoring.StatusReview:
			summary.Review++
		default:
			summary.Processed++
		}
	}
	r.logger.Info("Re-analysis complete",
		logging.Field{Key: "processed", Value: summary.Processed},
		logging.Field{Key: "review", Value: summary.Review},
		logging.Field{Key: "failed", Value: summary.Failed})
	return summary, nil
}

// groupByAccount splits prepared reports into per-account index lists sorted
// by period. Reports without an account each form their own group.
func groupByAccount(reports []*Report) [][]int {
	byAccount := make(map[string][]int)
	var accounts []string
	var groups [][]int
	for i, rep := range reports {
		if rep == nil {
			continue
		}
		acct := rep.Fields.AccountNumber
		if acct == "" {
			groups = append(groups, []int{i})
			continue
		}
		if _, ok := byAccount[acct]; !ok {
			accounts = append(accounts, acct)
		}
		byAccount[acct] = append(byAccount[acct], i)
	}
	sort.Strings(accounts)

	for _, acct := range accounts {
		idx := byAccount[acct]
		sort.SliceStable(idx, func(a, b int) bool {
			return periodKey(reports[idx[a]]) < periodKey(reports[idx[b]])
		})
		groups = append(groups, idx)
	}
	return groups
}

func documentIDs(reports []*Report) []string {
	var ids []string
	for _, rep := range reports {
		if rep != nil {
			ids = append(ids, rep.DocumentID)
		}
	}
	return ids
}

// periodKey orders statements by period start, then end, then filename.
// Unparseable periods sort first.
func periodKey(r *Report) string {
	return dateutils.NormalizeISO(r.Fields.PeriodFrom) + "|" +
		dateutils.NormalizeISO(r.Fields.PeriodTo) + "|" + r.Filename
}
