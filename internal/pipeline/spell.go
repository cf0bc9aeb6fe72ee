package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"galley/internal/config"
	"galley/internal/journal"
	"galley/internal/logging"
	"galley/internal/notifications"
	"galley/internal/services"
	"galley/internal/services/aspell"
)

// SpellOutcome reports a spelling pass over the project's documents.
type SpellOutcome struct {
	Run    *journal.Run
	Report aspell.Report
	Files  []string
}

// Spell checks the given files, or every spell-checkable document in the
// project when none are named. Relative paths are resolved against the
// project root. Findings mark the journal run failed but do not return an
// error; the caller decides how loudly to exit.
func (r *Runner) Spell(ctx context.Context, files []string) (*SpellOutcome, error) {
	if err := r.cfg.RequireProject(); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		discovered, err := r.discoverSources()
		if err != nil {
			return nil, err
		}
		files = discovered
	} else {
		files = r.absoluteSources(files)
	}
	if len(files) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "pipeline", "spell", "no documents to check", nil)
	}

	run, err := r.store.Begin(ctx, journal.KindSpell, r.spellDetail(files))
	if err != nil {
		return nil, err
	}
	ctx = services.WithRunID(ctx, run.UUID)
	ctx = services.WithKind(ctx, string(journal.KindSpell))
	logger := r.runLogger(run)
	r.guard.Run(ctx, r.cfg.MarkerPath())

	outcome := &SpellOutcome{Run: run, Files: files}

	accepted, err := aspell.LoadWordList(r.cfg.WordListPath())
	if err != nil {
		r.failRun(ctx, logger, run, err.Error())
		return outcome, err
	}
	logger.Info("spell check started",
		logging.Int("files", len(files)),
		logging.Int("accepted_words", len(accepted)),
	)

	report, err := r.speller.Check(ctx, files, accepted)
	if err != nil {
		err = wrapTool("spell", "spell check failed", err)
		r.failRun(ctx, logger, run, err.Error())
		r.publish(ctx, notifications.EventSpellFailed, notifications.Payload{"error": err.Error()})
		return outcome, err
	}
	outcome.Report = report

	if report.Clean() {
		if err := r.store.Finish(ctx, run, nil); err != nil {
			return outcome, err
		}
		logger.Info("spelling clean", logging.Int("files", len(files)))
		r.publish(ctx, notifications.EventSpellClean, notifications.Payload{
			"documents": strconv.Itoa(len(files)),
		})
		return outcome, nil
	}

	message := fmt.Sprintf("%d unknown words in %d of %d files",
		report.WordCount(), len(report.Findings), len(files))
	r.failRun(ctx, logger, run, message)
	logger.Warn("spelling findings",
		logging.Int("words", report.WordCount()),
		logging.Int("files", len(report.Findings)),
	)
	r.publish(ctx, notifications.EventSpellFindings, notifications.Payload{
		"words":     strconv.Itoa(report.WordCount()),
		"documents": strconv.Itoa(len(report.Findings)),
	})
	return outcome, nil
}

// discoverSources walks the project tree for documents matching the
// configured extensions, skipping generated and dependency directories.
func (r *Runner) discoverSources() ([]string, error) {
	extensions := make(map[string]struct{}, len(r.cfg.Spelling.Extensions))
	for _, ext := range r.cfg.Spelling.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extensions[ext] = struct{}{}
	}

	skip := map[string]struct{}{
		".git":              {},
		".quarto":           {},
		"_freeze":           {},
		"renv":              {},
		config.StateDirName: {},
	}
	if out := filepath.Base(strings.TrimSpace(r.cfg.Render.OutputDir)); out != "" && out != "." {
		skip[out] = struct{}{}
	}

	var files []string
	err := filepath.WalkDir(r.cfg.ProjectRoot, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if path == r.cfg.ProjectRoot {
				return nil
			}
			if _, ignored := skip[entry.Name()]; ignored {
				return fs.SkipDir
			}
			return nil
		}
		if _, ok := extensions[strings.ToLower(filepath.Ext(entry.Name()))]; ok {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "pipeline", "spell", "scan project documents", err)
	}
	sort.Strings(files)
	return files, nil
}

// absoluteSources resolves user-supplied paths against the project root.
func (r *Runner) absoluteSources(files []string) []string {
	resolved := make([]string, 0, len(files))
	for _, file := range files {
		file = strings.TrimSpace(file)
		if file == "" {
			continue
		}
		if !filepath.IsAbs(file) {
			file = filepath.Join(r.cfg.ProjectRoot, file)
		}
		resolved = append(resolved, file)
	}
	sort.Strings(resolved)
	return resolved
}

func (r *Runner) spellDetail(files []string) string {
	if len(files) == 1 {
		return r.relToRoot(files[0])
	}
	return fmt.Sprintf("%d files", len(files))
}
