package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"galley/internal/config"
	"galley/internal/journal"
	"galley/internal/logging"
	"galley/internal/notifications"
	"galley/internal/pipeline"
	"galley/internal/services"
	"galley/internal/services/aspell"
	"galley/internal/services/quarto"
	"galley/internal/services/renv"
	"galley/internal/services/rlang"
	"galley/internal/testsupport"
)

type stubRenderer struct {
	artifacts []string
	err       error
	requests  []quarto.RenderRequest
}

func (s *stubRenderer) Render(_ context.Context, req quarto.RenderRequest, onLine func(string)) (quarto.RenderResult, error) {
	s.requests = append(s.requests, req)
	if onLine != nil {
		onLine("Output created: paper.pdf")
	}
	if s.err != nil {
		return quarto.RenderResult{}, s.err
	}
	return quarto.RenderResult{Artifacts: s.artifacts}, nil
}

type stubPackages struct {
	restores    int
	snapshots   int
	restoreErr  error
	snapshotErr error
	status      renv.StatusReport
	statusErr   error
}

func (s *stubPackages) Restore(context.Context, string, func(string)) error {
	s.restores++
	return s.restoreErr
}

func (s *stubPackages) Snapshot(context.Context, string, func(string)) error {
	s.snapshots++
	return s.snapshotErr
}

func (s *stubPackages) Status(context.Context, string) (renv.StatusReport, error) {
	if s.statusErr != nil {
		return renv.StatusReport{}, s.statusErr
	}
	return s.status, nil
}

type stubSpeller struct {
	report   aspell.Report
	err      error
	files    []string
	accepted map[string]struct{}
}

func (s *stubSpeller) Check(_ context.Context, files []string, accepted map[string]struct{}) (aspell.Report, error) {
	s.files = append([]string(nil), files...)
	s.accepted = accepted
	if s.err != nil {
		return aspell.Report{}, s.err
	}
	return s.report, nil
}

type stubProber struct {
	version rlang.Version
	err     error
	calls   int
}

func (s *stubProber) Version(context.Context) (rlang.Version, error) {
	s.calls++
	if s.err != nil {
		return rlang.Version{}, s.err
	}
	return s.version, nil
}

type stubNotifier struct {
	events []notifications.Event
}

func (s *stubNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	s.events = append(s.events, event)
	return nil
}

type fixture struct {
	cfg      *config.Config
	store    *journal.Store
	renderer *stubRenderer
	packages *stubPackages
	speller  *stubSpeller
	prober   *stubProber
	notifier *stubNotifier
	runner   *pipeline.Runner
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenJournal(t, cfg)
	f := &fixture{
		cfg:      cfg,
		store:    store,
		renderer: &stubRenderer{},
		packages: &stubPackages{},
		speller:  &stubSpeller{},
		prober:   &stubProber{version: rlang.Version{Major: "4", Minor: "5.1"}},
		notifier: &stubNotifier{},
	}
	runner, err := pipeline.NewRunner(cfg, store, logging.NewNop(),
		pipeline.WithRenderer(f.renderer),
		pipeline.WithPackages(f.packages),
		pipeline.WithSpeller(f.speller),
		pipeline.WithProber(f.prober),
		pipeline.WithNotifier(f.notifier),
	)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	f.runner = runner
	return f
}

func expectEvents(t *testing.T, got []notifications.Event, want ...notifications.Event) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected events %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, got)
		}
	}
}

func TestRenderRecordsRunAndArtifacts(t *testing.T) {
	f := newFixture(t)
	outDir := filepath.Join(f.cfg.ProjectRoot, "_output")
	pdf := filepath.Join(outDir, "paper.pdf")
	html := filepath.Join(outDir, "paper.html")
	testsupport.WriteFile(t, pdf, 2048)
	testsupport.WriteTextFile(t, html, "<html><body>draft</body></html>")
	f.renderer.artifacts = []string{pdf, html}

	outcome, err := f.runner.Render(context.Background(), pipeline.RenderOptions{Formats: []string{"pdf"}})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if outcome.Run == nil || outcome.Run.Status != journal.StatusSucceeded {
		t.Fatalf("expected succeeded run, got %+v", outcome.Run)
	}
	if len(outcome.Artifacts) != 2 {
		t.Fatalf("expected 2 artifacts, got %d", len(outcome.Artifacts))
	}
	first := outcome.Artifacts[0]
	if first.Path != filepath.Join("_output", "paper.html") {
		t.Fatalf("expected project-relative sorted artifacts, got %q", first.Path)
	}
	if len(first.SHA256) != 64 || first.Bytes == 0 {
		t.Fatalf("expected fingerprinted artifact, got %+v", first)
	}

	if len(f.renderer.requests) != 1 {
		t.Fatalf("expected one render invocation, got %d", len(f.renderer.requests))
	}
	req := f.renderer.requests[0]
	if req.ProjectRoot != f.cfg.ProjectRoot {
		t.Fatalf("expected render rooted at project, got %q", req.ProjectRoot)
	}
	if len(req.Formats) != 1 || req.Formats[0] != "pdf" {
		t.Fatalf("expected format override, got %v", req.Formats)
	}
	if req.OutputDir != "_output" {
		t.Fatalf("expected configured output dir, got %q", req.OutputDir)
	}

	persisted, err := f.store.Latest(context.Background(), journal.KindRender)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if persisted == nil || len(persisted.Artifacts) != 2 {
		t.Fatalf("expected artifacts persisted in journal, got %+v", persisted)
	}
	expectEvents(t, f.notifier.events, notifications.EventRenderStarted, notifications.EventRenderCompleted)
}

func TestRenderAutoRestoresWhenLockfilePresent(t *testing.T) {
	f := newFixture(t)
	f.cfg.Packages.AutoRestore = true
	testsupport.WriteTextFile(t, filepath.Join(f.cfg.ProjectRoot, renv.LockfileName), "{}\n")

	outcome, err := f.runner.Render(context.Background(), pipeline.RenderOptions{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if f.packages.restores != 1 {
		t.Fatalf("expected one restore, got %d", f.packages.restores)
	}
	if !outcome.Restored {
		t.Fatal("expected outcome to report the restore")
	}
}

func TestRenderSkipsRestoreWithoutLockfile(t *testing.T) {
	f := newFixture(t)
	f.cfg.Packages.AutoRestore = true

	outcome, err := f.runner.Render(context.Background(), pipeline.RenderOptions{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if f.packages.restores != 0 {
		t.Fatalf("expected no restore without lockfile, got %d", f.packages.restores)
	}
	if outcome.Restored {
		t.Fatal("expected outcome without restore")
	}
}

func TestRenderForcedRestoreFailureFailsRun(t *testing.T) {
	f := newFixture(t)
	f.packages.restoreErr = errors.New("mirror unreachable")

	outcome, err := f.runner.Render(context.Background(), pipeline.RenderOptions{Restore: true})
	if err == nil {
		t.Fatal("expected restore failure to fail the render")
	}
	if outcome == nil || outcome.Run == nil || outcome.Run.Status != journal.StatusFailed {
		t.Fatalf("expected failed run, got %+v", outcome)
	}
	if len(f.renderer.requests) != 0 {
		t.Fatal("expected renderer to stay untouched after restore failure")
	}
	expectEvents(t, f.notifier.events, notifications.EventRenderStarted, notifications.EventRenderFailed)
}

func TestRenderFailureMarksRunFailed(t *testing.T) {
	f := newFixture(t)
	f.renderer.err = errors.New("render exited with status 1")

	outcome, err := f.runner.Render(context.Background(), pipeline.RenderOptions{Targets: []string{"paper.qmd"}})
	if err == nil {
		t.Fatal("expected render error")
	}
	if outcome.Run.Status != journal.StatusFailed {
		t.Fatalf("expected failed run, got %s", outcome.Run.Status)
	}
	if !strings.Contains(outcome.Run.ErrorMessage, "status 1") {
		t.Fatalf("expected failure message recorded, got %q", outcome.Run.ErrorMessage)
	}
	if outcome.Run.Detail != "paper.qmd" {
		t.Fatalf("expected target recorded as detail, got %q", outcome.Run.Detail)
	}
	expectEvents(t, f.notifier.events, notifications.EventRenderStarted, notifications.EventRenderFailed)
}

func TestRenderFailureClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"missing binary", fmt.Errorf("start command: %w", exec.ErrNotFound), services.ErrConfiguration},
		{"tool exit", errors.New("quarto render: exit status 1"), services.ErrExternalTool},
		{"deadline", fmt.Errorf("quarto render timed out after 1s: %w", context.DeadlineExceeded), services.ErrTimeout},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.renderer.err = tc.err

			_, err := f.runner.Render(context.Background(), pipeline.RenderOptions{})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v classification, got %v", tc.want, err)
			}
		})
	}
}

func TestRenderRejectsConcurrentRuns(t *testing.T) {
	f := newFixture(t)
	if err := os.MkdirAll(f.cfg.StateDir(), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	held := flock.New(filepath.Join(f.cfg.StateDir(), "render.lock"))
	locked, err := held.TryLock()
	if err != nil || !locked {
		t.Fatalf("could not take test lock: locked=%v err=%v", locked, err)
	}
	defer held.Unlock()

	if _, err := f.runner.Render(context.Background(), pipeline.RenderOptions{}); err == nil {
		t.Fatal("expected lock contention error")
	} else if !strings.Contains(err.Error(), "already active") {
		t.Fatalf("expected lock contention message, got %v", err)
	}
}

func TestRenderRequiresProject(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutProject())
	runner, err := pipeline.NewRunner(cfg, nil, logging.NewNop(),
		pipeline.WithRenderer(&stubRenderer{}),
		pipeline.WithPackages(&stubPackages{}),
		pipeline.WithSpeller(&stubSpeller{}),
		pipeline.WithProber(&stubProber{}),
		pipeline.WithNotifier(&stubNotifier{}),
	)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	if _, err := runner.Render(context.Background(), pipeline.RenderOptions{}); err == nil {
		t.Fatal("expected error outside a project")
	} else if !strings.Contains(err.Error(), "galley init") {
		t.Fatalf("expected init hint, got %v", err)
	}
}

func TestRenderVersionMismatchDoesNotFail(t *testing.T) {
	f := newFixture(t, testsupport.WithMarker("9.9.9\n"))

	if _, err := f.runner.Render(context.Background(), pipeline.RenderOptions{}); err != nil {
		t.Fatalf("expected mismatch to stay non-fatal, got %v", err)
	}
	if f.prober.calls != 1 {
		t.Fatalf("expected one runtime probe, got %d", f.prober.calls)
	}
}

func TestRenderProbeFailureDoesNotFail(t *testing.T) {
	f := newFixture(t, testsupport.WithMarker("4.5.1\n"))
	f.prober.err = errors.New("Rscript not found")

	if _, err := f.runner.Render(context.Background(), pipeline.RenderOptions{}); err != nil {
		t.Fatalf("expected probe failure to stay non-fatal, got %v", err)
	}
}

func TestRestoreRecordsRun(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteTextFile(t, filepath.Join(f.cfg.ProjectRoot, renv.LockfileName), "{}\n")
	f.packages.status = renv.StatusReport{Synchronized: true, Summary: "library synchronized with lockfile"}

	outcome, err := f.runner.Restore(context.Background())
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if f.packages.restores != 1 {
		t.Fatalf("expected one restore, got %d", f.packages.restores)
	}
	if outcome.Run.Kind != journal.KindRestore || outcome.Run.Status != journal.StatusSucceeded {
		t.Fatalf("expected succeeded restore run, got %+v", outcome.Run)
	}
	if outcome.Status == nil || !outcome.Status.Synchronized {
		t.Fatalf("expected synchronized status, got %+v", outcome.Status)
	}
	expectEvents(t, f.notifier.events, notifications.EventRestoreCompleted)
}

func TestRestoreRequiresLockfile(t *testing.T) {
	f := newFixture(t)

	_, err := f.runner.Restore(context.Background())
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected missing lockfile error, got %v", err)
	}
	runs, err := f.store.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected no journal runs, got %d", len(runs))
	}
}

func TestRestoreFailurePublishesError(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteTextFile(t, filepath.Join(f.cfg.ProjectRoot, renv.LockfileName), "{}\n")
	f.packages.restoreErr = errors.New("package curl failed to install")

	outcome, err := f.runner.Restore(context.Background())
	if err == nil {
		t.Fatal("expected restore error")
	}
	if outcome.Run.Status != journal.StatusFailed {
		t.Fatalf("expected failed run, got %s", outcome.Run.Status)
	}
	expectEvents(t, f.notifier.events, notifications.EventRestoreFailed)
}

func TestSnapshotRecordsRun(t *testing.T) {
	f := newFixture(t)

	outcome, err := f.runner.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if f.packages.snapshots != 1 {
		t.Fatalf("expected one snapshot, got %d", f.packages.snapshots)
	}
	if outcome.Run.Kind != journal.KindSnapshot || outcome.Run.Status != journal.StatusSucceeded {
		t.Fatalf("expected succeeded snapshot run, got %+v", outcome.Run)
	}
	expectEvents(t, f.notifier.events)
}

func TestSpellCleanFinishesRun(t *testing.T) {
	f := newFixture(t)
	paper := filepath.Join(f.cfg.ProjectRoot, "paper.qmd")
	testsupport.WriteTextFile(t, paper, "# Introduction\n")

	outcome, err := f.runner.Spell(context.Background(), nil)
	if err != nil {
		t.Fatalf("Spell: %v", err)
	}
	if outcome.Run.Status != journal.StatusSucceeded {
		t.Fatalf("expected succeeded run, got %s", outcome.Run.Status)
	}
	if len(outcome.Files) != 1 || outcome.Files[0] != paper {
		t.Fatalf("expected discovered paper, got %v", outcome.Files)
	}
	expectEvents(t, f.notifier.events, notifications.EventSpellClean)
}

func TestSpellVersionMismatchDoesNotFail(t *testing.T) {
	f := newFixture(t, testsupport.WithMarker("4.4.0\n"))
	testsupport.WriteTextFile(t, filepath.Join(f.cfg.ProjectRoot, "paper.qmd"), "# Introduction\n")

	outcome, err := f.runner.Spell(context.Background(), nil)
	if err != nil {
		t.Fatalf("expected mismatch to stay non-fatal, got %v", err)
	}
	if f.prober.calls != 1 {
		t.Fatalf("expected one runtime probe, got %d", f.prober.calls)
	}
	if outcome.Run.Status != journal.StatusSucceeded {
		t.Fatalf("expected succeeded run, got %s", outcome.Run.Status)
	}
}

func TestSpellFindingsFailRunWithoutError(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteTextFile(t, filepath.Join(f.cfg.ProjectRoot, "paper.qmd"), "teh recieve\n")
	testsupport.WriteTextFile(t, filepath.Join(f.cfg.ProjectRoot, "notes.md"), "clean\n")
	f.speller.report = aspell.Report{Findings: []aspell.Finding{
		{File: "paper.qmd", Words: []string{"recieve", "teh"}},
	}}

	outcome, err := f.runner.Spell(context.Background(), nil)
	if err != nil {
		t.Fatalf("expected findings to return without error, got %v", err)
	}
	if outcome.Run.Status != journal.StatusFailed {
		t.Fatalf("expected failed run, got %s", outcome.Run.Status)
	}
	if outcome.Run.ErrorMessage != "2 unknown words in 1 of 2 files" {
		t.Fatalf("unexpected failure message %q", outcome.Run.ErrorMessage)
	}
	if outcome.Report.Clean() {
		t.Fatal("expected findings in outcome report")
	}
	expectEvents(t, f.notifier.events, notifications.EventSpellFindings)
}

func TestSpellDiscoversProjectDocuments(t *testing.T) {
	f := newFixture(t)
	root := f.cfg.ProjectRoot
	testsupport.WriteTextFile(t, filepath.Join(root, "paper.qmd"), "body\n")
	testsupport.WriteTextFile(t, filepath.Join(root, "notes", "outline.md"), "outline\n")
	testsupport.WriteTextFile(t, filepath.Join(root, "data", "table.csv"), "a,b\n")
	testsupport.WriteTextFile(t, filepath.Join(root, "_output", "leftover.md"), "stale\n")
	testsupport.WriteTextFile(t, filepath.Join(root, "renv", "activate.R"), "# renv\n")
	testsupport.WriteTextFile(t, filepath.Join(root, "renv", "readme.md"), "deps\n")

	if _, err := f.runner.Spell(context.Background(), nil); err != nil {
		t.Fatalf("Spell: %v", err)
	}
	want := []string{
		filepath.Join(root, "notes", "outline.md"),
		filepath.Join(root, "paper.qmd"),
	}
	if len(f.speller.files) != len(want) {
		t.Fatalf("expected files %v, got %v", want, f.speller.files)
	}
	for i := range want {
		if f.speller.files[i] != want[i] {
			t.Fatalf("expected files %v, got %v", want, f.speller.files)
		}
	}
}

func TestSpellResolvesRelativeArguments(t *testing.T) {
	f := newFixture(t)
	paper := filepath.Join(f.cfg.ProjectRoot, "sections", "intro.qmd")
	testsupport.WriteTextFile(t, paper, "intro\n")

	outcome, err := f.runner.Spell(context.Background(), []string{filepath.Join("sections", "intro.qmd")})
	if err != nil {
		t.Fatalf("Spell: %v", err)
	}
	if len(f.speller.files) != 1 || f.speller.files[0] != paper {
		t.Fatalf("expected resolved path %q, got %v", paper, f.speller.files)
	}
	if outcome.Run.Detail != filepath.Join("sections", "intro.qmd") {
		t.Fatalf("expected relative detail, got %q", outcome.Run.Detail)
	}
}

func TestSpellLoadsProjectWordList(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteTextFile(t, filepath.Join(f.cfg.ProjectRoot, "paper.qmd"), "body\n")
	testsupport.WriteTextFile(t, f.cfg.WordListPath(), "# project words\nQuarto\nrenv\n")

	if _, err := f.runner.Spell(context.Background(), nil); err != nil {
		t.Fatalf("Spell: %v", err)
	}
	if len(f.speller.accepted) != 2 {
		t.Fatalf("expected 2 accepted words, got %d", len(f.speller.accepted))
	}
	if _, ok := f.speller.accepted["quarto"]; !ok {
		t.Fatalf("expected lowercased word list, got %v", f.speller.accepted)
	}
}

func TestSpellToolFailure(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteTextFile(t, filepath.Join(f.cfg.ProjectRoot, "paper.qmd"), "body\n")
	f.speller.err = errors.New("aspell: unknown mode")

	outcome, err := f.runner.Spell(context.Background(), nil)
	if err == nil {
		t.Fatal("expected spell tool error")
	}
	if outcome.Run.Status != journal.StatusFailed {
		t.Fatalf("expected failed run, got %s", outcome.Run.Status)
	}
	expectEvents(t, f.notifier.events, notifications.EventSpellFailed)
}

func TestSpellWithNoDocuments(t *testing.T) {
	f := newFixture(t)

	_, err := f.runner.Spell(context.Background(), nil)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}
