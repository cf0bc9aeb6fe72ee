package aspell

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

// Finding lists the unknown words reported for a single file.
type Finding struct {
	File  string
	Words []string
}

// Report aggregates spell check results across files.
type Report struct {
	Findings []Finding
}

// Clean reports whether the check found no unknown words.
func (r Report) Clean() bool {
	return len(r.Findings) == 0
}

// WordCount returns the total number of distinct unknown words.
func (r Report) WordCount() int {
	total := 0
	for _, finding := range r.Findings {
		total += len(finding.Words)
	}
	return total
}

// Checker defines the behaviour required by the spelling workflow.
type Checker interface {
	Check(ctx context.Context, files []string, accepted map[string]struct{}) (Report, error)
}

// Executor abstracts command execution for testability.
type Executor interface {
	Output(ctx context.Context, binary string, args []string, stdin io.Reader) (string, error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps aspell's list mode.
type Client struct {
	binary   string
	language string
	mode     string
	exec     Executor
}

// New constructs an aspell client.
func New(binary, language, mode string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("aspell binary required")
	}
	client := &Client{
		binary:   binary,
		language: strings.TrimSpace(language),
		mode:     strings.ToLower(strings.TrimSpace(mode)),
		exec:     commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Check pipes each file through aspell list and reports unknown words that
// the accepted word list does not cover. Findings keep the input file order;
// words within a finding are sorted and deduplicated.
func (c *Client) Check(ctx context.Context, files []string, accepted map[string]struct{}) (Report, error) {
	var report Report
	for _, file := range files {
		contents, err := os.ReadFile(file) //nolint:gosec
		if err != nil {
			return Report{}, fmt.Errorf("read %s: %w", file, err)
		}

		out, err := c.exec.Output(ctx, c.binary, c.args(), bytes.NewReader(contents))
		if err != nil {
			return Report{}, fmt.Errorf("aspell %s: %w", file, err)
		}

		words := collectWords(out, accepted)
		if len(words) == 0 {
			continue
		}
		report.Findings = append(report.Findings, Finding{File: file, Words: words})
	}
	return report, nil
}

func (c *Client) args() []string {
	args := []string{"list"}
	if c.language != "" {
		args = append(args, "--lang", c.language)
	}
	if c.mode != "" {
		args = append(args, "--mode", c.mode)
	}
	return args
}

func collectWords(out string, accepted map[string]struct{}) []string {
	seen := make(map[string]struct{})
	var words []string
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word == "" {
			continue
		}
		if _, ok := accepted[strings.ToLower(word)]; ok {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		words = append(words, word)
	}
	sort.Strings(words)
	return words
}

// LoadWordList reads an accepted-words file, one word per line. Blank lines
// and lines starting with # are skipped. A missing file yields an empty list
// so projects without a word list still get checked.
func LoadWordList(path string) (map[string]struct{}, error) {
	contents, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]struct{}{}, nil
		}
		return nil, fmt.Errorf("read word list: %w", err)
	}
	accepted := make(map[string]struct{})
	scanner := bufio.NewScanner(bytes.NewReader(contents))
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word == "" || strings.HasPrefix(word, "#") {
			continue
		}
		accepted[strings.ToLower(word)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan word list: %w", err)
	}
	return accepted, nil
}

var _ Checker = (*Client)(nil)

type commandExecutor struct{}

func (commandExecutor) Output(ctx context.Context, binary string, args []string, stdin io.Reader) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Stdin = stdin
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return "", fmt.Errorf("%w: %s", err, detail)
		}
		return "", err
	}
	return stdout.String(), nil
}
