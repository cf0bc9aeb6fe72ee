package workspace

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"galley/internal/config"
)

//go:embed templates
var templateFS embed.FS

// ScaffoldOptions controls what init writes into the target directory.
type ScaffoldOptions struct {
	Dir      string
	Title    string
	Author   string
	Formats  []string
	RVersion string // marker content; empty skips the marker file
	Mirror   string
	Force    bool
}

// ScaffoldResult reports which files init wrote and which it left alone.
type ScaffoldResult struct {
	Root    string
	Title   string
	Created []string
	Skipped []string
}

type scaffoldFile struct {
	name string
	data []byte
}

type paperData struct {
	Title   string
	Author  string
	Formats []string
}

type dockerData struct {
	BaseImage string
	Mirror    string
}

// Scaffold writes a complete paper project skeleton. Existing files are
// skipped unless Force is set.
func Scaffold(opts ScaffoldOptions) (*ScaffoldResult, error) {
	root := strings.TrimSpace(opts.Dir)
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project dir: %w", err)
	}
	root = abs

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create project dir: %w", err)
	}

	projectFile := filepath.Join(root, config.ProjectFileName)
	if _, err := os.Stat(projectFile); err == nil && !opts.Force {
		return nil, fmt.Errorf("%s already exists in %s (use --force to re-scaffold)", config.ProjectFileName, root)
	}

	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = DeriveTitle(root)
	}
	author := strings.TrimSpace(opts.Author)
	if author == "" {
		author = "Anonymous"
	}
	formats := trimFormats(opts.Formats)
	if len(formats) == 0 {
		formats = []string{"pdf", "html"}
	}
	mirror := strings.TrimSpace(opts.Mirror)
	if mirror == "" {
		mirror = config.Default().Packages.Mirror
	}
	version := strings.TrimSpace(opts.RVersion)

	paper, err := renderTemplate("templates/paper.qmd.tmpl", paperData{
		Title:   title,
		Author:  author,
		Formats: formats,
	})
	if err != nil {
		return nil, err
	}
	dockerfile, err := renderTemplate("templates/Dockerfile.tmpl", dockerData{
		BaseImage: baseImage(version),
		Mirror:    mirror,
	})
	if err != nil {
		return nil, err
	}
	workflow, err := renderCIWorkflow(formats, version)
	if err != nil {
		return nil, err
	}
	bib, err := asset("templates/references.bib")
	if err != nil {
		return nil, err
	}
	wordlist, err := asset("templates/WORDLIST")
	if err != nil {
		return nil, err
	}
	gitignore, err := asset("templates/gitignore")
	if err != nil {
		return nil, err
	}
	rprofile, err := asset("templates/Rprofile")
	if err != nil {
		return nil, err
	}

	files := []scaffoldFile{
		{config.ProjectFileName, []byte(config.Sample())},
		{"paper.qmd", paper},
		{"references.bib", bib},
		{"WORDLIST", wordlist},
		{".gitignore", gitignore},
		{".Rprofile", rprofile},
		{"Dockerfile", dockerfile},
		{filepath.Join(".github", "workflows", "render.yml"), workflow},
	}
	if version != "" {
		marker := config.Default().Environment.VersionFile
		files = append(files, scaffoldFile{marker, []byte(version + "\n")})
	}

	result := &ScaffoldResult{Root: root, Title: title}
	for _, file := range files {
		target := filepath.Join(root, file.name)
		if _, err := os.Stat(target); err == nil && !opts.Force {
			result.Skipped = append(result.Skipped, file.name)
			continue
		}
		if dir := filepath.Dir(target); dir != root {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create %s: %w", filepath.Dir(file.name), err)
			}
		}
		if err := os.WriteFile(target, file.data, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", file.name, err)
		}
		result.Created = append(result.Created, file.name)
	}

	return result, nil
}

func trimFormats(formats []string) []string {
	out := make([]string, 0, len(formats))
	for _, format := range formats {
		format = strings.TrimSpace(format)
		if format != "" {
			out = append(out, format)
		}
	}
	return out
}

func baseImage(version string) string {
	if version == "" {
		return "rocker/r-ver:latest"
	}
	return "rocker/r-ver:" + version
}

func renderTemplate(name string, data any) ([]byte, error) {
	tmpl, err := template.ParseFS(templateFS, name)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func asset(name string) ([]byte, error) {
	data, err := templateFS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", name, err)
	}
	return data, nil
}
