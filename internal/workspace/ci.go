package workspace

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"galley/internal/config"
)

type ciStep struct {
	Name string            `yaml:"name,omitempty"`
	Uses string            `yaml:"uses,omitempty"`
	With map[string]string `yaml:"with,omitempty"`
	Run  string            `yaml:"run,omitempty"`
}

type ciJob struct {
	RunsOn string   `yaml:"runs-on"`
	Steps  []ciStep `yaml:"steps"`
}

type ciPush struct {
	Branches []string `yaml:"branches"`
	Paths    []string `yaml:"paths"`
}

type ciTriggers struct {
	Push             ciPush   `yaml:"push"`
	WorkflowDispatch struct{} `yaml:"workflow_dispatch"`
}

type ciWorkflow struct {
	Name string           `yaml:"name"`
	On   ciTriggers       `yaml:"on"`
	Jobs map[string]ciJob `yaml:"jobs"`
}

// renderCIWorkflow emits the GitHub Actions render workflow. Trigger paths
// are derived from the configured watch extensions so the workflow and the
// local watch mode react to the same files.
func renderCIWorkflow(formats []string, rVersion string) ([]byte, error) {
	paths := []string{config.ProjectFileName, "renv.lock", "WORDLIST"}
	for _, ext := range config.Default().Workflow.WatchExtensions {
		paths = append(paths, "**/*"+ext)
	}

	if rVersion == "" {
		rVersion = "release"
	}

	workflow := ciWorkflow{
		Name: "render",
		On: ciTriggers{
			Push: ciPush{
				Branches: []string{"main"},
				Paths:    paths,
			},
		},
		Jobs: map[string]ciJob{
			"render": {
				RunsOn: "ubuntu-latest",
				Steps: []ciStep{
					{Uses: "actions/checkout@v4"},
					{
						Uses: "quarto-dev/quarto-actions/setup@v2",
						With: map[string]string{"tinytex": "true"},
					},
					{
						Uses: "r-lib/actions/setup-r@v2",
						With: map[string]string{
							"r-version":       rVersion,
							"use-public-rspm": "true",
						},
					},
					{Uses: "r-lib/actions/setup-renv@v2"},
					{
						Name: "Render",
						Run:  "quarto render --to " + strings.Join(formats, ","),
					},
					{
						Uses: "actions/upload-artifact@v4",
						With: map[string]string{
							"name": "paper",
							"path": config.Default().Render.OutputDir + "/",
						},
					},
				},
			},
		},
	}

	data, err := yaml.Marshal(workflow)
	if err != nil {
		return nil, fmt.Errorf("marshal workflow: %w", err)
	}
	return data, nil
}
