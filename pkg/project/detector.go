/*
Package project identifies the project in a working directory: its name,
primary language, frameworks, and git state. Detection is marker-file based
and deliberately cheap; it runs on every host event.
*/
package project

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/theapemachine/recall-go/pkg/gitctx"
)

/*
Context describes the detected project. Built fresh per event and immutable
afterwards.
*/
type Context struct {
	Name       string
	Language   string
	Frameworks []string
	Tools      []string
	Git        gitctx.Info
	Confidence float64
}

/*
Tags returns the lowercase identifier set used for tag-relevance scoring.
*/
func (c *Context) Tags() []string {
	tags := []string{strings.ToLower(c.Name)}
	if c.Language != "" {
		tags = append(tags, strings.ToLower(c.Language))
	}
	for _, f := range c.Frameworks {
		tags = append(tags, strings.ToLower(f))
	}
	return tags
}

type marker struct {
	file       string
	language   string
	confidence float64
}

var languageMarkers = []marker{
	{"go.mod", "go", 0.95},
	{"package.json", "javascript", 0.9},
	{"pyproject.toml", "python", 0.9},
	{"requirements.txt", "python", 0.8},
	{"Cargo.toml", "rust", 0.95},
	{"pom.xml", "java", 0.9},
	{"build.gradle", "java", 0.85},
	{"Gemfile", "ruby", 0.9},
	{"composer.json", "php", 0.9},
}

var toolMarkers = map[string]string{
	"Dockerfile":         "docker",
	"docker-compose.yml": "docker-compose",
	"Makefile":           "make",
	".github":            "github-actions",
	"Taskfile.yml":       "task",
}

/*
Detect inspects the working directory and returns the project context. A
directory with no recognizable markers still yields a name (the directory
base) at low confidence.
*/
func Detect(workingDir string) *Context {
	ctx := &Context{
		Name:       filepath.Base(workingDir),
		Confidence: 0.3,
	}

	for _, m := range languageMarkers {
		if !exists(filepath.Join(workingDir, m.file)) {
			continue
		}

		ctx.Language = m.language
		ctx.Confidence = m.confidence

		switch m.file {
		case "package.json":
			ctx.Frameworks = append(ctx.Frameworks, nodeFrameworks(filepath.Join(workingDir, m.file))...)
		case "go.mod":
			ctx.Frameworks = append(ctx.Frameworks, goFrameworks(filepath.Join(workingDir, m.file))...)
		}

		break
	}

	for file, tool := range toolMarkers {
		if exists(filepath.Join(workingDir, file)) {
			ctx.Tools = append(ctx.Tools, tool)
		}
	}

	analyzer := gitctx.NewAnalyzer(workingDir, 0, 0)
	ctx.Git = analyzer.CurrentInfo()

	if ctx.Git.IsRepo {
		ctx.Confidence = clip01(ctx.Confidence + 0.05)
	}

	return ctx
}

// nodeFrameworks reads dependency names out of package.json and maps the
// well-known ones.
func nodeFrameworks(path string) []string {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var pkg struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(raw, &pkg); err != nil {
		return nil
	}

	known := []string{"react", "vue", "svelte", "next", "express", "fastify", "nest"}
	var frameworks []string

	for _, name := range known {
		if _, ok := pkg.Dependencies[name]; ok {
			frameworks = append(frameworks, name)
			continue
		}
		if _, ok := pkg.DevDependencies[name]; ok {
			frameworks = append(frameworks, name)
		}
	}

	return frameworks
}

// goFrameworks scans go.mod require lines for well-known module roots.
func goFrameworks(path string) []string {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	known := map[string]string{
		"github.com/gofiber/fiber":  "fiber",
		"github.com/gin-gonic/gin":  "gin",
		"github.com/labstack/echo":  "echo",
		"github.com/go-chi/chi":     "chi",
		"github.com/spf13/cobra":    "cobra",
		"google.golang.org/grpc":    "grpc",
		"github.com/gorilla/mux":    "gorilla",
	}

	var frameworks []string
	content := string(raw)

	for root, name := range known {
		if strings.Contains(content, root) {
			frameworks = append(frameworks, name)
		}
	}

	return frameworks
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func clip01(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}
