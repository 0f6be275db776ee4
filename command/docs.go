package command

import (
	"fmt"
	htmltemplate "html/template"
	"io"
	"os"
	"text/template"

	"github.com/urfave/cli/v2"

	"github.com/tomatool/loginsuite/internal/handler"
)

var docsCommand = &cli.Command{
	Name:   "docs",
	Usage:  "Generate documentation for available steps",
	Hidden: true,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output file (default stdout)",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Value:   "markdown",
			Usage:   "Output format: markdown, html",
		},
	},
	Action: runDocs,
}

func runDocs(ctx *cli.Context) error {
	var w io.Writer = ctx.App.Writer
	if output := ctx.String("output"); output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return generateDocs(w, ctx.String("format"), collectStepCategories())
}

func generateDocs(w io.Writer, format string, categories []handler.StepCategory) error {
	switch format {
	case "markdown":
		return generateMarkdown(w, categories)
	case "html":
		return generateHTML(w, categories)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// collectStepCategories returns the steps of every handler. The handlers are
// built without a session: only their metadata is read.
func collectStepCategories() []handler.StepCategory {
	return []handler.StepCategory{
		handler.NewLogin("login", nil, handler.LoginOptions{}).Steps(),
	}
}

// GroupedStep is a step with processed fields for docs
type GroupedStep struct {
	Example     string
	Description string
}

// StepGroup groups steps by their group name
type StepGroup struct {
	Name  string
	Steps []GroupedStep
}

// CategoryWithGroups is a category with steps grouped
type CategoryWithGroups struct {
	Name        string
	Description string
	Groups      []StepGroup
}

// DocsData is the data structure for the docs template
type DocsData struct {
	Categories []CategoryWithGroups
}

func buildDocsData(categories []handler.StepCategory) DocsData {
	data := DocsData{Categories: make([]CategoryWithGroups, 0, len(categories))}
	for _, cat := range categories {
		data.Categories = append(data.Categories, buildCategoryWithGroups(cat))
	}
	return data
}

// buildCategoryWithGroups keeps groups in order of first appearance
func buildCategoryWithGroups(cat handler.StepCategory) CategoryWithGroups {
	result := CategoryWithGroups{
		Name:        cat.Name,
		Description: cat.Description,
	}

	index := make(map[string]int)
	for _, step := range cat.Steps {
		name := step.Group
		if name == "" {
			name = "General"
		}
		i, ok := index[name]
		if !ok {
			i = len(result.Groups)
			index[name] = i
			result.Groups = append(result.Groups, StepGroup{Name: name})
		}
		result.Groups[i].Steps = append(result.Groups[i].Steps, GroupedStep{
			Example:     step.Example,
			Description: step.Description,
		})
	}
	return result
}

const markdownTemplate = `# Step Reference

Every step a loginsuite feature file can use.

> **Note:** This documentation is generated from the step definitions.

{{range .Categories}}
---

## {{.Name}}

{{.Description}}

{{range .Groups}}
### {{.Name}}

| Step | Description |
|------|-------------|
{{range .Steps}}| ` + "`" + `{{.Example}}` + "`" + ` | {{.Description}} |
{{end}}
{{end}}
{{end}}
## Failure kinds

Failed steps are reported with one of these kinds:

| Kind | Meaning |
|------|---------|
| ` + "`ElementNotFound`" + ` | the element did not appear before the wait timeout |
| ` + "`ElementNotInteractable`" + ` | the element was found but refused the action |
| ` + "`WebDriverError`" + ` | the driver or the browser session failed |
| ` + "`UnexpectedState`" + ` | a step ran without an active session |
| ` + "`AssertionFailed`" + ` | the page did not show the expected outcome |
`

func generateMarkdown(w io.Writer, categories []handler.StepCategory) error {
	tmpl, err := template.New("docs").Parse(markdownTemplate)
	if err != nil {
		return fmt.Errorf("parsing template: %w", err)
	}
	return tmpl.Execute(w, buildDocsData(categories))
}

const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
    <title>loginsuite Step Reference</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 900px; margin: 0 auto; padding: 20px; }
        h1 { color: #e74c3c; }
        h2 { color: #2c3e50; border-bottom: 2px solid #e74c3c; padding-bottom: 10px; }
        h3 { color: #34495e; }
        table { border-collapse: collapse; width: 100%; margin-bottom: 20px; }
        th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
        th { background-color: #f8f9fa; }
        code { background: #f8f9fa; padding: 2px 6px; border-radius: 4px; font-family: monospace; }
    </style>
</head>
<body>
    <h1>loginsuite Step Reference</h1>
    {{range .Categories}}
    <div class="category">
        <h2>{{.Name}}</h2>
        <p>{{.Description}}</p>
        {{range .Groups}}
        <h3>{{.Name}}</h3>
        <table>
            <tr><th>Step</th><th>Description</th></tr>
            {{range .Steps}}
            <tr><td><code>{{.Example}}</code></td><td>{{.Description}}</td></tr>
            {{end}}
        </table>
        {{end}}
    </div>
    {{end}}
</body>
</html>`

func generateHTML(w io.Writer, categories []handler.StepCategory) error {
	tmpl, err := htmltemplate.New("docs").Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("parsing template: %w", err)
	}
	return tmpl.Execute(w, buildDocsData(categories))
}
