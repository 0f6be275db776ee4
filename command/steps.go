package command

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/tomatool/loginsuite/internal/handler"
)

var stepsCommand = &cli.Command{
	Name:  "steps",
	Usage: "List available Gherkin steps",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "filter",
			Aliases: []string{"f"},
			Usage:   "Filter steps by keyword",
		},
		&cli.StringFlag{
			Name:    "group",
			Aliases: []string{"g"},
			Usage:   "Filter by step group (setup, form, verification)",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output in JSON format",
		},
	},
	Action: runSteps,
}

func runSteps(ctx *cli.Context) error {
	categories := filterSteps(collectStepCategories(), ctx.String("filter"), ctx.String("group"))

	if ctx.Bool("json") {
		output, err := json.MarshalIndent(categories, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(ctx.App.Writer, string(output))
		return nil
	}

	printSteps(ctx.App.Writer, categories)
	return nil
}

// filterSteps keeps steps whose description or pattern contains keyword and
// whose group matches group. Categories left empty are dropped.
func filterSteps(categories []handler.StepCategory, keyword, group string) []handler.StepCategory {
	keyword = strings.ToLower(keyword)

	var filtered []handler.StepCategory
	for _, cat := range categories {
		var matching []handler.StepDef
		for _, step := range cat.Steps {
			if group != "" && !strings.EqualFold(step.Group, group) {
				continue
			}
			if keyword != "" &&
				!strings.Contains(strings.ToLower(step.Description), keyword) &&
				!strings.Contains(strings.ToLower(step.Pattern), keyword) {
				continue
			}
			matching = append(matching, step)
		}

		if len(matching) == 0 {
			continue
		}

		filtered = append(filtered, handler.StepCategory{
			Name:        cat.Name,
			Description: cat.Description,
			Steps:       matching,
		})
	}
	return filtered
}

func printSteps(w io.Writer, categories []handler.StepCategory) {
	for _, cat := range categories {
		fmt.Fprintf(w, "\n%s\n", subtitleStyle.Bold(true).Render(cat.Name))
		fmt.Fprintf(w, "%s\n\n", helpStyle.Render(cat.Description))

		for _, step := range cat.Steps {
			fmt.Fprintf(w, "  %s\n", boldStyle.Render(step.Description))
			fmt.Fprintf(w, "  %s\n", patternStyle.Render(step.Pattern))
			fmt.Fprintf(w, "  %s\n\n", helpStyle.Render("Example: "+step.Example))
		}
	}
}
