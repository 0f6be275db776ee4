package command

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/tomatool/loginsuite/internal/runlog"
)

var runsFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Value:   defaultConfigPath,
		Usage:   "config file path (for report.dir)",
	},
	&cli.StringFlag{
		Name:  "dir",
		Usage: "run directory root, overrides report.dir",
	},
}

var runsCommand = &cli.Command{
	Name:  "runs",
	Usage: "List stored runs and their logs",
	Flags: append([]cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output in JSON format",
		},
	}, runsFlags...),
	Action: func(c *cli.Context) error {
		dir, err := reportDir(c)
		if err != nil {
			return err
		}
		runs, err := runlog.ListRuns(dir)
		if err != nil {
			return fmt.Errorf("listing runs in %s: %w", dir, err)
		}

		if c.Bool("json") {
			out, err := json.MarshalIndent(runs, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal JSON: %w", err)
			}
			fmt.Fprintln(c.App.Writer, string(out))
			return nil
		}
		printRuns(c.App.Writer, dir, runs)
		return nil
	},
	Subcommands: []*cli.Command{
		{
			Name:      "log",
			Usage:     "Print a log of a stored run",
			ArgsUsage: "<run> [log name, default harness]",
			Flags:     runsFlags,
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					return fmt.Errorf("run name required")
				}
				name := "harness"
				if c.NArg() > 1 {
					name = c.Args().Get(1)
				}
				dir, err := reportDir(c)
				if err != nil {
					return err
				}
				content, err := runlog.GetLogContent(dir, c.Args().First(), name)
				if err != nil {
					return err
				}
				fmt.Fprint(c.App.Writer, content)
				return nil
			},
		},
	},
}

func reportDir(c *cli.Context) (string, error) {
	if c.IsSet("dir") {
		return c.String("dir"), nil
	}
	cfg, err := loadConfig(c.String("config"), c.IsSet("config"))
	if err != nil {
		return "", err
	}
	return cfg.Report.Dir, nil
}

func printRuns(w io.Writer, dir string, runs []runlog.RunInfo) {
	if len(runs) == 0 {
		fmt.Fprintln(w, helpStyle.Render("No runs in "+dir))
		return
	}

	for _, run := range runs {
		fmt.Fprintf(w, "%s  %s\n", boldStyle.Render(run.Name), helpStyle.Render(run.Timestamp.Format("2006-01-02 15:04:05")))
		for _, f := range run.Logs {
			fmt.Fprintf(w, "  log     %-24s %d bytes\n", f.Name, f.Size)
		}
		for _, f := range run.Reports {
			fmt.Fprintf(w, "  report  %-24s %d bytes\n", f.Name, f.Size)
		}
	}
}
