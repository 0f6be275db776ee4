package command

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/tomatool/loginsuite/internal/version"
)

var versionCommand = &cli.Command{
	Name:  "version",
	Usage: "Print version information",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output in JSON format",
		},
	},
	Action: func(c *cli.Context) error {
		info := version.Info()
		w := c.App.Writer

		if c.Bool("json") {
			out, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal JSON: %w", err)
			}
			fmt.Fprintln(w, string(out))
			return nil
		}

		fmt.Fprintf(w, "%s %s\n", titleStyle.Render("loginsuite"), info.Version)
		fmt.Fprintf(w, "  Commit:     %s\n", info.Commit)
		fmt.Fprintf(w, "  Built:      %s\n", info.BuildDate)
		fmt.Fprintf(w, "  Go version: %s\n", info.GoVersion)
		fmt.Fprintf(w, "  OS/Arch:    %s\n", info.Platform)
		return nil
	},
}
