package command

import (
	"github.com/tomatool/loginsuite/internal/version"
	"github.com/urfave/cli/v2"
)

func Run(args []string) error {
	return newApp().Run(args)
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "loginsuite",
		Usage:   "Acceptance tests for a web login form, driven through a real browser",
		Version: version.Version,
		Description: `loginsuite runs Gherkin scenarios against a login page. Each scenario gets
a fresh browser session: the previous one is logged out, cleared and quit when
the next scenario reaches "I am on the login page".

Configure the driver, target and waits in loginsuite.yml.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "log level (debug, info, warn, error)",
				EnvVars: []string{"LOGINSUITE_LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			return setupLogging(c.String("log-level"))
		},
		Commands: []*cli.Command{
			initCommand,
			runCommand,
			validateCommand,
			stepsCommand,
			docsCommand,
			runsCommand,
			versionCommand,
		},
	}
}
