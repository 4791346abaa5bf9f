// Command cqasmfe compiles a cQASM file and runs it on the dummy host.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/tebeka/atexit"
	"gopkg.in/urfave/cli.v1"

	"github.com/sarchlab/cqasmfe/api"
	"github.com/sarchlab/cqasmfe/config"
	"github.com/sarchlab/cqasmfe/cqasm"
	"github.com/sarchlab/cqasmfe/dummy"
	"github.com/sarchlab/cqasmfe/verify"
)

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "YAML configuration file",
	}
	seedFlag = cli.Int64Flag{
		Name:  "seed",
		Usage: "seed of random measurement outcomes (implies outcomes: random)",
	}
	jsonFlag = cli.BoolFlag{
		Name:  "json",
		Usage: "print the result as JSON",
	}
	traceFlag = cli.BoolFlag{
		Name:  "trace",
		Usage: "print every operation the host processed",
	}
	reportFlag = cli.StringFlag{
		Name:  "report",
		Usage: "write a verification report to this file",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "cqasmfe"
	app.Usage = "cQASM frontend"
	app.HideVersion = true
	app.Commands = []cli.Command{
		{
			Name:      "run",
			Usage:     "Compile a program and run it",
			ArgsUsage: "FILE",
			Flags:     []cli.Flag{configFlag, seedFlag, jsonFlag, traceFlag, reportFlag},
			Action:    runCmd,
		},
		{
			Name:      "lint",
			Usage:     "Compile a program and check it for suspicious code",
			ArgsUsage: "FILE",
			Flags:     []cli.Flag{configFlag},
			Action:    lintCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		printError(err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func loadConfig(ctx *cli.Context) (config.Config, error) {
	c := config.Default()
	if path := ctx.String(configFlag.Name); path != "" {
		var err error
		if c, err = config.Load(path); err != nil {
			return config.Config{}, err
		}
	}

	if ctx.IsSet(seedFlag.Name) {
		c.Host.Outcomes = config.OutcomesRandom
		c.Host.Seed = ctx.Int64(seedFlag.Name)
	}

	return c, c.Validate()
}

func fileArg(ctx *cli.Context) (string, error) {
	if ctx.NArg() != 1 {
		return "", errors.New("expected exactly one FILE")
	}
	return ctx.Args().First(), nil
}

func runCmd(ctx *cli.Context) error {
	path, err := fileArg(ctx)
	if err != nil {
		return err
	}

	c, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	platform, err := config.PlatformBuilder{}.
		WithConfig(c).
		WithLogOutput(os.Stderr).
		Build("cqasmfe")
	if err != nil {
		return err
	}
	slog.SetDefault(platform.Logger)

	session := platform.SessionBuilder(c).Build("")
	if err := session.Initialize(context.Background(), api.InitConfig{
		Filename: path,
		Path:     path,
	}); err != nil {
		return err
	}

	stream := session.Stream()
	result, runErr := session.Run(context.Background())

	if ctx.Bool(traceFlag.Name) {
		dummy.PrintTrace(os.Stdout, platform.Host.Records())
	}

	if file := ctx.String(reportFlag.Name); file != "" {
		err := verify.GenerateReport(stream, result, runErr).SaveReportToFile(file)
		if err != nil {
			return err
		}
	}

	if runErr != nil {
		return runErr
	}

	if ctx.Bool(jsonFlag.Name) {
		out, err := result.JSON()
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	api.PrintResult(os.Stdout, result)
	return nil
}

func lintCmd(ctx *cli.Context) error {
	path, err := fileArg(ctx)
	if err != nil {
		return err
	}

	c, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	stream, err := cqasm.CompileFile(path, c.CompileOptions()...)
	if err != nil {
		return err
	}

	issues := verify.RunLint(stream)
	warn := color.New(color.FgYellow)
	for _, issue := range issues {
		warn.Printf("%s: %s\n", path, issue)
	}

	report := verify.GenerateReport(stream, nil, nil)
	if len(report.StructIssues) > 0 {
		return errors.Errorf("%d scheduling conflicts", len(report.StructIssues))
	}

	return nil
}

func printError(err error) {
	color.New(color.FgRed, color.Bold).Fprint(os.Stderr, "error: ")
	fmt.Fprintln(os.Stderr, err)
}
