package main

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/cqasmfe/config"
	"github.com/sarchlab/cqasmfe/protocol"
	"github.com/sarchlab/cqasmfe/verify"
)

//go:embed grover.cq
var groverSrc string

// The dummy host cannot simulate amplitudes, so the marked state is
// configured as the outcome.
const hostConfig = `
host:
  outcomes: fixed
  fixed:
    0: 1
    1: 1
log:
  level: info
`

func main() {
	c, err := config.Parse([]byte(hostConfig))
	if err != nil {
		panic(err)
	}

	platform, err := config.PlatformBuilder{}.
		WithConfig(c).
		WithLogOutput(os.Stderr).
		Build("Grover")
	if err != nil {
		panic(err)
	}

	pluginConn, hostConn := protocol.NewPipe()

	plugin := protocol.PluginBuilder{}.
		WithConn(pluginConn).
		WithLogger(platform.Logger).
		WithCompileOptions(c.CompileOptions()...).
		Build("Plugin")

	endpoint := protocol.EndpointBuilder{}.
		WithConn(hostConn).
		WithHost(platform.Host).
		WithLogger(platform.Logger).
		Build("Endpoint")

	ctx := context.Background()
	done := make(chan error, 1)
	go func() { done <- plugin.Serve(ctx) }()

	err = endpoint.Init(ctx, protocol.InitMsgBuilder{}.
		WithFilename("grover.cq").
		WithSource(groverSrc).
		Build())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}

	stream := plugin.Session().Stream()
	result, err := endpoint.Run(ctx)

	verify.GenerateReport(stream, result, err).WriteReport(os.Stdout)

	endpoint.Close()
	<-done

	if err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}
