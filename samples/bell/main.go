package main

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/cqasmfe/api"
	"github.com/sarchlab/cqasmfe/cqasm"
	"github.com/sarchlab/cqasmfe/dummy"
)

//go:embed bell.cq
var bellSrc string

func main() {
	stream, err := cqasm.Compile("bell.cq", bellSrc)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}
	fmt.Println(stream)

	engine := sim.NewSerialEngine()

	host := dummy.Builder{}.
		WithEngine(engine).
		WithFreq(1 * sim.GHz).
		WithOutcomes(dummy.NewRandomOutcomes(1, 0.5)).
		Build("Host")

	result, err := api.RunSession(context.Background(), stream, host,
		func(b api.SessionBuilder) api.SessionBuilder {
			return b.WithHook(api.TraceHook{})
		})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}

	dummy.PrintTrace(os.Stdout, host.Records())
	api.PrintResult(os.Stdout, result)
	fmt.Printf("simulated time: %.0f ns\n", float64(engine.CurrentTime())*1e9)

	atexit.Exit(0)
}
