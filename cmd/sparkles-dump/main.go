// Command sparkles-dump reads a Sparkles wire stream (as written by
// sink.FileSink) and renders it as a Chrome/Perfetto trace JSON file.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/sparkles-rs/sparkles/parser"
	"github.com/sparkles-rs/sparkles/traceviewer"
)

func main() {
	var (
		flagInput  = flag.String("i", "", "input Sparkles trace `file`")
		flagOutput = flag.String("o", "trace.json", "output Perfetto/Chrome trace `file`")
	)
	flag.Parse()
	if *flagInput == "" {
		flag.Usage()
		os.Exit(1)
	}

	in, err := os.Open(*flagInput)
	if err != nil {
		log.Fatal(err)
	}
	defer in.Close()

	trace := traceviewer.NewPerfettoTrace()
	p := parser.New(trace)
	if err := p.Run(in); err != nil {
		log.Fatal(err)
	}

	if info, ok := p.EncoderInfo(); ok {
		fmt.Fprintf(os.Stderr, "encoder: %s (pid %d, wire v%d)\n", info.ProcessName, info.PID, info.Ver)
	}

	out, err := os.Create(*flagOutput)
	if err != nil {
		log.Fatal(err)
	}
	defer out.Close()

	if _, err := trace.WriteTo(out); err != nil {
		log.Fatal(err)
	}
}
