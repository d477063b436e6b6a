package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rendis/canopy/internal/diagram"
)

// runRender prints a diagram of one document and exits.
func runRender(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	envFile := fs.String("env-file", ".env", "dotenv file layered over settings.json")
	format := fs.String("format", "ascii", "output format: ascii, mermaid or png")
	out := fs.String("out", "", "write to this file instead of stdout")
	cfg, err := parseConfig(fs, envFile, args)
	if err != nil {
		return err
	}
	if id := fs.Arg(0); id != "" {
		cfg.DocumentID = id
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.session.Open(ctx, cfg.DocumentID); err != nil {
		return err
	}
	model, err := a.session.Diagram()
	if err != nil {
		return err
	}

	var data []byte
	switch *format {
	case "ascii":
		data = []byte(diagram.RenderASCII(model))
	case "mermaid":
		data = []byte(diagram.RenderMermaid(model))
	case "png":
		data, err = diagram.RenderImage(ctx, model)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("format must be ascii, mermaid or png, got %q", *format)
	}

	if *out != "" {
		return os.WriteFile(*out, data, 0o644)
	}
	_, err = stdout.Write(data)
	return err
}
