package main

import (
	"fmt"
	"os"
)

const usage = `usage: canopy <command> [flags]

commands:
  serve     run the editor HTTP API (default)
  mcp       serve the editor tools over MCP stdio
  render    print a diagram of a document
  init      write ~/.canopy/settings.json and reload a running server
  version   print the version
`

func main() {
	cmd, args := "serve", os.Args[1:]
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe(args)
	case "mcp":
		err = runMCP(args)
	case "render":
		err = runRender(args, os.Stdout)
	case "init":
		err = runInit(args)
	case "version":
		printVersion()
	case "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
