package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
)

const usage = `Usage: pngdb <command> [flags]

A database that stores typed JSON rows inside a PNG image.

Commands:
  create -f FILE [-w 256] [-H 256] -s SCHEMA   Create an empty database image
  insert -f FILE -x X -y Y -d JSON             Insert a row
  query  -f FILE -w WHERE [--json]             Query rows, e.g. -w 'age > 28'
  list   -f FILE [--json]                      List every row
  info   -f FILE                               Show schema, size and capacity

SCHEMA is a JSON object ({"name":"string","age":"number"}) or the compact
form name:string,age:number. Types are string, number and boolean.
Every command accepts --config FILE (or PNGDB_CONFIG) and -v for debug logs.
`

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		fmt.Fprint(stderr, usage)
		return flag.ErrHelp
	}

	var cmd func([]string, io.Writer, io.Writer) error
	switch args[0] {
	case "create":
		cmd = runCreate
	case "insert":
		cmd = runInsert
	case "query":
		cmd = runQuery
	case "list":
		cmd = runList
	case "info":
		cmd = runInfo
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command: %s", args[0])
	}
	return cmd(args[1:], stdout, stderr)
}
