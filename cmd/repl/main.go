package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"pngdb/db/engine"
	"pngdb/db/schema"
	"pngdb/db/storage"
	"pngdb/internal/config"
	"pngdb/internal/logging"
)

const help = `Commands:
  insert X Y JSON   add a row, e.g. insert 1 2 {"name":"Alice","age":30}
  query WHERE       e.g. query age > 28 AND name != "Bob"
  list              show every row
  schema            show the schema
  info              show dimensions, rows and capacity
  save              write the image back to disk
  exit | quit       leave (asks once if there are unsaved rows)`

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, in io.Reader, out, errOut io.Writer) error {
	// FILE may come before or after the flags.
	var path string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		path, args = args[0], args[1:]
	}

	fs := flag.NewFlagSet("repl", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.Usage = func() {
		fmt.Fprintln(errOut, "Usage: repl FILE [-w W -H H -s SCHEMA] [--config FILE] [-v]")
		fs.PrintDefaults()
	}
	width := fs.Uint("w", 0, "width when creating FILE (default from config)")
	height := fs.Uint("H", 0, "height when creating FILE (default from config)")
	spec := fs.String("s", "", "schema when creating FILE, JSON object or name:type,...")
	cfgPath := fs.String("config", "", "config file (YAML or TOML)")
	verbose := fs.Bool("v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if path == "" {
		path = fs.Arg(0)
	}
	if path == "" {
		fs.Usage()
		return flag.ErrHelp
	}

	cfg, err := config.Load(config.Path(*cfgPath))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	level := cfg.Logging.Level
	if *verbose {
		level = "debug"
	}
	compression, err := cfg.Database.CompressionLevel()
	if err != nil {
		return err
	}
	opts := []engine.Option{
		engine.WithLogger(logging.New(errOut, level, cfg.Logging.Format)),
		engine.WithCompressionLevel(compression),
		engine.WithMaxPixels(cfg.Database.MaxPixels),
	}

	s := &session{path: path, out: out}
	if data, err := storage.LoadFile(path); err == nil {
		if s.db, err = engine.FromPNG(data, opts...); err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if *spec == "" {
			return fmt.Errorf("%s does not exist; pass -s SCHEMA to create it", path)
		}
		if *width > math.MaxUint32 || *height > math.MaxUint32 {
			return fmt.Errorf("dimensions %dx%d are too large", *width, *height)
		}
		def, err := schema.ParseAny(*spec)
		if err != nil {
			return err
		}
		w, h := cfg.Database.DefaultWidth, cfg.Database.DefaultHeight
		if *width != 0 {
			w = uint32(*width)
		}
		if *height != 0 {
			h = uint32(*height)
		}
		if s.db, err = engine.New(w, h, def, opts...); err != nil {
			return err
		}
		s.dirty = true
	} else {
		return err
	}

	w, h := s.db.Dimensions()
	fmt.Fprintf(out, "PNG database %s (%dx%d, %d rows)\n", path, w, h, s.db.RowCount())
	fmt.Fprintln(out, "Type 'help' for commands, 'exit' or 'quit' to close.")

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for {
		fmt.Fprint(out, "pngdb> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		input = strings.TrimSuffix(input, ";")

		if done := s.exec(input); done {
			return nil
		}
	}
	fmt.Fprintln(out)
	return scanner.Err()
}

type session struct {
	path   string
	db     *engine.Database
	out    io.Writer
	dirty  bool
	warned bool
}

// exec runs one command line and reports whether the shell should exit.
func (s *session) exec(input string) bool {
	cmd, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)

	var err error
	switch strings.ToLower(cmd) {
	case "exit", "quit":
		if s.dirty && !s.warned {
			s.warned = true
			fmt.Fprintln(s.out, "Unsaved changes. Type 'save' first, or exit again to discard them.")
			return false
		}
		return true
	case "help":
		fmt.Fprintln(s.out, help)
	case "insert":
		err = s.insert(rest)
	case "query":
		var rows []storage.Row
		if rows, err = s.db.Query(rest); err == nil {
			s.printRows(rows)
		}
	case "list":
		s.printRows(s.db.ListAll())
	case "schema":
		fmt.Fprintln(s.out, s.db.Schema().String())
	case "info":
		w, h := s.db.Dimensions()
		fmt.Fprintf(s.out, "%dx%d, %d rows, %d / %d bytes used\n",
			w, h, s.db.RowCount(), s.db.PayloadSize(), s.db.Capacity())
	case "save":
		err = s.save()
	default:
		err = fmt.Errorf("unknown command %q (try 'help')", cmd)
	}
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
	return false
}

func (s *session) insert(args string) error {
	fields := strings.SplitN(args, " ", 3)
	if len(fields) < 3 {
		return errors.New("usage: insert X Y JSON")
	}
	x, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid x %q", fields[0])
	}
	y, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid y %q", fields[1])
	}
	if err := s.db.Insert(uint32(x), uint32(y), strings.TrimSpace(fields[2])); err != nil {
		return err
	}
	s.dirty = true
	s.warned = false
	fmt.Fprintf(s.out, "Inserted data at (%d, %d)\n", x, y)
	return nil
}

func (s *session) save() error {
	data, err := s.db.ToPNG()
	if err != nil {
		return err
	}
	if err := storage.SaveFile(s.path, data); err != nil {
		return err
	}
	s.dirty = false
	fmt.Fprintf(s.out, "Saved %s (%d bytes)\n", s.path, len(data))
	return nil
}

func (s *session) printRows(rows []storage.Row) {
	if len(rows) == 0 {
		fmt.Fprintln(s.out, "No results found")
		return
	}
	cols := s.db.Schema().Columns()

	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', tabwriter.Debug)
	// Header
	fmt.Fprint(w, "x\ty")
	for _, col := range cols {
		fmt.Fprintf(w, "\t%s", col.Name)
	}
	fmt.Fprintln(w)

	// Rows
	for _, row := range rows {
		fmt.Fprintf(w, "%d\t%d", row.X, row.Y)
		for _, col := range cols {
			v, _ := row.Get(col.Name)
			fmt.Fprintf(w, "\t%s", v.String())
		}
		fmt.Fprintln(w)
	}
	w.Flush()
	fmt.Fprintf(s.out, "(%d rows)\n", len(rows))
}
