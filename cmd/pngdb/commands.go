package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/tidwall/pretty"

	"pngdb/db/engine"
	"pngdb/db/schema"
	"pngdb/db/storage"
	"pngdb/internal/config"
	"pngdb/internal/logging"
)

// command carries the flags every subcommand shares.
type command struct {
	fs      *flag.FlagSet
	file    string
	cfgPath string
	verbose bool

	cfg    *config.Config
	logger *slog.Logger
}

func newCommand(name string, stderr io.Writer) *command {
	c := &command{fs: flag.NewFlagSet(name, flag.ContinueOnError)}
	c.fs.SetOutput(stderr)
	c.fs.StringVar(&c.file, "f", "", "database PNG file")
	c.fs.StringVar(&c.file, "file", "", "database PNG file")
	c.fs.StringVar(&c.cfgPath, "config", "", "config file (YAML or TOML)")
	c.fs.BoolVar(&c.verbose, "v", false, "debug logging")
	return c
}

func (c *command) parse(args []string, stderr io.Writer) error {
	if err := c.fs.Parse(args); err != nil {
		return err
	}
	if c.fs.NArg() > 0 {
		return fmt.Errorf("unexpected argument %q", c.fs.Arg(0))
	}
	if c.file == "" {
		return fmt.Errorf("%s: -f FILE is required", c.fs.Name())
	}

	cfg, err := config.Load(config.Path(c.cfgPath))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	level := cfg.Logging.Level
	if c.verbose {
		level = "debug"
	}
	c.cfg = cfg
	c.logger = logging.New(stderr, level, cfg.Logging.Format)
	return nil
}

func (c *command) options() ([]engine.Option, error) {
	level, err := c.cfg.Database.CompressionLevel()
	if err != nil {
		return nil, err
	}
	return []engine.Option{
		engine.WithLogger(c.logger),
		engine.WithCompressionLevel(level),
		engine.WithMaxPixels(c.cfg.Database.MaxPixels),
	}, nil
}

func (c *command) load() (*engine.Database, error) {
	data, err := storage.LoadFile(c.file)
	if err != nil {
		return nil, err
	}
	opts, err := c.options()
	if err != nil {
		return nil, err
	}
	return engine.FromPNG(data, opts...)
}

func (c *command) save(db *engine.Database) error {
	out, err := db.ToPNG()
	if err != nil {
		return err
	}
	if err := storage.SaveFile(c.file, out); err != nil {
		return err
	}
	c.logger.Debug("database written", "file", c.file, "bytes", len(out))
	return nil
}

func runCreate(args []string, stdout, stderr io.Writer) error {
	c := newCommand("create", stderr)
	width := c.fs.Uint("w", 0, "image width in pixels (default from config, 256)")
	c.fs.UintVar(width, "width", 0, "image width in pixels")
	height := c.fs.Uint("H", 0, "image height in pixels (default from config, 256)")
	c.fs.UintVar(height, "height", 0, "image height in pixels")
	schemaArg := c.fs.String("s", "", "schema, JSON object or name:type,...")
	c.fs.StringVar(schemaArg, "schema", "", "schema, JSON object or name:type,...")
	force := c.fs.Bool("force", false, "overwrite an existing file")
	if err := c.parse(args, stderr); err != nil {
		return err
	}
	if *schemaArg == "" {
		return errors.New("create: -s SCHEMA is required")
	}
	if !*force {
		if _, err := os.Stat(c.file); err == nil {
			return fmt.Errorf("create: %s already exists (use --force to overwrite)", c.file)
		}
	}

	w, h := uint32(*width), uint32(*height)
	if *width == 0 {
		w = c.cfg.Database.DefaultWidth
	}
	if *height == 0 {
		h = c.cfg.Database.DefaultHeight
	}
	if uint64(*width) > uint64(^uint32(0)) || uint64(*height) > uint64(^uint32(0)) {
		return fmt.Errorf("create: dimensions %dx%d are too large", *width, *height)
	}

	def, err := schema.ParseAny(*schemaArg)
	if err != nil {
		return err
	}
	opts, err := c.options()
	if err != nil {
		return err
	}
	db, err := engine.New(w, h, def, opts...)
	if err != nil {
		return err
	}
	if err := c.save(db); err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Fprint(stdout, "Created database: ")
	fmt.Fprintf(stdout, "%s (%dx%d, %d bytes free)\n", c.file, w, h, db.Capacity()-uint64(db.PayloadSize()))
	return nil
}

func runInsert(args []string, stdout, stderr io.Writer) error {
	c := newCommand("insert", stderr)
	x := c.fs.Uint("x", 0, "x coordinate")
	y := c.fs.Uint("y", 0, "y coordinate")
	data := c.fs.String("d", "", "row data as a JSON object")
	c.fs.StringVar(data, "data", "", "row data as a JSON object")
	if err := c.parse(args, stderr); err != nil {
		return err
	}
	if *data == "" {
		return errors.New("insert: -d JSON is required")
	}
	if uint64(*x) > uint64(^uint32(0)) || uint64(*y) > uint64(^uint32(0)) {
		return fmt.Errorf("insert: coordinates (%d, %d) are too large", *x, *y)
	}

	db, err := c.load()
	if err != nil {
		return err
	}
	if err := db.Insert(uint32(*x), uint32(*y), *data); err != nil {
		return err
	}
	if err := c.save(db); err != nil {
		return err
	}

	color.New(color.FgGreen).Fprint(stdout, "Inserted ")
	fmt.Fprintf(stdout, "data at (%d, %d), %d row(s)\n", *x, *y, db.RowCount())
	return nil
}

func runQuery(args []string, stdout, stderr io.Writer) error {
	c := newCommand("query", stderr)
	where := c.fs.String("w", "", "predicate, e.g. 'age > 28' or 'name = \"Bob\" AND age < 40'")
	c.fs.StringVar(where, "where", "", "predicate")
	asJSON := c.fs.Bool("json", false, "print a JSON array")
	if err := c.parse(args, stderr); err != nil {
		return err
	}

	db, err := c.load()
	if err != nil {
		return err
	}
	rows, err := db.Query(*where)
	if err != nil {
		return err
	}

	if *asJSON {
		out, err := db.QueryJSON(*where)
		if err != nil {
			return err
		}
		return writeJSON(stdout, out)
	}

	if len(rows) == 0 {
		color.New(color.FgYellow).Fprintln(stdout, "No results found")
		return nil
	}
	color.New(color.FgGreen).Fprintf(stdout, "Found %d result(s):\n", len(rows))
	return printRows(stdout, db, rows, true)
}

func runList(args []string, stdout, stderr io.Writer) error {
	c := newCommand("list", stderr)
	asJSON := c.fs.Bool("json", false, "print a JSON array")
	if err := c.parse(args, stderr); err != nil {
		return err
	}

	db, err := c.load()
	if err != nil {
		return err
	}

	if *asJSON {
		out, err := db.ListAllJSON()
		if err != nil {
			return err
		}
		return writeJSON(stdout, out)
	}

	w, h := db.Dimensions()
	cyan := color.New(color.FgCyan)
	cyan.Fprint(stdout, "Database: ")
	fmt.Fprintf(stdout, "%s (%dx%d)\n", c.file, w, h)
	cyan.Fprint(stdout, "Schema:   ")
	fmt.Fprintln(stdout, db.Schema().String())
	cyan.Fprint(stdout, "Rows:     ")
	fmt.Fprintln(stdout, db.RowCount())
	return printRows(stdout, db, db.ListAll(), false)
}

func runInfo(args []string, stdout, stderr io.Writer) error {
	c := newCommand("info", stderr)
	if err := c.parse(args, stderr); err != nil {
		return err
	}

	db, err := c.load()
	if err != nil {
		return err
	}

	w, h := db.Dimensions()
	used, capacity := uint64(db.PayloadSize()), db.Capacity()
	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)

	cyan.Fprint(stdout, "File:       ")
	fmt.Fprintln(stdout, c.file)
	cyan.Fprint(stdout, "Dimensions: ")
	fmt.Fprintf(stdout, "%dx%d\n", w, h)
	cyan.Fprint(stdout, "Rows:       ")
	fmt.Fprintln(stdout, db.RowCount())
	cyan.Fprint(stdout, "Payload:    ")
	fmt.Fprintf(stdout, "%d / %d bytes ", used, capacity)
	gray.Fprintf(stdout, "(%.1f%%)\n", 100*float64(used)/float64(capacity))
	cyan.Fprintln(stdout, "Columns:")
	for _, col := range db.Schema().Columns() {
		fmt.Fprintf(stdout, "  %-20s %s\n", col.Name, col.Type)
	}
	return nil
}

func printRows(w io.Writer, db *engine.Database, rows []storage.Row, indent bool) error {
	gray := color.New(color.FgHiBlack)
	for _, row := range rows {
		data, err := db.Schema().EncodeRecord(row.Data)
		if err != nil {
			return err
		}
		if indent {
			data = pretty.PrettyOptions(data, &pretty.Options{Width: 80, Prefix: "  ", Indent: "  "})
			data = []byte(strings.TrimRight(string(data), "\n"))
		}
		gray.Fprintf(w, "  Position (%d, %d): ", row.X, row.Y)
		fmt.Fprintln(w, string(colorize(data)))
	}
	return nil
}

func writeJSON(w io.Writer, data []byte) error {
	_, err := w.Write(colorize(pretty.Pretty(data)))
	return err
}

func colorize(data []byte) []byte {
	if color.NoColor {
		return data
	}
	return pretty.Color(data, nil)
}
