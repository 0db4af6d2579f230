package engine

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"

	"pngdb/db/codec"
	"pngdb/db/container"
	"pngdb/db/parser"
	"pngdb/db/pixel"
	"pngdb/db/schema"
	"pngdb/db/storage"
	"pngdb/db/types"
)

// Database is a single table whose whole state fits in the pixels of one
// PNG image. It is a plain value owned by its caller and is not safe for
// concurrent use.
type Database struct {
	table   *storage.Table
	size    int // bytes the codec would write for the current state
	logger  *slog.Logger
	encoder container.Encoder
	decoder container.Decoder
}

// Option configures a Database.
type Option func(*Database)

// WithLogger sets the logger used for debug output. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(db *Database) {
		if logger != nil {
			db.logger = logger
		}
	}
}

// WithCompressionLevel sets the zlib level used by ToPNG.
func WithCompressionLevel(level png.CompressionLevel) Option {
	return func(db *Database) { db.encoder.CompressionLevel = level }
}

// WithMaxPixels makes New and FromPNG refuse images larger than n pixels.
func WithMaxPixels(n uint64) Option {
	return func(db *Database) { db.decoder.MaxPixels = n }
}

func newDatabase(opts []Option) *Database {
	db := &Database{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Create makes an empty database for a width x height image from a JSON
// schema such as {"name":"string","age":"number"}.
func Create(width, height uint32, schemaJSON string, opts ...Option) (*Database, error) {
	def, err := schema.Parse(schemaJSON)
	if err != nil {
		return nil, err
	}
	return New(width, height, def, opts...)
}

// New makes an empty database with an already parsed schema. It fails
// with a *pixel.CapacityError if the image cannot even hold the header,
// and with pixel.ErrTooLarge if it has more pixels than WithMaxPixels allows.
func New(width, height uint32, def *schema.Schema, opts ...Option) (*Database, error) {
	db := newDatabase(opts)
	if n := uint64(width) * uint64(height); db.decoder.MaxPixels > 0 && n > db.decoder.MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", pixel.ErrTooLarge, width, height, db.decoder.MaxPixels)
	}
	db.table = storage.NewTable(width, height, def)
	db.size = codec.HeaderSize(def)
	if err := db.checkCapacity(db.size); err != nil {
		return nil, err
	}
	db.logger.Debug("database created", "width", width, "height", height, "columns", def.Len())
	return db, nil
}

// FromPNG rebuilds a database from an image written by ToPNG.
func FromPNG(b []byte, opts ...Option) (*Database, error) {
	db := newDatabase(opts)
	img, err := db.decoder.Decode(b)
	if err != nil {
		return nil, err
	}
	return db.load(img)
}

// FromPixels rebuilds a database from a pixel buffer produced by Pixels.
func FromPixels(img *image.NRGBA, opts ...Option) (*Database, error) {
	return newDatabase(opts).load(img)
}

func (db *Database) load(img *image.NRGBA) (*Database, error) {
	p, err := codec.Decode(pixel.Unpack(img))
	if err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	if uint64(bounds.Dx()) != uint64(p.Width) || uint64(bounds.Dy()) != uint64(p.Height) {
		return nil, &codec.FormatError{Kind: codec.ErrMalformed,
			Detail: fmt.Sprintf("header says %dx%d, image is %dx%d", p.Width, p.Height, bounds.Dx(), bounds.Dy())}
	}

	table := storage.NewTable(p.Width, p.Height, p.Schema)
	size := codec.HeaderSize(p.Schema)
	for i, r := range p.Rows {
		rec, err := p.Schema.EncodeRecord(r.Data)
		if err != nil {
			return nil, &codec.FormatError{Kind: codec.ErrMalformed, Detail: fmt.Sprintf("row %d", i), Err: err}
		}
		if err := table.Insert(r.X, r.Y, r.Data); err != nil {
			return nil, &codec.FormatError{Kind: codec.ErrMalformed, Detail: fmt.Sprintf("row %d", i), Err: err}
		}
		size += codec.RowSize(len(rec))
	}

	db.table = table
	db.size = size
	db.logger.Debug("database loaded", "width", p.Width, "height", p.Height, "rows", table.Len(), "bytes", size)
	return db, nil
}

// Insert parses dataJSON, checks it against the bounds, the schema and
// the remaining capacity, and appends it as a new row. On error nothing
// changes.
func (db *Database) Insert(x, y uint32, dataJSON string) error {
	if err := db.table.CheckBounds(x, y); err != nil {
		return err
	}
	data, err := db.table.Def.DecodeRecord(dataJSON)
	if err != nil {
		return err
	}
	return db.InsertRecord(x, y, data)
}

// InsertRecord is Insert for already typed data.
func (db *Database) InsertRecord(x, y uint32, data map[string]types.Value) error {
	if err := db.table.CheckBounds(x, y); err != nil {
		return err
	}
	rec, err := db.table.Def.EncodeRecord(data)
	if err != nil {
		return err
	}
	size := db.size + codec.RowSize(len(rec))
	if err := db.checkCapacity(size); err != nil {
		return err
	}
	if err := db.table.Insert(x, y, data); err != nil {
		return err
	}
	db.size = size
	db.logger.Debug("row inserted", "x", x, "y", y, "rows", db.table.Len(), "bytes", size)
	return nil
}

// Query returns the rows matching where, in insertion order. An empty
// result is not an error.
func (db *Database) Query(where string) ([]storage.Row, error) {
	expr, err := parser.Parse(where)
	if err != nil {
		return nil, err
	}
	plan, err := CreatePlan(db.table, expr)
	if err != nil {
		return nil, err
	}
	rows := plan.Execute()
	db.logger.Debug("query", "where", expr.String(), "matched", len(rows), "scanned", db.table.Len())
	return rows, nil
}

// QueryJSON is Query encoded as a JSON array of {"x","y","data"} objects.
func (db *Database) QueryJSON(where string) ([]byte, error) {
	rows, err := db.Query(where)
	if err != nil {
		return nil, err
	}
	return storage.MarshalRows(db.table.Def, rows)
}

// ListAll returns every row in insertion order.
func (db *Database) ListAll() []storage.Row {
	return db.table.Rows()
}

// ListAllJSON is ListAll encoded as a JSON array of {"x","y","data"} objects.
func (db *Database) ListAllJSON() ([]byte, error) {
	return storage.MarshalRows(db.table.Def, db.table.Rows())
}

// Encode returns the codec byte stream for the current state.
func (db *Database) Encode() ([]byte, error) {
	return codec.Encode(codec.Payload{
		Width:  db.table.Width,
		Height: db.table.Height,
		Schema: db.table.Def,
		Rows:   db.table.Rows(),
	})
}

// Pixels packs the current state into a pixel buffer.
func (db *Database) Pixels() (*image.NRGBA, error) {
	b, err := db.Encode()
	if err != nil {
		return nil, err
	}
	return pixel.Pack(b, db.table.Width, db.table.Height)
}

// ToPNG exports the whole database as PNG bytes.
func (db *Database) ToPNG() ([]byte, error) {
	img, err := db.Pixels()
	if err != nil {
		return nil, err
	}
	out, err := db.encoder.Encode(img)
	if err != nil {
		return nil, err
	}
	db.logger.Debug("database exported", "rows", db.table.Len(), "payload", db.size, "png", len(out))
	return out, nil
}

// Schema returns the database schema.
func (db *Database) Schema() *schema.Schema {
	return db.table.Def
}

// SchemaJSON returns the schema as a JSON object in declaration order.
func (db *Database) SchemaJSON() ([]byte, error) {
	return db.table.Def.MarshalJSON()
}

// Dimensions returns the image width and height.
func (db *Database) Dimensions() (uint32, uint32) {
	return db.table.Width, db.table.Height
}

// RowCount returns the number of rows.
func (db *Database) RowCount() int {
	return db.table.Len()
}

// Capacity returns how many payload bytes the image can hold.
func (db *Database) Capacity() uint64 {
	return pixel.Capacity(db.table.Width, db.table.Height)
}

// PayloadSize returns how many payload bytes the current state uses.
func (db *Database) PayloadSize() int {
	return db.size
}

func (db *Database) checkCapacity(size int) error {
	if have := db.Capacity(); uint64(size) > have {
		return &pixel.CapacityError{Need: uint64(size), Have: have}
	}
	return nil
}
