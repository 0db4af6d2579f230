// Package codec converts a database to a flat byte stream and back.
//
// Layout, all integers big-endian:
//
//	magic        4 bytes  "PNDB"
//	version      1 byte   1
//	width        uint32
//	height       uint32
//	columns      uint16   count, then per column:
//	  name len   uint16
//	  name       UTF-8
//	  type       1 byte   1=string 2=number 3=boolean
//	rows         uint32   count, then per row:
//	  x, y       uint32, uint32
//	  data len   uint32
//	  data       JSON object, keys in column order
//
// The stream carries its own lengths, so a decoder can be handed a whole
// pixel buffer and ignore the zero padding after the last row.
package codec
