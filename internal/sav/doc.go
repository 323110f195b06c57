// Package sav reads and writes SPSS system files (.sav) as dataset.Dataset
// values.
//
// The reader understands the dictionary records SPSS, PSPP, and survey
// platforms emit in practice: variable and continuation records, value
// labels, documents, and the extension records for integer/float info,
// display parameters, long variable names, very long strings, character
// encoding, and long string value labels. Data may be uncompressed or
// bytecode compressed; ZLIB-compressed files are rejected. Text in legacy
// code pages is decoded to UTF-8.
//
// The writer always produces little-endian UTF-8 files, optionally bytecode
// compressed, generating unique 8-byte short names and splitting strings
// wider than 255 bytes into 252-byte segments the way SPSS does.
package sav
