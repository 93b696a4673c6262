// Package static serves the web front end: index.html at "/", index.css and
// index.mjs. Files are read from an fs.FS on every request, either a
// directory on disk (edits show up without a restart) or the copies embedded
// in the binary.
package static
