// Package journal records game events to disk.
//
// A Journal is a service.EventSink that appends one JSON line per event to
// <dir>/events-YYYY-MM-DD-HH.jsonl.zst, rotating hourly (UTC). Files are
// zstd streams; reopening an hour appends a new frame to the same file.
// ListFiles, ReadFile and ReadSession read them back.
package journal
