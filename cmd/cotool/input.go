package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andreyvit/cobj"
	"github.com/andreyvit/cobj/coa2l"
	"github.com/andreyvit/cobj/cocsv"
	"github.com/andreyvit/cobj/cohex"
	"github.com/andreyvit/cobj/cojson"
	"github.com/andreyvit/cobj/coxml"
	"github.com/andreyvit/cobj/coyaml"
	"github.com/andreyvit/cobj/internal/mapfile"
)

var inputFormats = []string{"json", "csv", "a2l", "xml", "yaml", "s19", "hex", "msgpack"}

var extFormats = map[string]string{
	".json":    "json",
	".csv":     "csv",
	".a2l":     "a2l",
	".xml":     "xml",
	".yaml":    "yaml",
	".yml":     "yaml",
	".s19":     "s19",
	".srec":    "s19",
	".mot":     "s19",
	".hex":     "hex",
	".ihex":    "hex",
	".msgpack": "msgpack",
	".mp":      "msgpack",
}

// detectFormat returns format if set, otherwise guesses from the file
// extension, defaulting to JSON.
func detectFormat(name, format string) (string, error) {
	if format == "" {
		format = extFormats[strings.ToLower(filepath.Ext(name))]
		if format == "" {
			format = "json"
		}
	}
	for _, f := range inputFormats {
		if f == format {
			return format, nil
		}
	}
	return "", fmt.Errorf("unknown input format %q (supported: %s)", format, strings.Join(inputFormats, ", "))
}

// openFile returns the content of name, or of standard input for "-".
func (a *app) openFile(name string) (*mapfile.File, error) {
	if name == "-" {
		return mapfile.Read("stdin", os.Stdin)
	}
	var opt mapfile.Options = mapfile.SequentialAccess
	if a.noMmap {
		opt |= mapfile.NoMmap
	}
	return mapfile.Open(name, opt)
}

// load parses a file into a graph charged to q.
func (a *app) load(ctx context.Context, name, format string, q *cobj.Quota) (*cobj.Object, error) {
	format, err := detectFormat(name, format)
	if err != nil {
		return nil, err
	}
	f, err := a.openFile(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	start := time.Now()
	o, err := parse(f.Data(), format, q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	a.logger.LogAttrs(ctx, slog.LevelDebug, "cotool: loaded",
		slog.String("file", name),
		slog.String("format", format),
		slog.Int("size", len(f.Data())),
		slog.Bool("mapped", f.Mapped()),
		slog.Int64("used", q.Used()),
		slog.Duration("elapsed", time.Since(start)))
	return o, nil
}

// parse never keeps references into data.
func parse(data []byte, format string, q *cobj.Quota) (*cobj.Object, error) {
	switch format {
	case "json":
		return cojson.Parse(data, cojson.Options{Quota: q})
	case "csv":
		return cocsv.Parse(data, cocsv.Options{Quota: q})
	case "a2l":
		return coa2l.Parse(data, coa2l.Options{Quota: q})
	case "xml":
		return coxml.Parse(data, coxml.Options{Quota: q, SkipWhitespace: true})
	case "yaml":
		return coyaml.Parse(data, coyaml.Options{Quota: q})
	case "s19":
		return cohex.ParseS19(data, cohex.Options{Quota: q})
	case "hex":
		return cohex.ParseHex(data, cohex.Options{Quota: q})
	case "msgpack":
		return q.UnmarshalMsgpack(data)
	}
	panic("unreachable")
}
