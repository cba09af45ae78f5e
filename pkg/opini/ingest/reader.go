package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/cognicore/opini/internal/logging"
	"github.com/cognicore/opini/pkg/opini/internalerr"
)

// Options names the input columns and controls parsing.
type Options struct {
	ContentColumn string             `yaml:"content_column"`
	DateColumn    string             `yaml:"date_column"`
	IDColumn      string             `yaml:"id_column"`
	UserColumn    string             `yaml:"user_column"`
	Comma         rune               `yaml:"-"`
	Location      *time.Location     `yaml:"-"`
	Logger        logrus.FieldLogger `yaml:"-"`
}

func (o Options) withDefaults() Options {
	if o.ContentColumn == "" {
		o.ContentColumn = "content"
	}
	if o.DateColumn == "" {
		o.DateColumn = "date"
	}
	if o.IDColumn == "" {
		o.IDColumn = "id"
	}
	if o.UserColumn == "" {
		o.UserColumn = "user"
	}
	if o.Comma == 0 {
		o.Comma = ','
	}
	o.Logger = logging.OrDiscard(o.Logger)
	return o
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LoadFile reads posts from path. ".jsonl" and ".ndjson" files are read as
// JSON lines, ".tsv" as tab-separated, anything else as CSV.
func LoadFile(path string, opts Options) ([]Post, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return ReadJSONL(f, opts)
	case ".tsv":
		opts.Comma = '\t'
	}
	return ReadCSV(f, opts)
}

// ReadCSV reads a header row and data rows. The content column is required;
// date, id and user are optional. A malformed file, a missing content column
// or a file without data rows is an input error.
func ReadCSV(r io.Reader, opts Options) ([]Post, error) {
	opts = opts.withDefaults()

	cr := csv.NewReader(skipBOM(r))
	cr.Comma = opts.Comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("ingest: no header row: %w", internalerr.ErrEmptyDataset)
	}
	if err != nil {
		return nil, fmt.Errorf("ingest: read header: %w: %w", internalerr.ErrInvalidInput, err)
	}
	cols := indexColumns(header)
	contentIdx, ok := cols[strings.ToLower(opts.ContentColumn)]
	if !ok {
		return nil, fmt.Errorf("ingest: column %q not found in %v: %w", opts.ContentColumn, header, internalerr.ErrMissingColumn)
	}
	dateIdx, hasDate := cols[strings.ToLower(opts.DateColumn)]
	idIdx, hasID := cols[strings.ToLower(opts.IDColumn)]
	userIdx, hasUser := cols[strings.ToLower(opts.UserColumn)]

	cell := func(rec []string, idx int, present bool) string {
		if !present || idx >= len(rec) {
			return ""
		}
		return rec[idx]
	}

	var posts []Post
	for row := 1; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: row %d: %w: %w", row, internalerr.ErrInvalidInput, err)
		}
		posts = append(posts, newPost(opts, row,
			cell(rec, contentIdx, true),
			cell(rec, dateIdx, hasDate),
			cell(rec, idIdx, hasID),
			cell(rec, userIdx, hasUser),
		))
	}
	if len(posts) == 0 {
		return nil, fmt.Errorf("ingest: no data rows: %w", internalerr.ErrEmptyDataset)
	}
	return posts, nil
}

// ReadJSONL reads one JSON object per line. Malformed lines are skipped with
// a warning. Non-string content is treated as empty.
func ReadJSONL(r io.Reader, opts Options) ([]Post, error) {
	opts = opts.withDefaults()

	sc := bufio.NewScanner(skipBOM(r))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var posts []Post
	sawContent := false
	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(text, &obj); err != nil {
			opts.Logger.WithError(err).WithField("row", line).Warn("skipping malformed JSON line")
			continue
		}
		obj = lowerKeys(obj)
		raw, ok := obj[strings.ToLower(opts.ContentColumn)]
		if ok {
			sawContent = true
		}
		content, _ := raw.(string)
		posts = append(posts, newPost(opts, line,
			content,
			scalar(obj[strings.ToLower(opts.DateColumn)]),
			scalar(obj[strings.ToLower(opts.IDColumn)]),
			scalar(obj[strings.ToLower(opts.UserColumn)]),
		))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("ingest: %w: %w", internalerr.ErrInvalidInput, err)
	}
	if len(posts) == 0 {
		return nil, fmt.Errorf("ingest: no valid lines: %w", internalerr.ErrEmptyDataset)
	}
	if !sawContent {
		return nil, fmt.Errorf("ingest: no line has field %q: %w", opts.ContentColumn, internalerr.ErrMissingColumn)
	}
	return posts, nil
}

func newPost(opts Options, row int, content, date, id, user string) Post {
	p := Post{
		ID:      strings.TrimSpace(id),
		User:    strings.TrimSpace(user),
		Content: content,
		Row:     row,
	}
	if p.ID == "" {
		p.ID = ulid.Make().String()
	}
	if strings.TrimSpace(date) != "" {
		if t, ok := ParseDate(date, opts.Location); ok {
			p.Date = t
		} else {
			opts.Logger.WithFields(logrus.Fields{"row": row, "date": date}).Warn("unparseable date treated as missing")
		}
	}
	return p
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := cols[key]; !dup {
			cols[key] = i
		}
	}
	return cols
}

func lowerKeys(obj map[string]any) map[string]any {
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}

func scalar(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}

func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		br.Discard(len(utf8BOM))
	}
	return br
}
