package schema

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

// DefaultTracingDir is where tracefs is mounted on current kernels.
const DefaultTracingDir = "/sys/kernel/tracing"

var ErrMalformedField = errors.New("malformed format field")

// TraceFS reads tracepoint formats from <dir>/events/<category>/<name>/format.
type TraceFS struct {
	logger *zap.SugaredLogger
	dir    string
}

func NewTraceFS(logger *zap.SugaredLogger, dir string) *TraceFS {
	if dir == "" {
		dir = DefaultTracingDir
	}

	return &TraceFS{logger: logger, dir: dir}
}

func (t *TraceFS) Describe(category, name string) ([]Field, error) {
	path := filepath.Join(t.dir, "events", category, name, "format")

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to open tracepoint format: %w", err)
	}
	defer f.Close()

	fields, err := ParseFormat(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	t.logger.Debugw("read tracepoint format", "event", category+":"+name, "fields", len(fields))

	return fields, nil
}

// ParseFormat reads the field lines of a tracefs format file, common fields included.
func ParseFormat(r io.Reader) ([]Field, error) {
	var (
		fields   []Field
		inFormat bool
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		raw := scanner.Text()

		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		switch {
		case inFormat:
			if !unicode.IsSpace(rune(raw[0])) {
				inFormat = false
				continue
			}

			field, err := parseField(line)
			if err != nil {
				return nil, err
			}

			fields = append(fields, field)
		case strings.HasPrefix(line, "format:"):
			inFormat = true
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return fields, nil
}

// parseField parses "field:const char * filename;\toffset:24;\tsize:8;\tsigned:0;".
func parseField(line string) (Field, error) {
	var (
		field Field
		decl  string
	)

	for _, part := range strings.Split(line, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		key, val, ok := strings.Cut(part, ":")
		if !ok {
			return field, ErrMalformedField
		}

		var err error

		switch strings.TrimSpace(key) {
		case "field":
			decl = strings.TrimSpace(val)
		case "offset":
			field.Offset, err = strconv.Atoi(strings.TrimSpace(val))
		case "size":
			field.Size, err = strconv.Atoi(strings.TrimSpace(val))
		case "signed":
			var signed int
			if signed, err = strconv.Atoi(strings.TrimSpace(val)); signed != 0 {
				field.Flags |= FieldSigned
			}
		}

		if err != nil {
			return field, fmt.Errorf("%w: %q: %w", ErrMalformedField, part, err)
		}
	}

	if err := field.parseDecl(decl); err != nil {
		return field, err
	}

	return field, nil
}

func (f *Field) parseDecl(decl string) error {
	if rest, ok := strings.CutPrefix(decl, "__data_loc"); ok {
		f.Flags |= FieldDynamic | FieldArray
		decl = strings.TrimSpace(rest)
	}

	if i := strings.IndexByte(decl, '['); i != -1 {
		j := strings.IndexByte(decl[i:], ']')
		if j == -1 {
			return fmt.Errorf("%w: closing ] missing in %q", ErrMalformedField, decl)
		}

		f.Flags |= FieldArray

		if n, err := strconv.Atoi(decl[i+1 : i+j]); err == nil {
			f.ArrayLen = n
		}

		decl = strings.TrimSpace(decl[:i] + decl[i+j+1:])
	}

	x := strings.LastIndexFunc(decl, func(r rune) bool { return unicode.IsSpace(r) || r == '*' })
	if x == -1 || x == len(decl)-1 {
		return fmt.Errorf("%w: no field name in %q", ErrMalformedField, decl)
	}

	f.Name = decl[x+1:]
	f.Type = strings.TrimSpace(decl[:x+1])

	if strings.HasSuffix(f.Type, "*") {
		f.Flags |= FieldPointer
	}

	if f.Is(FieldArray) && !f.Is(FieldDynamic) && f.ArrayLen == 0 && f.Size > 0 {
		f.ArrayLen = f.Size
	}

	return nil
}
