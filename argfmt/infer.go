package argfmt

import "strings"

// Field is what inference needs to know about a tracepoint field.
type Field struct {
	Name     string
	Type     string
	Pointer  bool
	Array    bool
	ArrayLen int
}

var fmtsByName = map[string]Fmt{
	"msr":    {Kind: KindX86MSR},
	"vector": {Kind: KindX86IRQVector},
}

// Infer completes f from the field's name and C type when the table gave it no kind.
// The checks run in a fixed order and the first match wins.
func Infer(f Fmt, field Field) Fmt {
	if f.Kind != KindDefault {
		return f
	}

	name, typ := field.Name, field.Type

	if field.Pointer && strings.HasPrefix(typ, "const ") {
		f.FromUser = true
	}

	switch {
	case typ == "const char *" && (strings.HasSuffix(name, "name") || strings.Contains(name, "path")):
		f.Kind = KindFilename
	case field.Pointer || strings.Contains(name, "addr"):
		f.Kind = KindPtr
	case typ == "pid_t":
		f.Kind = KindPID
	case typ == "umode_t":
		f.Kind = KindMode
	case field.Array && strings.Contains(typ, "char"):
		f.Kind = KindCharArray
		f.NrEntries = field.ArrayLen
	case (typ == "int" || typ == "unsigned int" || typ == "long") && strings.HasSuffix(name, "fd"):
		f.Kind = KindFD
	case strings.Contains(typ, "enum"):
		f.Kind = KindBTFEnum
		f.Parm = strings.TrimSpace(strings.TrimPrefix(typ, "enum "))
	default:
		if byName, ok := fmtsByName[name]; ok {
			f.Kind = byName.Kind
		}
	}

	return f
}
