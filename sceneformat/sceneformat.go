// Package sceneformat implements the scene text format (spec §6.1): a
// line-oriented, declarative grammar of "[TYPE] Name" headers followed by
// indented "key: value" lines. Grounded on
// engine/renderer/shader/pre_processor.go's line-oriented directive scanner
// (there: "@oxy:" comment annotations; here: the scene grammar's recognized
// keys), generalized from a single-pass string-replace preprocessor to a
// two-pass scan-then-build parser that produces a Document the caller feeds
// into the asset registry and scene (packages asset/object/scene).
package sceneformat

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ObjectDecl is one parsed "[TYPE] Name" block.
type ObjectDecl struct {
	Type    string // four-character-derived type name, e.g. "CAMERA"
	Name    string
	Line    int
	Visible *bool

	Pos       *[3]float32
	XformPos  *[3]float32
	XformScl  *[3]float32
	XformRotD *[3]float32 // Euler degrees

	Inputs []InputDecl
	Params []ParamDecl

	TimeStart, TimeEnd *float32

	// Commands are unrecognized keys dispatched via obj.RunCommand(key,
	// args) per spec §6.1's "Unknown keys are dispatched via
	// obj.RunCommand".
	Commands []CommandDecl

	Disabled bool // "#[TYPE]" header form
}

// InputDecl is one "input: <inputName> = <assetName>" line.
type InputDecl struct {
	InputName string
	AssetName string
}

// ParamDecl is one "param: <name>, <value>[; <value> ...]" line.
type ParamDecl struct {
	Name  string
	Value string // raw; package param.SetParam infers the type
}

// CommandDecl is one unrecognized top-level key inside a known object.
type CommandDecl struct {
	Key  string
	Args string
}

// Document is the full parsed scene file.
type Document struct {
	Objects []ObjectDecl
}

// registeredTypes enumerates the type names spec §6.1 recognizes.
var registeredTypes = map[string]bool{
	"GLOBALS": true, "MODULE": true, "SCATTER": true, "INSTANCE": true,
	"LIGHTS": true, "CAMERA": true, "MESH": true, "LOFT": true,
	"HEIGHTFIELD": true, "DISPLACE": true, "POINTSYS": true, "CHARACTER": true,
	"MOTION": true, "PARTS": true, "MUSCLES": true, "VOLUME": true,
	"MATERIAL": true, "SHAPES": true, "IMAGE": true, "SHADER": true,
	"POINTS": true, "PARAMS": true,
}

// ParseError reports a fatal grammar error with a line number, per spec §7
// ("Scene-file parse error: unrecognized top-level commands inside a known
// object abort with a line number").
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string { return fmt.Sprintf("sceneformat: line %d: %s", e.Line, e.Msg) }

// Parse reads a scene text document (spec §6.1).
func Parse(r io.Reader) (*Document, error) {
	scanner := bufio.NewScanner(r)
	doc := &Document{}
	var cur *ObjectDecl
	var skipUnknown bool
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "#") && !strings.HasPrefix(trimmed, "#[") {
			continue // plain comment line
		}

		if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "#[") {
			disabled := strings.HasPrefix(trimmed, "#[")
			header := trimmed
			if disabled {
				header = header[1:]
			}
			closeIdx := strings.IndexByte(header, ']')
			if !strings.HasPrefix(header, "[") || closeIdx < 0 {
				return nil, &ParseError{Line: lineNo, Msg: fmt.Sprintf("malformed object header %q", raw)}
			}
			typeName := header[1:closeIdx]
			name := strings.TrimSpace(header[closeIdx+1:])

			if !registeredTypes[typeName] {
				skipUnknown = true
				cur = nil
				continue
			}
			skipUnknown = false
			doc.Objects = append(doc.Objects, ObjectDecl{Type: typeName, Name: name, Line: lineNo, Disabled: disabled})
			cur = &doc.Objects[len(doc.Objects)-1]
			continue
		}

		if skipUnknown {
			continue // keys of an unknown-type object are ignored until next header
		}
		if cur == nil {
			return nil, &ParseError{Line: lineNo, Msg: fmt.Sprintf("key %q outside any object", raw)}
		}

		colon := strings.IndexByte(trimmed, ':')
		if colon < 0 {
			return nil, &ParseError{Line: lineNo, Msg: fmt.Sprintf("expected 'key: value', got %q", raw)}
		}
		key := strings.TrimSpace(trimmed[:colon])
		value := strings.TrimSpace(trimmed[colon+1:])
		if err := applyKey(cur, key, value, lineNo); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("sceneformat: %w", err)
	}
	return doc, nil
}

func applyKey(obj *ObjectDecl, key, value string, line int) error {
	switch key {
	case "visible":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return &ParseError{Line: line, Msg: fmt.Sprintf("visible: expected true|false, got %q", value)}
		}
		obj.Visible = &b
	case "pos":
		v, err := parseVec3(value)
		if err != nil {
			return &ParseError{Line: line, Msg: err.Error()}
		}
		obj.Pos = &v
	case "xform":
		parts := strings.Split(value, ";")
		if len(parts) != 3 {
			return &ParseError{Line: line, Msg: fmt.Sprintf("xform: expected 3 ';'-separated vectors, got %q", value)}
		}
		pos, err := parseVec3(strings.TrimSpace(parts[0]))
		if err != nil {
			return &ParseError{Line: line, Msg: err.Error()}
		}
		scl, err := parseVec3(strings.TrimSpace(parts[1]))
		if err != nil {
			return &ParseError{Line: line, Msg: err.Error()}
		}
		rot, err := parseVec3(strings.TrimSpace(parts[2]))
		if err != nil {
			return &ParseError{Line: line, Msg: err.Error()}
		}
		obj.XformPos, obj.XformScl, obj.XformRotD = &pos, &scl, &rot
	case "input":
		name, asset, err := parseAssign(value)
		if err != nil {
			return &ParseError{Line: line, Msg: err.Error()}
		}
		obj.Inputs = append(obj.Inputs, InputDecl{InputName: name, AssetName: asset})
	case "param":
		comma := strings.IndexByte(value, ',')
		if comma < 0 {
			return &ParseError{Line: line, Msg: fmt.Sprintf("param: expected 'name, value', got %q", value)}
		}
		name := strings.TrimSpace(value[:comma])
		val := strings.TrimSpace(value[comma+1:])
		obj.Params = append(obj.Params, ParamDecl{Name: name, Value: val})
	case "time":
		v, err := parseVec3(value)
		if err != nil {
			return &ParseError{Line: line, Msg: err.Error()}
		}
		start, end := v[0], v[1]
		obj.TimeStart, obj.TimeEnd = &start, &end
	default:
		obj.Commands = append(obj.Commands, CommandDecl{Key: key, Args: value})
	}
	return nil
}

func parseAssign(value string) (left, right string, err error) {
	eq := strings.IndexByte(value, '=')
	if eq < 0 {
		return "", "", fmt.Errorf("expected '<name> = <value>', got %q", value)
	}
	return strings.TrimSpace(value[:eq]), strings.TrimSpace(value[eq+1:]), nil
}

func parseVec3(tok string) ([3]float32, error) {
	tok = strings.TrimSpace(tok)
	if !strings.HasPrefix(tok, "<") || !strings.HasSuffix(tok, ">") {
		return [3]float32{}, fmt.Errorf("expected <x,y,z>, got %q", tok)
	}
	inner := tok[1 : len(tok)-1]
	sep := ","
	if strings.Contains(inner, ";") {
		sep = ";"
	}
	fields := strings.Split(inner, sep)
	var out [3]float32
	for i, f := range fields {
		if i >= 3 {
			break
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
		if err != nil {
			return [3]float32{}, fmt.Errorf("bad vector component %q in %q", f, tok)
		}
		out[i] = float32(n)
	}
	return out, nil
}

// Write serializes a Document back to the scene text grammar (spec §6.4
// "SaveScene writes a text file using the grammar in §6.1").
func Write(w io.Writer, doc *Document) error {
	bw := bufio.NewWriter(w)
	for _, obj := range doc.Objects {
		header := fmt.Sprintf("[%s] %s", obj.Type, obj.Name)
		if obj.Disabled {
			header = "#" + header
		}
		if _, err := fmt.Fprintln(bw, header); err != nil {
			return err
		}
		if obj.Visible != nil {
			fmt.Fprintf(bw, "  visible: %t\n", *obj.Visible)
		}
		if obj.Pos != nil {
			fmt.Fprintf(bw, "  pos: <%g,%g,%g>\n", obj.Pos[0], obj.Pos[1], obj.Pos[2])
		}
		if obj.XformPos != nil {
			fmt.Fprintf(bw, "  xform: <%g,%g,%g>; <%g,%g,%g>; <%g,%g,%g>\n",
				obj.XformPos[0], obj.XformPos[1], obj.XformPos[2],
				obj.XformScl[0], obj.XformScl[1], obj.XformScl[2],
				obj.XformRotD[0], obj.XformRotD[1], obj.XformRotD[2])
		}
		for _, in := range obj.Inputs {
			fmt.Fprintf(bw, "  input: %s = %s\n", in.InputName, in.AssetName)
		}
		for _, p := range obj.Params {
			fmt.Fprintf(bw, "  param: %s, %s\n", p.Name, p.Value)
		}
		if obj.TimeStart != nil {
			fmt.Fprintf(bw, "  time: <%g,%g,0>\n", *obj.TimeStart, *obj.TimeEnd)
		}
		for _, c := range obj.Commands {
			fmt.Fprintf(bw, "  %s: %s\n", c.Key, c.Args)
		}
	}
	return bw.Flush()
}
