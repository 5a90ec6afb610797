// Package mesh converts JSON mesh documents into Wavefront OBJ text.
package mesh

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed mesh.schema.json
var schemaJSON string

const schemaURL = "https://craftkit.ai/schemas/mesh.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString(schemaURL, schemaJSON)
	})
	return schema, schemaErr
}

type Vertex struct {
	Pos [3]float64
	UV  [2]float64
}

type SubMesh struct {
	Vertices []Vertex
	Indices  []int
}

type Document struct {
	Mesh []SubMesh
}

// Wire shapes. Extra trailing components are ignored; the schema guarantees the minimum.
type rawVertex struct {
	Pos     []float64 `json:"pos"`
	UVCoord []float64 `json:"uvcoord"`
}

// Indices arrive as JSON numbers; the schema bounds them to the int32 range
// before the conversion to int.
type rawSubMesh struct {
	Vertices []rawVertex `json:"vertices"`
	Indices  []float64   `json:"indices"`
}

type rawDocument struct {
	Mesh []rawSubMesh `json:"mesh"`
}

// ParseError reports a document that cannot be converted.
type ParseError struct {
	Name   string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	if e.Name != "" {
		b.WriteString(e.Name)
		b.WriteString(": ")
	}
	b.WriteString(e.Reason)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsParseError reports whether err is (or wraps) a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// Parse decodes and validates a mesh document.
func Parse(raw []byte) (Document, error) {
	return parseNamed("", raw)
}

func parseNamed(name string, raw []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return Document{}, &ParseError{Name: name, Reason: "invalid json", Err: err}
	}

	s, err := compiledSchema()
	if err != nil {
		return Document{}, fmt.Errorf("mesh schema: %w", err)
	}
	if err := s.Validate(generic); err != nil {
		return Document{}, &ParseError{Name: name, Reason: "schema", Err: schemaReason(err)}
	}

	var rd rawDocument
	if err := json.Unmarshal(raw, &rd); err != nil {
		return Document{}, &ParseError{Name: name, Reason: "decode", Err: err}
	}

	doc := Document{Mesh: make([]SubMesh, 0, len(rd.Mesh))}
	for _, rm := range rd.Mesh {
		sm := SubMesh{
			Vertices: make([]Vertex, 0, len(rm.Vertices)),
			Indices:  make([]int, 0, len(rm.Indices)),
		}
		for _, rv := range rm.Vertices {
			sm.Vertices = append(sm.Vertices, Vertex{
				Pos: [3]float64{rv.Pos[0], rv.Pos[1], rv.Pos[2]},
				UV:  [2]float64{rv.UVCoord[0], rv.UVCoord[1]},
			})
		}
		for _, idx := range rm.Indices {
			sm.Indices = append(sm.Indices, int(idx))
		}
		doc.Mesh = append(doc.Mesh, sm)
	}
	return doc, nil
}

// schemaReason keeps the innermost validation message, which names the failing path.
func schemaReason(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := ve.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return fmt.Errorf("%s: %s", loc, ve.Message)
}
