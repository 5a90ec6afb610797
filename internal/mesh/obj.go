package mesh

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
)

type Face [3]int

type Stats struct {
	SubMeshes int `json:"sub_meshes"`
	Vertices  int `json:"vertices"`
	Faces     int `json:"faces"`
}

// Flatten merges every sub-mesh into one vertex list and 1-based faces.
// Indices are offset by the number of vertices in the preceding sub-meshes;
// a trailing group of fewer than three indices is dropped.
func Flatten(doc Document) (pos [][3]float64, uv [][2]float64, faces []Face) {
	offset := 0
	for _, sm := range doc.Mesh {
		for _, v := range sm.Vertices {
			pos = append(pos, v.Pos)
			uv = append(uv, [2]float64{v.UV[0], 1 - v.UV[1]})
		}
		for i := 0; i+2 < len(sm.Indices); i += 3 {
			faces = append(faces, Face{
				sm.Indices[i] + offset + 1,
				sm.Indices[i+1] + offset + 1,
				sm.Indices[i+2] + offset + 1,
			})
		}
		offset += len(sm.Vertices)
	}
	return pos, uv, faces
}

func Summarize(doc Document) Stats {
	st := Stats{SubMeshes: len(doc.Mesh)}
	for _, sm := range doc.Mesh {
		st.Vertices += len(sm.Vertices)
		st.Faces += len(sm.Indices) / 3
	}
	return st
}

// WriteOBJ writes positions, then texture coordinates, then faces. Sections are
// separated by a single newline, so an empty section leaves an empty line.
func WriteOBJ(w io.Writer, doc Document) error {
	pos, uv, faces := Flatten(doc)
	bw := bufio.NewWriter(w)

	for i, p := range pos {
		if i > 0 {
			bw.WriteByte('\n')
		}
		bw.WriteString("v ")
		bw.WriteString(num(p[0]))
		bw.WriteByte(' ')
		bw.WriteString(num(p[1]))
		bw.WriteByte(' ')
		bw.WriteString(num(p[2]))
	}
	bw.WriteByte('\n')
	for i, t := range uv {
		if i > 0 {
			bw.WriteByte('\n')
		}
		bw.WriteString("vt ")
		bw.WriteString(num(t[0]))
		bw.WriteByte(' ')
		bw.WriteString(num(t[1]))
	}
	bw.WriteByte('\n')
	for i, f := range faces {
		if i > 0 {
			bw.WriteByte('\n')
		}
		bw.WriteString("f")
		for _, idx := range f {
			s := strconv.Itoa(idx)
			bw.WriteByte(' ')
			bw.WriteString(s)
			bw.WriteByte('/')
			bw.WriteString(s)
		}
	}
	return bw.Flush()
}

func Convert(doc Document) []byte {
	var buf bytes.Buffer
	_ = WriteOBJ(&buf, doc)
	return buf.Bytes()
}

// ConvertJSON parses raw and returns its OBJ text. Failures are *ParseError tagged with name.
func ConvertJSON(name string, raw []byte) ([]byte, Stats, error) {
	doc, err := parseNamed(name, raw)
	if err != nil {
		return nil, Stats{}, err
	}
	return Convert(doc), Summarize(doc), nil
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
