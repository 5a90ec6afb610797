package mesh

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const twoSubMeshes = `{
  "mesh": [
    {
      "vertices": [
        {"pos":[0,0,0],"uvcoord":[0,0]},
        {"pos":[1,0,0],"uvcoord":[1,0]},
        {"pos":[1,1,0],"uvcoord":[1,1]},
        {"pos":[0,1,0],"uvcoord":[0.2,0.3]}
      ],
      "indices":[0,1,2, 0,2,3]
    },
    {
      "vertices": [
        {"pos":[0,0,1],"uvcoord":[0.5,0.25]},
        {"pos":[1,0,1],"uvcoord":[1,0.5]},
        {"pos":[1,1,1.5],"uvcoord":[0,1]}
      ],
      "indices":[0,1,2, 2]
    }
  ]
}`

func TestConvertJSON_TwoSubMeshes(t *testing.T) {
	out, st, err := ConvertJSON("model.json", []byte(twoSubMeshes))
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	want := strings.Join([]string{
		"v 0 0 0",
		"v 1 0 0",
		"v 1 1 0",
		"v 0 1 0",
		"v 0 0 1",
		"v 1 0 1",
		"v 1 1 1.5",
		"vt 0 1",
		"vt 1 1",
		"vt 1 0",
		"vt 0.2 0.7",
		"vt 0.5 0.75",
		"vt 1 0.5",
		"vt 0 0",
		"f 1/1 2/2 3/3",
		"f 1/1 3/3 4/4",
		"f 5/5 6/6 7/7",
	}, "\n")
	if d := cmp.Diff(want, string(out)); d != "" {
		t.Fatalf("obj mismatch (-want +got):\n%s", d)
	}
	if d := cmp.Diff(Stats{SubMeshes: 2, Vertices: 7, Faces: 3}, st); d != "" {
		t.Fatalf("stats mismatch (-want +got):\n%s", d)
	}
}

func TestFlatten_OffsetCarriesAcrossSubMeshes(t *testing.T) {
	doc, err := Parse([]byte(twoSubMeshes))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, _, faces := Flatten(doc)
	// Second sub-mesh, local index 0, after 4 vertices: 0 + 4 + 1.
	if faces[2][0] != 5 {
		t.Fatalf("face index=%d want 5", faces[2][0])
	}
}

func TestConvert_EmptyMesh(t *testing.T) {
	out, _, err := ConvertJSON("empty.json", []byte(`{"mesh":[]}`))
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if string(out) != "\n\n" {
		t.Fatalf("out=%q want two separators", string(out))
	}
}

func TestParse_Malformed(t *testing.T) {
	cases := []struct {
		name   string
		raw    string
		reason string
	}{
		{"not json", `{"mesh": [`, "invalid json"},
		{"missing mesh", `{"meshes": []}`, "schema"},
		{"mesh not array", `{"mesh": {}}`, "schema"},
		{"vertices not array", `{"mesh":[{"vertices":{},"indices":[]}]}`, "schema"},
		{"indices not array", `{"mesh":[{"vertices":[],"indices":"0,1,2"}]}`, "schema"},
		{"short pos", `{"mesh":[{"vertices":[{"pos":[0,0],"uvcoord":[0,0]}],"indices":[]}]}`, "schema"},
		{"fractional index", `{"mesh":[{"vertices":[],"indices":[0.5]}]}`, "schema"},
		{"huge index", `{"mesh":[{"vertices":[],"indices":[1e300]}]}`, "schema"},
		{"index past int32", `{"mesh":[{"vertices":[],"indices":[2147483648]}]}`, "schema"},
		{"negative index", `{"mesh":[{"vertices":[],"indices":[-1]}]}`, "schema"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ConvertJSON("bad.json", []byte(tc.raw))
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("want *ParseError, got %T %v", err, err)
			}
			if pe.Reason != tc.reason {
				t.Fatalf("reason=%q want %q (%v)", pe.Reason, tc.reason, err)
			}
			if pe.Name != "bad.json" {
				t.Fatalf("name=%q", pe.Name)
			}
			if !IsParseError(err) {
				t.Fatalf("IsParseError=false")
			}
		})
	}
}

func TestParse_IndexAtUpperBound(t *testing.T) {
	doc, err := Parse([]byte(`{"mesh":[{"vertices":[],"indices":[0,1,2147483647]}]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d := cmp.Diff([]int{0, 1, 2147483647}, doc.Mesh[0].Indices); d != "" {
		t.Fatalf("indices mismatch (-want +got):\n%s", d)
	}
}

func TestParse_SchemaReasonNamesPath(t *testing.T) {
	_, err := Parse([]byte(`{"mesh":[{"vertices":[],"indices":"x"}]}`))
	if err == nil || !strings.Contains(err.Error(), "/mesh/0/indices") {
		t.Fatalf("error should name the failing path, got %v", err)
	}
}
