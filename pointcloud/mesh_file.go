package pointcloud

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/posematch/spatialmath"
	"go.viam.com/posematch/utils"
)

// ReadOFFMesh reads an OFF mesh file. Polygons are split into triangle fans.
func ReadOFFMesh(fn string) (*spatialmath.Mesh, error) {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer goutils.UncheckedErrorFunc(f.Close)
	mesh, err := ReadOFF(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading mesh %q", fn)
	}
	return mesh, nil
}

// tokenReader yields the whitespace separated tokens of a text stream, skipping comments.
type tokenReader struct {
	scanner *bufio.Scanner
	pending []string
}

func (t *tokenReader) next() (string, error) {
	for len(t.pending) == 0 {
		if !t.scanner.Scan() {
			if err := t.scanner.Err(); err != nil {
				return "", err
			}
			return "", io.ErrUnexpectedEOF
		}
		line, _, _ := strings.Cut(t.scanner.Text(), "#")
		t.pending = strings.Fields(line)
	}
	tok := t.pending[0]
	t.pending = t.pending[1:]
	return tok, nil
}

func (t *tokenReader) nextInt() (int, error) {
	tok, err := t.next()
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(tok)
}

func (t *tokenReader) nextFloat() (float64, error) {
	tok, err := t.next()
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(tok, 64)
}

// maxOFFPrealloc bounds the storage reserved from the element counts of an OFF header.
const maxOFFPrealloc = 1 << 16

// ReadOFF reads an OFF mesh stream.
func ReadOFF(in io.Reader) (*spatialmath.Mesh, error) {
	toks := &tokenReader{scanner: bufio.NewScanner(in)}
	magic, err := toks.next()
	if err != nil {
		return nil, err
	}
	if magic != "OFF" {
		return nil, errors.Errorf("not an OFF file, starts with %q", magic)
	}
	var counts [3]int
	for i := range counts {
		if counts[i], err = toks.nextInt(); err != nil {
			return nil, errors.Wrap(err, "reading element counts")
		}
	}
	nVerts, nFaces := counts[0], counts[1]
	if nVerts < 0 || nFaces < 0 {
		return nil, errors.Errorf("negative element counts %d vertices %d faces", nVerts, nFaces)
	}

	verts := make([]r3.Vector, 0, utils.MinInt(nVerts, maxOFFPrealloc))
	for i := 0; i < nVerts; i++ {
		var xyz [3]float64
		for j := range xyz {
			if xyz[j], err = toks.nextFloat(); err != nil {
				return nil, errors.Wrapf(err, "reading vertex %d", i)
			}
		}
		verts = append(verts, r3.Vector{X: xyz[0], Y: xyz[1], Z: xyz[2]})
	}

	triangles := make([]*spatialmath.Triangle, 0, utils.MinInt(nFaces, maxOFFPrealloc))
	for i := 0; i < nFaces; i++ {
		n, err := toks.nextInt()
		if err != nil {
			return nil, errors.Wrapf(err, "reading face %d", i)
		}
		if n < 3 || n > nVerts {
			return nil, errors.Errorf("face %d has %d vertices", i, n)
		}
		idx := make([]int, n)
		for j := range idx {
			if idx[j], err = toks.nextInt(); err != nil {
				return nil, errors.Wrapf(err, "reading face %d", i)
			}
			if idx[j] < 0 || idx[j] >= nVerts {
				return nil, errors.Errorf("face %d references vertex %d of %d", i, idx[j], nVerts)
			}
		}
		for j := 1; j+1 < n; j++ {
			triangles = append(triangles, spatialmath.NewTriangle(verts[idx[0]], verts[idx[j]], verts[idx[j+1]]))
		}
		// per face colors may follow on the same line
		toks.pending = nil
	}
	return spatialmath.NewMesh(spatialmath.NewZeroPose(), triangles), nil
}

// ReadViewpoint reads a viewpoint location. A pcd file gives its first point, any other file is read
// as three numbers.
func ReadViewpoint(fn string) (r3.Vector, error) {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return r3.Vector{}, err
	}
	defer goutils.UncheckedErrorFunc(f.Close)

	if filepath.Ext(fn) == ".pcd" {
		m, err := ReadPCD(f)
		if err != nil {
			return r3.Vector{}, errors.Wrapf(err, "reading viewpoint %q", fn)
		}
		if m.Size() == 0 {
			return r3.Vector{}, errors.Errorf("viewpoint file %q has no points", fn)
		}
		return m.At(0).Loc, nil
	}

	toks := &tokenReader{scanner: bufio.NewScanner(f)}
	var xyz [3]float64
	for i := range xyz {
		if xyz[i], err = toks.nextFloat(); err != nil {
			return r3.Vector{}, errors.Wrapf(err, "reading viewpoint %q", fn)
		}
	}
	return r3.Vector{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}
