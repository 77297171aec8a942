package pointcloud

import (
	"bytes"
	"image/color"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/posematch/logging"
	"go.viam.com/posematch/spatialmath"
)

func domainModel(domain Domain) *Model {
	m := New(domain)
	for i := 0; i < 6; i++ {
		k := NewKernel(NewVector(float64(i)*1.5, -float64(i), 2.25))
		switch domain {
		case R3xS2:
			k.Dir = NewVector(0, 1, 0)
		case SE3:
			k.Ori = (&spatialmath.R4AA{Theta: 0.1 * float64(i), RZ: 1}).ToQuat()
		case R3:
		}
		m.Add(k)
	}
	return m
}

func testPCDRoundTrip(t *testing.T, m *Model, pcdType PCDType) *Model {
	t.Helper()
	var buf bytes.Buffer
	test.That(t, ToPCD(m, &buf, pcdType), test.ShouldBeNil)
	got, err := ReadPCD(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got.Size(), test.ShouldEqual, m.Size())
	test.That(t, got.Domain(), test.ShouldEqual, m.Domain())
	for i, k := range m.Kernels() {
		g := got.At(i)
		test.That(t, spatialmath.R3VectorAlmostEqual(g.Loc, k.Loc, 1e-5), test.ShouldBeTrue)
		test.That(t, g.Weight, test.ShouldAlmostEqual, k.Weight, 1e-6)
		switch m.Domain() {
		case R3xS2:
			test.That(t, spatialmath.R3VectorAlmostEqual(g.Dir, k.Dir, 1e-5), test.ShouldBeTrue)
		case SE3:
			test.That(t, spatialmath.QuaternionAlmostEqual(g.Ori, k.Ori, 1e-5), test.ShouldBeTrue)
		case R3:
		}
	}
	return got
}

func TestPCDRoundTrip(t *testing.T) {
	for _, domain := range []Domain{R3, R3xS2, SE3} {
		domain := domain
		for _, pcdType := range []PCDType{PCDAscii, PCDBinary, PCDCompressed} {
			pcdType := pcdType
			t.Run(domain.String()+"/"+pcdType.String(), func(t *testing.T) {
				testPCDRoundTrip(t, domainModel(domain), pcdType)
			})
		}
	}
}

func TestPCDColorAndWeight(t *testing.T) {
	m := domainModel(R3)
	m.SetData(2, NewColoredData(color.NRGBA{12, 34, 56, 255}))
	m.kernels[4].Weight = 2.5
	for _, pcdType := range []PCDType{PCDAscii, PCDBinary, PCDCompressed} {
		got := testPCDRoundTrip(t, m, pcdType)
		test.That(t, got.MetaData().HasColor, test.ShouldBeTrue)
		r, g, b := got.At(2).Data.RGB255()
		test.That(t, []uint8{r, g, b}, test.ShouldResemble, []uint8{12, 34, 56})
		r, g, b = got.At(0).Data.RGB255()
		test.That(t, []uint8{r, g, b}, test.ShouldResemble, []uint8{255, 255, 255})
	}
}

func TestReadPCDHeaderErrors(t *testing.T) {
	header := func(fields, size, typ, count, data string) string {
		return "VERSION .7\nFIELDS " + fields + "\nSIZE " + size + "\nTYPE " + typ + "\nCOUNT " + count +
			"\nWIDTH 1\nHEIGHT 1\nVIEWPOINT 0 0 0 1 0 0 0\nPOINTS 1\nDATA " + data + "\n"
	}

	t.Run("valid ascii with comments and extra fields", func(t *testing.T) {
		in := "# a comment\n" + header("x y z intensity", "4 4 4 4", "F F F F", "1 1 1 1", "ascii") + "1 2 3 7\n"
		m, err := ReadPCD(strings.NewReader(in))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, m.Size(), test.ShouldEqual, 1)
		test.That(t, m.At(0).Loc, test.ShouldResemble, r3.Vector{X: 1, Y: 2, Z: 3})
	})

	t.Run("float packed rgb", func(t *testing.T) {
		in := header("x y z rgb", "4 4 4 4", "F F F F", "1 1 1 1", "ascii") + "1 2 3 2.3510604e-38\n"
		m, err := ReadPCD(strings.NewReader(in))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, m.At(0).Data.HasColor(), test.ShouldBeTrue)
	})

	points := func(in, n string) string {
		in = strings.Replace(in, "WIDTH 1\n", "WIDTH "+n+"\n", 1)
		return strings.Replace(in, "POINTS 1\n", "POINTS "+n+"\n", 1)
	}

	for name, in := range map[string]string{
		"points overflow":  points(header("x y z", "4 4 4", "F F F", "1 1 1", "binary"), "18446744073709551615"),
		"points too many":  points(header("x y z", "4 4 4", "F F F", "1 1 1", "binary"), "4294967296"),
		"points missing":   points(header("x y z", "4 4 4", "F F F", "1 1 1", "binary"), "1000000000"),
		"missing xyz":      header("a b c", "4 4 4", "F F F", "1 1 1", "ascii"),
		"bad size count":   header("x y z", "4 4", "F F F", "1 1 1", "ascii"),
		"bad type":         header("x y z", "4 4 4", "F F Q", "1 1 1", "ascii"),
		"array fields":     header("x y z", "4 4 4", "F F F", "1 1 3", "ascii"),
		"bad data":         header("x y z", "4 4 4", "F F F", "1 1 1", "zip"),
		"short point":      header("x y z", "4 4 4", "F F F", "1 1 1", "ascii") + "1 2\n",
		"truncated binary": header("x y z", "4 4 4", "F F F", "1 1 1", "binary") + "abc",
		"wrong version":    strings.Replace(header("x y z", "4 4 4", "F F F", "1 1 1", "ascii"), ".7", ".6", 1),
	} {
		in := in
		t.Run(name, func(t *testing.T) {
			_, err := ReadPCD(strings.NewReader(in))
			test.That(t, err, test.ShouldNotBeNil)
		})
	}
}

func TestFiles(t *testing.T) {
	logger := logging.NewTestLogger(t)
	dir := t.TempDir()

	t.Run("pcd", func(t *testing.T) {
		fn := filepath.Join(dir, "model.pcd")
		m := domainModel(R3xS2)
		test.That(t, WriteToFile(m, fn, PCDCompressed), test.ShouldBeNil)
		got, err := NewFromFile(fn, logger)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got.Size(), test.ShouldEqual, m.Size())
		test.That(t, got.Domain(), test.ShouldEqual, R3xS2)
	})

	t.Run("las", func(t *testing.T) {
		fn := filepath.Join(dir, "model.las")
		m := domainModel(R3)
		m.SetData(1, NewColoredData(color.NRGBA{255, 0, 0, 255}))
		test.That(t, WriteToFile(m, fn, PCDBinary), test.ShouldBeNil)
		got, err := NewFromFile(fn, logger)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got.Size(), test.ShouldEqual, m.Size())
		for i, k := range m.Kernels() {
			test.That(t, spatialmath.R3VectorAlmostEqual(got.At(i).Loc, k.Loc, 1e-2), test.ShouldBeTrue)
		}
		test.That(t, got.MetaData().HasColor, test.ShouldBeTrue)
	})

	t.Run("unknown extension", func(t *testing.T) {
		_, err := NewFromFile(filepath.Join(dir, "model.ply"), logger)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, WriteToFile(domainModel(R3), filepath.Join(dir, "model.ply"), PCDBinary), test.ShouldNotBeNil)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewFromFile(filepath.Join(dir, "nope.pcd"), logger)
		test.That(t, err, test.ShouldNotBeNil)
	})
}
