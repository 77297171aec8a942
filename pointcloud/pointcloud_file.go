package pointcloud

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/edaniels/lidario"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	lzf "github.com/zhuyie/golzf"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/posematch/logging"
	"go.viam.com/posematch/spatialmath"
	"go.viam.com/posematch/utils"
)

// PCDType is the format of a pcd file.
type PCDType int

const (
	// PCDAscii ascii format for pcd.
	PCDAscii PCDType = 0
	// PCDBinary binary format for pcd.
	PCDBinary PCDType = 1
	// PCDCompressed binary format for pcd.
	PCDCompressed PCDType = 2
)

// ParsePCDType maps the DATA keyword of a pcd header onto a PCDType.
func ParsePCDType(s string) (PCDType, error) {
	switch s {
	case "ascii":
		return PCDAscii, nil
	case "binary", "":
		return PCDBinary, nil
	case "binary_compressed":
		return PCDCompressed, nil
	default:
		return PCDBinary, errors.Errorf("unknown pcd data type %q", s)
	}
}

func (t PCDType) String() string {
	switch t {
	case PCDAscii:
		return "ascii"
	case PCDCompressed:
		return "binary_compressed"
	default:
		return "binary"
	}
}

// NewFromFile returns a model read in from the given file. Coordinates are kept in file units.
func NewFromFile(fn string, logger logging.Logger) (*Model, error) {
	switch filepath.Ext(fn) {
	case ".las":
		return NewFromLASFile(fn, logger)
	case ".pcd":
		//nolint:gosec
		f, err := os.Open(fn)
		if err != nil {
			return nil, err
		}
		defer goutils.UncheckedErrorFunc(f.Close)
		m, err := ReadPCD(f)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %q", fn)
		}
		logger.Debugw("read pcd", "path", fn, "points", m.Size(), "domain", m.Domain().String())
		return m, nil
	default:
		return nil, errors.Errorf("do not know how to read file %q", fn)
	}
}

// WriteToFile writes the model to fn, choosing the format from the extension. pcdType selects the
// pcd encoding and is ignored for other formats.
func WriteToFile(m *Model, fn string, pcdType PCDType) error {
	switch filepath.Ext(fn) {
	case ".las":
		return WriteToLASFile(m, fn)
	case ".pcd":
		return writePCDFile(m, fn, pcdType)
	default:
		return errors.Errorf("do not know how to write file %q", fn)
	}
}

func writePCDFile(m *Model, fn string, pcdType PCDType) (err error) {
	//nolint:gosec
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	w := bufio.NewWriter(f)
	if err = ToPCD(m, w, pcdType); err != nil {
		return err
	}
	return w.Flush()
}

// NewFromLASFile returns an R3 model from reading a LAS file.
func NewFromLASFile(fn string, logger logging.Logger) (*Model, error) {
	lf, err := lidario.NewLasFile(fn, "r")
	if err != nil {
		return nil, err
	}
	defer goutils.UncheckedErrorFunc(lf.Close)

	m := NewWithPrealloc(R3, lf.Header.NumberPoints)
	for i := 0; i < lf.Header.NumberPoints; i++ {
		p, err := lf.LasPoint(i)
		if err != nil {
			return nil, err
		}
		data := p.PointData()

		k := NewKernel(r3.Vector{X: data.X, Y: data.Y, Z: data.Z})
		if lf.Header.PointFormatID == 2 && p.RgbData() != nil {
			r := uint8(p.RgbData().Red / 256)
			g := uint8(p.RgbData().Green / 256)
			b := uint8(p.RgbData().Blue / 256)
			k.Data = NewColoredData(color.NRGBA{r, g, b, 255})
		}
		m.Add(k)
	}
	logger.Debugw("read las", "path", fn, "points", m.Size())
	return m, nil
}

// WriteToLASFile writes the kernel locations and colors out to a LAS file. Normals, orientations and
// weights are not representable in LAS and are dropped.
func WriteToLASFile(m *Model, fn string) (err error) {
	lf, err := lidario.NewLasFile(fn, "w")
	if err != nil {
		return
	}
	defer func() {
		cerr := lf.Close()
		err = multierr.Combine(err, cerr)
	}()

	meta := m.MetaData()

	pointFormatID := 0
	if meta.HasColor {
		pointFormatID = 2
	}
	if err = lf.AddHeader(lidario.LasHeader{
		PointFormatID: byte(pointFormatID),
	}); err != nil {
		return
	}

	for _, k := range m.Kernels() {
		var lp lidario.LasPointer
		pr0 := &lidario.PointRecord0{
			X: k.Loc.X,
			Y: k.Loc.Y,
			Z: k.Loc.Z,
			BitField: lidario.PointBitField{
				Value: (1) | (1 << 3) | (0 << 6) | (0 << 7),
			},
			ClassBitField: lidario.ClassificationBitField{
				Value: 0,
			},
			ScanAngle:     0,
			UserData:      0,
			PointSourceID: 1,
		}
		lp = pr0

		if meta.HasColor {
			red, green, blue := 255, 255, 255
			if k.Data != nil && k.Data.HasColor() {
				r, g, b := k.Data.RGB255()
				red, green, blue = int(r), int(g), int(b)
			}
			lp = &lidario.PointRecord2{
				PointRecord0: pr0,
				RGB: &lidario.RgbData{
					Red:   uint16(red * 256),
					Green: uint16(green * 256),
					Blue:  uint16(blue * 256),
				},
			}
		}
		if err = lf.AddLasPoint(lp); err != nil {
			return
		}
	}

	// nolint:nakedret
	return
}

type pcdValType string

const (
	pcdValFloat pcdValType = "F"
	pcdValInt   pcdValType = "I"
	pcdValUInt  pcdValType = "U"
)

type pcdField struct {
	name  string
	size  int
	type_ pcdValType
}

type pcdHeader struct {
	fields    []pcdField
	width     uint64
	height    uint64
	viewpoint spatialmath.Pose
	points    uint64
	data      PCDType
}

// maxPCDPrealloc bounds the kernels reserved from the POINTS field before any point is read.
const maxPCDPrealloc = 1 << 20

// prealloc is the capacity reserved for the points of the stream.
func (h *pcdHeader) prealloc() int {
	return utils.MinInt(int(h.points), maxPCDPrealloc)
}

// recordSize is the number of bytes of one point in binary data.
func (h *pcdHeader) recordSize() int {
	size := 0
	for _, f := range h.fields {
		size += f.size
	}
	return size
}

func (h *pcdHeader) fieldIndex(name string) int {
	for i, f := range h.fields {
		if f.name == name {
			return i
		}
	}
	return -1
}

func (h *pcdHeader) hasFields(names ...string) bool {
	for _, n := range names {
		if h.fieldIndex(n) < 0 {
			return false
		}
	}
	return true
}

func (h *pcdHeader) domain() Domain {
	switch {
	case h.hasFields("qw", "qx", "qy", "qz"):
		return SE3
	case h.hasFields("normal_x", "normal_y", "normal_z"):
		return R3xS2
	default:
		return R3
	}
}

const pcdCommentChar = "#"

var pcdHeaderFields = []string{"VERSION", "FIELDS", "SIZE", "TYPE", "COUNT", "WIDTH", "HEIGHT", "VIEWPOINT", "POINTS", "DATA"}

func parsePCDHeaderLine(line string, index int, pcdHeader *pcdHeader) error {
	var err error
	name := pcdHeaderFields[index]
	field, value, _ := strings.Cut(line, " ")
	value = strings.TrimSpace(value)
	tokens := strings.Fields(value)
	if field != name {
		return fmt.Errorf("line is supposed to start with %s but is %s", name, line)
	}

	switch name {
	case "VERSION":
		if value != ".7" && value != "0.7" {
			return fmt.Errorf("unsupported pcd version %s", value)
		}
	case "FIELDS":
		pcdHeader.fields = make([]pcdField, len(tokens))
		for i, token := range tokens {
			pcdHeader.fields[i].name = token
		}
		if !pcdHeader.hasFields("x", "y", "z") {
			return fmt.Errorf("unsupported pcd fields %s", value)
		}
	case "SIZE":
		if len(tokens) != len(pcdHeader.fields) {
			return fmt.Errorf("unexpected number of fields in SIZE line")
		}
		for i, token := range tokens {
			size, err := strconv.Atoi(token)
			if err != nil {
				return fmt.Errorf("invalid SIZE field %s", token)
			}
			switch size {
			case 1, 2, 4, 8:
			default:
				return fmt.Errorf("unsupported SIZE %d", size)
			}
			pcdHeader.fields[i].size = size
		}
	case "TYPE":
		if len(tokens) != len(pcdHeader.fields) {
			return fmt.Errorf("unexpected number of fields in TYPE line")
		}
		for i, token := range tokens {
			t := pcdValType(token)
			switch t {
			case pcdValFloat, pcdValInt, pcdValUInt:
			default:
				return fmt.Errorf("invalid TYPE field %s", token)
			}
			pcdHeader.fields[i].type_ = t
		}
	case "COUNT":
		if len(tokens) != len(pcdHeader.fields) {
			return fmt.Errorf("unexpected number of fields in COUNT line")
		}
		for _, token := range tokens {
			count, err := strconv.ParseUint(token, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid COUNT field %s: %w", token, err)
			}
			if count != 1 {
				return fmt.Errorf("unsupported COUNT %d, only scalar fields are supported", count)
			}
		}
	case "WIDTH":
		pcdHeader.width, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid WIDTH field %s: %w", value, err)
		}
	case "HEIGHT":
		pcdHeader.height, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid HEIGHT field %s: %w", value, err)
		}
	case "VIEWPOINT":
		if len(tokens) != 7 {
			return fmt.Errorf("unexpected number of fields in VIEWPOINT line. Expected 7, got %d", len(tokens))
		}
		viewpoint := [7]float64{}
		for i, token := range tokens {
			viewpoint[i], err = strconv.ParseFloat(token, 64)
			if err != nil {
				return fmt.Errorf("invalid VIEWPOINT field %s: %w", token, err)
			}
		}
		pcdHeader.viewpoint = spatialmath.NewPose(
			r3.Vector{X: viewpoint[0], Y: viewpoint[1], Z: viewpoint[2]},
			spatialmath.NewQuaternion(quat.Number{Real: viewpoint[3], Imag: viewpoint[4], Jmag: viewpoint[5], Kmag: viewpoint[6]}),
		)
	case "POINTS":
		var points uint64
		points, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid POINTS field %s: %w", value, err)
		}
		if points > math.MaxInt32 {
			return fmt.Errorf("POINTS field %d exceeds %d", points, math.MaxInt32)
		}
		if points != pcdHeader.width*pcdHeader.height {
			return fmt.Errorf("POINTS field %d does not match WIDTH*HEIGHT %d", points, pcdHeader.width*pcdHeader.height)
		}
		pcdHeader.points = points
	case "DATA":
		pcdHeader.data, err = ParsePCDType(value)
		if err != nil {
			return err
		}
	}

	return nil
}

// ReadPCD reads a pcd stream. The domain of the model follows the fields present: qw qx qy qz give
// SE3 kernels, normal_x normal_y normal_z give R3xS2 kernels. rgb and weight fields are honored and
// any other field is skipped.
func ReadPCD(inRaw io.Reader) (*Model, error) {
	header := pcdHeader{}
	in := bufio.NewReader(inRaw)
	var line string
	var err error
	headerLineCount := 0
	for headerLineCount < len(pcdHeaderFields) {
		line, err = in.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("error reading header line %d: %w", headerLineCount, err)
		}
		line, _, _ = strings.Cut(line, pcdCommentChar)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		err := parsePCDHeaderLine(line, headerLineCount, &header)
		if err != nil {
			return nil, err
		}
		headerLineCount++
	}
	for i, f := range header.fields {
		if f.size == 0 || f.type_ == "" {
			return nil, fmt.Errorf("pcd field %d (%s) has no SIZE or TYPE", i, f.name)
		}
	}
	switch header.data {
	case PCDAscii:
		return readPCDAscii(in, header)
	case PCDBinary:
		return readPCDBinary(in, header)
	case PCDCompressed:
		return readPCDCompressed(in, header)
	default:
		return nil, fmt.Errorf("unsupported pcd data type %v", header.data)
	}
}

func readPCDAscii(in *bufio.Reader, header pcdHeader) (*Model, error) {
	m := NewWithPrealloc(header.domain(), header.prealloc())
	for i := 0; i < int(header.points); i++ {
		line, err := in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return nil, err
		}
		tokens := strings.Fields(line)
		if len(tokens) != len(header.fields) {
			return nil, fmt.Errorf("unexpected number of fields in point %d", i)
		}
		point := make([]float64, len(tokens))
		for j, token := range tokens {
			point[j], err = strconv.ParseFloat(token, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid point %d field %s: %w", i, token, err)
			}
		}
		m.Add(readSliceToKernel(point, header))
	}
	return m, nil
}

func readPCDBinary(in *bufio.Reader, header pcdHeader) (*Model, error) {
	m := NewWithPrealloc(header.domain(), header.prealloc())
	record := make([]byte, header.recordSize())
	point := make([]float64, len(header.fields))
	for i := 0; i < int(header.points); i++ {
		if _, err := io.ReadFull(in, record); err != nil {
			return nil, errors.Wrapf(err, "reading point %d", i)
		}
		offset := 0
		for j, f := range header.fields {
			point[j] = decodePCDValue(record[offset:offset+f.size], f)
			offset += f.size
		}
		m.Add(readSliceToKernel(point, header))
	}
	return m, nil
}

// readPCDCompressed reads LZF compressed data laid out field by field rather than point by point.
func readPCDCompressed(in *bufio.Reader, header pcdHeader) (*Model, error) {
	var sizes [2]uint32
	if err := binary.Read(in, binary.LittleEndian, &sizes); err != nil {
		return nil, errors.Wrap(err, "reading compressed pcd sizes")
	}
	compressedSize, uncompressedSize := sizes[0], sizes[1]
	if int(uncompressedSize) != header.recordSize()*int(header.points) {
		return nil, fmt.Errorf("compressed pcd holds %d bytes, expected %d", uncompressedSize, header.recordSize()*int(header.points))
	}
	compressed := make([]byte, compressedSize)
	if _, err := io.ReadFull(in, compressed); err != nil {
		return nil, errors.Wrap(err, "reading compressed pcd data")
	}
	raw := make([]byte, uncompressedSize)
	if uncompressedSize > 0 {
		n, err := lzf.Decompress(compressed, raw)
		if err != nil {
			return nil, errors.Wrap(err, "decompressing pcd data")
		}
		if n != int(uncompressedSize) {
			return nil, fmt.Errorf("decompressed %d bytes, expected %d", n, uncompressedSize)
		}
	}

	m := NewWithPrealloc(header.domain(), header.prealloc())
	starts := make([]int, len(header.fields))
	offset := 0
	for j, f := range header.fields {
		starts[j] = offset
		offset += f.size * int(header.points)
	}
	point := make([]float64, len(header.fields))
	for i := 0; i < int(header.points); i++ {
		for j, f := range header.fields {
			at := starts[j] + i*f.size
			point[j] = decodePCDValue(raw[at:at+f.size], f)
		}
		m.Add(readSliceToKernel(point, header))
	}
	return m, nil
}

func decodePCDValue(buf []byte, f pcdField) float64 {
	switch f.type_ {
	case pcdValFloat:
		if f.size == 8 {
			return math.Float64frombits(binary.LittleEndian.Uint64(buf))
		}
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(buf)))
	case pcdValInt:
		switch f.size {
		case 1:
			return float64(int8(buf[0]))
		case 2:
			return float64(int16(binary.LittleEndian.Uint16(buf)))
		case 4:
			return float64(int32(binary.LittleEndian.Uint32(buf)))
		default:
			return float64(int64(binary.LittleEndian.Uint64(buf)))
		}
	default:
		switch f.size {
		case 1:
			return float64(buf[0])
		case 2:
			return float64(binary.LittleEndian.Uint16(buf))
		case 4:
			return float64(binary.LittleEndian.Uint32(buf))
		default:
			return float64(binary.LittleEndian.Uint64(buf))
		}
	}
}

func readSliceToKernel(slice []float64, header pcdHeader) Kernel {
	at := func(name string) float64 {
		return slice[header.fieldIndex(name)]
	}
	k := NewKernel(r3.Vector{X: at("x"), Y: at("y"), Z: at("z")})
	switch header.domain() {
	case SE3:
		k.Ori = spatialmath.Normalize(quat.Number{Real: at("qw"), Imag: at("qx"), Jmag: at("qy"), Kmag: at("qz")})
	case R3xS2:
		k.Dir = r3.Vector{X: at("normal_x"), Y: at("normal_y"), Z: at("normal_z")}
		if k.Dir.Norm2() > 0 {
			k.Dir = k.Dir.Normalize()
		}
	case R3:
	}
	if i := header.fieldIndex("rgb"); i >= 0 {
		var c uint32
		if header.fields[i].type_ == pcdValFloat {
			// packed color bits stored in a float
			c = math.Float32bits(float32(slice[i]))
		} else {
			c = uint32(slice[i])
		}
		k.Data = NewColoredData(pcdIntToColor(c))
	}
	if i := header.fieldIndex("weight"); i >= 0 {
		k.Weight = slice[i]
	}
	return k
}

// pcdFieldsFor returns the fields written for a model.
func pcdFieldsFor(m *Model) []pcdField {
	fields := []pcdField{{"x", 4, pcdValFloat}, {"y", 4, pcdValFloat}, {"z", 4, pcdValFloat}}
	switch m.Domain() {
	case R3xS2:
		fields = append(fields, pcdField{"normal_x", 4, pcdValFloat}, pcdField{"normal_y", 4, pcdValFloat},
			pcdField{"normal_z", 4, pcdValFloat})
	case SE3:
		fields = append(fields, pcdField{"qw", 4, pcdValFloat}, pcdField{"qx", 4, pcdValFloat},
			pcdField{"qy", 4, pcdValFloat}, pcdField{"qz", 4, pcdValFloat})
	case R3:
	}
	if m.MetaData().HasColor {
		fields = append(fields, pcdField{"rgb", 4, pcdValUInt})
	}
	for _, k := range m.Kernels() {
		if k.Weight != 1 {
			fields = append(fields, pcdField{"weight", 4, pcdValFloat})
			break
		}
	}
	return fields
}

func kernelValues(k Kernel, fields []pcdField) []float64 {
	vals := make([]float64, len(fields))
	for i, f := range fields {
		switch f.name {
		case "x":
			vals[i] = k.Loc.X
		case "y":
			vals[i] = k.Loc.Y
		case "z":
			vals[i] = k.Loc.Z
		case "normal_x":
			vals[i] = k.Dir.X
		case "normal_y":
			vals[i] = k.Dir.Y
		case "normal_z":
			vals[i] = k.Dir.Z
		case "qw":
			vals[i] = k.Ori.Real
		case "qx":
			vals[i] = k.Ori.Imag
		case "qy":
			vals[i] = k.Ori.Jmag
		case "qz":
			vals[i] = k.Ori.Kmag
		case "rgb":
			vals[i] = float64(colorToPCDInt(k.Data))
		case "weight":
			vals[i] = k.Weight
		}
	}
	return vals
}

func encodePCDValue(buf []byte, v float64, f pcdField) {
	if f.type_ == pcdValFloat {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(v)))
		return
	}
	binary.LittleEndian.PutUint32(buf, uint32(v))
}

// ToPCD writes the model as pcd. Fields follow the domain of the model, see ReadPCD.
func ToPCD(m *Model, out io.Writer, outputType PCDType) error {
	fields := pcdFieldsFor(m)
	names := make([]string, len(fields))
	sizes := make([]string, len(fields))
	types := make([]string, len(fields))
	counts := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.name
		sizes[i] = strconv.Itoa(f.size)
		types[i] = string(f.type_)
		counts[i] = "1"
	}

	if _, err := fmt.Fprintf(out, "VERSION .7\n"+
		"FIELDS %s\n"+
		"SIZE %s\n"+
		"TYPE %s\n"+
		"COUNT %s\n"+
		"WIDTH %d\n"+
		"HEIGHT %d\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n"+
		"DATA %s\n",
		strings.Join(names, " "), strings.Join(sizes, " "), strings.Join(types, " "), strings.Join(counts, " "),
		m.Size(), 1, m.Size(), outputType); err != nil {
		return err
	}

	switch outputType {
	case PCDAscii:
		return writePCDAscii(m, out, fields)
	case PCDBinary:
		return writePCDBinary(m, out, fields)
	case PCDCompressed:
		return writePCDCompressed(m, out, fields)
	default:
		return errors.Errorf("unsupported pcd data type %v", outputType)
	}
}

func writePCDAscii(m *Model, out io.Writer, fields []pcdField) error {
	for _, k := range m.Kernels() {
		vals := kernelValues(k, fields)
		tokens := make([]string, len(vals))
		for i, v := range vals {
			if fields[i].type_ == pcdValFloat {
				tokens[i] = strconv.FormatFloat(float64(float32(v)), 'g', -1, 32)
			} else {
				tokens[i] = strconv.FormatUint(uint64(v), 10)
			}
		}
		if _, err := fmt.Fprintln(out, strings.Join(tokens, " ")); err != nil {
			return err
		}
	}
	return nil
}

func writePCDBinary(m *Model, out io.Writer, fields []pcdField) error {
	buf := make([]byte, 4*len(fields))
	for _, k := range m.Kernels() {
		for i, v := range kernelValues(k, fields) {
			encodePCDValue(buf[4*i:], v, fields[i])
		}
		if _, err := out.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

func writePCDCompressed(m *Model, out io.Writer, fields []pcdField) error {
	n := m.Size()
	raw := make([]byte, 4*len(fields)*n)
	for i, k := range m.Kernels() {
		for j, v := range kernelValues(k, fields) {
			encodePCDValue(raw[4*(j*n+i):], v, fields[j])
		}
	}
	var compressed []byte
	if len(raw) > 0 {
		// lzf can expand incompressible input slightly
		compressed = make([]byte, len(raw)+len(raw)/16+64)
		size, err := lzf.Compress(raw, compressed)
		if err != nil {
			return errors.Wrap(err, "compressing pcd data")
		}
		compressed = compressed[:size]
	}
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, [2]uint32{uint32(len(compressed)), uint32(len(raw))}); err != nil {
		return err
	}
	buf.Write(compressed)
	_, err := out.Write(buf.Bytes())
	return err
}
