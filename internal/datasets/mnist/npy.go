package mnist

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

var npyMagic = []byte("\x93NUMPY")

// npyMaxHeader bounds the header dict; numpy writes a few hundred bytes.
const npyMaxHeader = 1 << 16

var (
	npyDescr   = regexp.MustCompile(`'descr'\s*:\s*'([^']*)'`)
	npyFortran = regexp.MustCompile(`'fortran_order'\s*:\s*(True|False)`)
	npyShape   = regexp.MustCompile(`'shape'\s*:\s*\(([^)]*)\)`)
)

// readNPY decodes a .npy array of unsigned bytes in C order.
func readNPY(r io.Reader) ([]int, []byte, error) {
	magic := make([]byte, len(npyMagic)+2)
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, nil, fmt.Errorf("%w: npy preamble: %v", ErrFormat, err)
	}
	if !bytes.Equal(magic[:len(npyMagic)], npyMagic) {
		return nil, nil, fmt.Errorf("%w: not an npy file", ErrFormat)
	}

	var headerLen int
	switch major := magic[len(npyMagic)]; major {
	case 1:
		var n uint16
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, nil, fmt.Errorf("%w: npy header length: %v", ErrFormat, err)
		}
		headerLen = int(n)
	case 2, 3:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, nil, fmt.Errorf("%w: npy header length: %v", ErrFormat, err)
		}
		headerLen = int(n)
	default:
		return nil, nil, fmt.Errorf("%w: unsupported npy version %d", ErrFormat, major)
	}

	if headerLen > npyMaxHeader {
		return nil, nil, fmt.Errorf("%w: npy header of %d bytes", ErrFormat, headerLen)
	}
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, nil, fmt.Errorf("%w: npy header: %v", ErrFormat, err)
	}
	shape, err := parseNPYHeader(string(header))
	if err != nil {
		return nil, nil, err
	}

	size, err := elementCount(shape)
	if err != nil {
		return nil, nil, err
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, nil, fmt.Errorf("%w: npy data: want %d bytes: %v", ErrFormat, size, err)
	}
	return shape, data, nil
}

func parseNPYHeader(header string) ([]int, error) {
	descr := npyDescr.FindStringSubmatch(header)
	if descr == nil {
		return nil, fmt.Errorf("%w: npy header has no descr: %q", ErrFormat, header)
	}
	switch descr[1] {
	case "|u1", "<u1", ">u1", "u1":
	default:
		return nil, fmt.Errorf("%w: unsupported npy dtype %q", ErrFormat, descr[1])
	}

	if fortran := npyFortran.FindStringSubmatch(header); fortran == nil || fortran[1] != "False" {
		return nil, fmt.Errorf("%w: npy array must be in C order", ErrFormat)
	}

	m := npyShape.FindStringSubmatch(header)
	if m == nil {
		return nil, fmt.Errorf("%w: npy header has no shape: %q", ErrFormat, header)
	}
	var shape []int
	for _, part := range strings.Split(m[1], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(strings.TrimSuffix(part, "L"))
		if err != nil || d < 0 {
			return nil, fmt.Errorf("%w: bad npy dimension %q", ErrFormat, part)
		}
		shape = append(shape, d)
	}
	return shape, nil
}

type npyArray struct {
	shape []int
	data  []byte
}

// readNPZ reads the named arrays from an .npz archive. Names are given
// without the .npy suffix.
func readNPZ(path string, names ...string) (map[string]npyArray, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFormat, path, err)
	}
	defer zr.Close()

	out := make(map[string]npyArray, len(names))
	for _, name := range names {
		f, err := zr.Open(name + ".npy")
		if err != nil {
			return nil, fmt.Errorf("%w: %s: missing %s.npy", ErrFormat, path, name)
		}
		shape, data, err := readNPY(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", path, name, err)
		}
		out[name] = npyArray{shape: shape, data: data}
	}
	return out, nil
}
