package related

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/TobiSchelling/newsdigest/internal/textproc"
)

// VectorModel is a static word-vector table. A document vector is the mean
// of the vectors of its in-vocabulary tokens.
type VectorModel struct {
	dim     int
	vectors map[string][]float32
}

// NewVectorModel builds a model from an in-memory table. All vectors must
// share one dimension.
func NewVectorModel(vectors map[string][]float32) (*VectorModel, error) {
	m := &VectorModel{vectors: make(map[string][]float32, len(vectors))}
	for word, v := range vectors {
		if m.dim == 0 {
			m.dim = len(v)
		}
		if len(v) != m.dim || m.dim == 0 {
			return nil, fmt.Errorf("vector for %q has dimension %d, want %d", word, len(v), m.dim)
		}
		m.vectors[textproc.Clean(word)] = v
	}
	if m.dim == 0 {
		return nil, fmt.Errorf("empty vector table")
	}
	return m, nil
}

// Dim returns the vector dimension.
func (m *VectorModel) Dim() int { return m.dim }

// Len returns the vocabulary size.
func (m *VectorModel) Len() int { return len(m.vectors) }

// DocVector averages token vectors. Text with no known token yields the
// zero vector.
func (m *VectorModel) DocVector(_ context.Context, text string) ([]float64, error) {
	out := make([]float64, m.dim)
	n := 0
	for _, tok := range textproc.Tokens(text) {
		v, ok := m.vectors[tok]
		if !ok {
			continue
		}
		for i, x := range v {
			out[i] += float64(x)
		}
		n++
	}
	if n > 0 {
		for i := range out {
			out[i] /= float64(n)
		}
	}
	return out, nil
}

// LoadVectorFile reads a fastText .vec file. At most maxWords entries are
// read; zero means all of them.
func LoadVectorFile(path string, maxWords int) (*VectorModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening vectors: %w", err)
	}
	defer f.Close()

	m, err := ReadVectors(f, maxWords)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return m, nil
}

// ReadVectors parses the .vec text format: an optional "count dim" header,
// then one "word x1 x2 ... xd" line per word. Lines with the wrong
// dimension are skipped. The first occurrence of a word wins.
func ReadVectors(r io.Reader, maxWords int) (*VectorModel, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	m := &VectorModel{vectors: make(map[string][]float32)}
	first := true
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if first {
			first = false
			if len(fields) == 2 {
				if dim, err := strconv.Atoi(fields[1]); err == nil {
					m.dim = dim
					continue
				}
			}
		}
		if m.dim == 0 {
			m.dim = len(fields) - 1
		}
		if len(fields)-1 != m.dim {
			continue
		}

		word := textproc.Clean(fields[0])
		if word == "" {
			continue
		}
		if _, dup := m.vectors[word]; dup {
			continue
		}
		v := make([]float32, m.dim)
		ok := true
		for i, raw := range fields[1:] {
			x, err := strconv.ParseFloat(raw, 32)
			if err != nil {
				ok = false
				break
			}
			v[i] = float32(x)
		}
		if !ok {
			continue
		}
		m.vectors[word] = v
		if maxWords > 0 && len(m.vectors) >= maxWords {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(m.vectors) == 0 || m.dim <= 0 {
		return nil, fmt.Errorf("no vectors found")
	}
	return m, nil
}
