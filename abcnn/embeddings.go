package abcnn

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// LoadWordVectors reads pre-trained word vectors per the embeddings
// config. Missing files are not an error: the caller falls back to
// random vectors for every word, matching training-time behavior for
// out-of-vocabulary words.
func LoadWordVectors(cfg EmbeddingsConfig) (map[string][]float64, error) {
	if cfg.Path == "" {
		return nil, nil
	}
	f, err := os.Open(cfg.Path)
	if err != nil {
		if os.IsNotExist(err) {
			logrus.Warnf("word vectors file %s not found, using random embeddings", cfg.Path)
			return nil, nil
		}
		return nil, fmt.Errorf("open word vectors: %w", err)
	}
	defer f.Close()

	logrus.Infof("loading %s word vectors from %s", cfg.Format, cfg.Path)
	if cfg.Format == FormatWord2Vec && cfg.IsBinary {
		return readWord2VecBinary(f, cfg.Size)
	}
	// word2vec text format and fasttext .vec files share a layout:
	// a "count dim" header line followed by "word v1 ... vdim" lines.
	return readVectorsText(f, cfg.Size)
}

func readVectorsText(r io.Reader, size int) (map[string][]float64, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !sc.Scan() {
		return nil, fmt.Errorf("word vectors file is empty")
	}
	header := strings.Fields(sc.Text())
	if len(header) != 2 {
		return nil, fmt.Errorf("bad word vectors header %q", sc.Text())
	}
	dim, err := strconv.Atoi(header[1])
	if err != nil {
		return nil, fmt.Errorf("bad word vectors header %q", sc.Text())
	}
	if dim != size {
		return nil, fmt.Errorf("word vectors have dimension %d, config expects %d", dim, size)
	}

	vectors := make(map[string][]float64)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != dim+1 {
			return nil, fmt.Errorf("word %q: got %d components, want %d", fields[0], len(fields)-1, dim)
		}
		vec := make([]float64, dim)
		for i, s := range fields[1:] {
			vec[i], err = strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("word %q: bad component %q", fields[0], s)
			}
		}
		vectors[fields[0]] = vec
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read word vectors: %w", err)
	}
	return vectors, nil
}

// readWord2VecBinary parses the original word2vec binary layout:
// ASCII "count dim\n" header, then per entry the word terminated by a
// space and dim little-endian float32 values.
func readWord2VecBinary(r io.Reader, size int) (map[string][]float64, error) {
	br := bufio.NewReader(r)

	header, err := br.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("read word vectors header: %w", err)
	}
	fields := strings.Fields(header)
	if len(fields) != 2 {
		return nil, fmt.Errorf("bad word vectors header %q", header)
	}
	count, err1 := strconv.Atoi(fields[0])
	dim, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil {
		return nil, fmt.Errorf("bad word vectors header %q", header)
	}
	if dim != size {
		return nil, fmt.Errorf("word vectors have dimension %d, config expects %d", dim, size)
	}

	vectors := make(map[string][]float64, count)
	buf := make([]byte, 4*dim)
	for n := 0; n < count; n++ {
		word, err := br.ReadString(' ')
		if err != nil {
			return nil, fmt.Errorf("read word %d: %w", n, err)
		}
		word = strings.TrimRight(word, " ")
		word = strings.TrimLeft(word, "\n") // some writers newline-terminate entries

		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("read vector for %q: %w", word, err)
		}
		vec := make([]float64, dim)
		for i := 0; i < dim; i++ {
			bits := binary.LittleEndian.Uint32(buf[4*i:])
			vec[i] = float64(math.Float32frombits(bits))
		}
		vectors[word] = vec
	}
	return vectors, nil
}

// BuildEmbeddingMatrix assembles the (vocabulary x size) embedding
// matrix: row 0 (padding) is all zeros, known words take their
// pre-trained vectors, and the rest draw uniform(-0.01, 0.01) noise
// from rng.
func BuildEmbeddingMatrix(vocab *Vocabulary, vectors map[string][]float64, size int, rng *rand.Rand) *mat.Dense {
	m := mat.NewDense(vocab.Len(), size, nil)
	hits := 0
	for idx, word := range vocab.Words {
		if idx == 0 {
			continue // padding row stays zero
		}
		if vec, ok := vectors[word]; ok {
			m.SetRow(idx, vec)
			hits++
			continue
		}
		row := make([]float64, size)
		for i := range row {
			row[i] = rng.Float64()*0.02 - 0.01
		}
		m.SetRow(idx, row)
	}
	if len(vectors) > 0 {
		logrus.Debugf("embedding matrix: %d/%d words matched pre-trained vectors", hits, vocab.Len()-1)
	}
	return m
}
