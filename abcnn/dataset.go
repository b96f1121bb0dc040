package abcnn

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// PadToken occupies index 0 of the vocabulary and embedding matrix.
const PadToken = "<PAD>"

// Vocabulary maps words to embedding-matrix rows. Index 0 is PadToken.
type Vocabulary struct {
	Index map[string]int
	Words []string
}

func NewVocabulary() *Vocabulary {
	return &Vocabulary{
		Index: map[string]int{PadToken: 0},
		Words: []string{PadToken},
	}
}

// Add returns the index for word, inserting it if unseen.
func (v *Vocabulary) Add(word string) int {
	if idx, ok := v.Index[word]; ok {
		return idx
	}
	idx := len(v.Words)
	v.Index[word] = idx
	v.Words = append(v.Words, word)
	return idx
}

func (v *Vocabulary) Len() int { return len(v.Words) }

// Example is one question pair, parsed and padded to the model's
// sequence length. Words holds the padded tokens (used as plot tick
// labels), Indices the corresponding embedding rows.
type Example struct {
	Question1 string
	Question2 string
	Words1    []string
	Words2    []string
	Indices1  []int
	Indices2  []int
	Label     *int // is_duplicate when the column is present
}

// Dataset is a parsed examples file plus the vocabulary built from it.
type Dataset struct {
	Examples  []Example
	Vocab     *Vocabulary
	MaxLength int
}

// LoadDataset reads a question-pair CSV. The header must name
// question1 and question2 columns; is_duplicate is optional. Every
// question is tokenized, stripped of stop words and padded or
// truncated to maxLength.
func LoadDataset(path string, maxLength int) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open examples file: %w", err)
	}
	defer f.Close()
	return ReadDataset(f, maxLength)
}

// ReadDataset parses question-pair CSV records from r.
func ReadDataset(r io.Reader, maxLength int) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // ragged trailing columns tolerated

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	q1Col, ok1 := cols["question1"]
	q2Col, ok2 := cols["question2"]
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("examples CSV must have question1 and question2 columns, got %v", header)
	}
	labelCol, hasLabel := cols["is_duplicate"]

	ds := &Dataset{Vocab: NewVocabulary(), MaxLength: maxLength}
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV record: %w", err)
		}
		line++
		if q1Col >= len(record) || q2Col >= len(record) {
			return nil, fmt.Errorf("line %d: missing question columns", line)
		}

		ex := Example{
			Question1: record[q1Col],
			Question2: record[q2Col],
		}
		ex.Words1, ex.Indices1 = ds.index(ex.Question1)
		ex.Words2, ex.Indices2 = ds.index(ex.Question2)

		if hasLabel && labelCol < len(record) && record[labelCol] != "" {
			label, err := strconv.Atoi(strings.TrimSpace(record[labelCol]))
			if err != nil {
				return nil, fmt.Errorf("line %d: bad is_duplicate value %q", line, record[labelCol])
			}
			ex.Label = &label
		}
		ds.Examples = append(ds.Examples, ex)
	}
	return ds, nil
}

// index tokenizes one question and converts it to padded embedding
// indices, growing the vocabulary as new words appear.
func (ds *Dataset) index(question string) ([]string, []int) {
	words := RemoveStopWords(Tokenize(question))
	if len(words) > ds.MaxLength {
		words = words[:ds.MaxLength]
	}
	indices := make([]int, 0, ds.MaxLength)
	for _, w := range words {
		indices = append(indices, ds.Vocab.Add(w))
	}
	for len(indices) < ds.MaxLength {
		words = append(words, PadToken)
		indices = append(indices, 0)
	}
	return words, indices
}
