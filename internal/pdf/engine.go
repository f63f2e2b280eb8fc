// Package pdf implements the document transform engine: merge and split of
// whole in-memory PDF documents via pdfcpu.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrTooFewDocuments rejects merge calls with fewer than two inputs.
var ErrTooFewDocuments = errors.New("at least 2 PDF files are required for merging")

// DecodeError reports an input document that could not be read as a PDF.
type DecodeError struct {
	Name string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to process file: %s", e.Name)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Document is one in-memory input PDF.
type Document struct {
	Name string
	Data []byte
}

// MergeOutput is the merged document plus its final page count.
type MergeOutput struct {
	Data      []byte
	PageCount int
}

// Piece is one split output document. Label is the 1-based page reference,
// e.g. "3" or "2-4".
type Piece struct {
	Data  []byte
	Label string
}

// SplitRequest selects the split strategy.
type SplitRequest struct {
	Mode       string
	PageRanges string
	Interval   int
}

// SplitOutput carries the produced pieces and the source page count.
type SplitOutput struct {
	Pieces     []Piece
	TotalPages int
}

// Engine performs page-level PDF manipulation on byte buffers.
type Engine struct {
	conf *model.Configuration
}

// NewEngine returns an engine with default pdfcpu configuration.
func NewEngine() *Engine {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Engine{conf: conf}
}

// Merge concatenates the documents in submitted order. All-or-nothing: a
// decode failure on any input aborts the whole merge naming the offending
// file, and no partial output is produced.
func (e *Engine) Merge(docs []Document) (*MergeOutput, error) {
	if len(docs) < 2 {
		return nil, ErrTooFewDocuments
	}

	totalPages := 0
	readers := make([]io.ReadSeeker, 0, len(docs))
	for _, doc := range docs {
		n, err := api.PageCount(bytes.NewReader(doc.Data), e.conf)
		if err != nil {
			return nil, &DecodeError{Name: doc.Name, Err: err}
		}
		totalPages += n
		readers = append(readers, bytes.NewReader(doc.Data))
	}

	var buf bytes.Buffer
	if err := api.MergeRaw(readers, &buf, false, e.conf); err != nil {
		return nil, fmt.Errorf("merge documents: %w", err)
	}

	return &MergeOutput{Data: buf.Bytes(), PageCount: totalPages}, nil
}

// Split produces one or more documents from the source according to the
// requested mode. A source decode failure aborts the split; a request with
// missing or invalid mode parameters yields zero pieces without error.
func (e *Engine) Split(doc Document, req SplitRequest) (*SplitOutput, error) {
	total, err := api.PageCount(bytes.NewReader(doc.Data), e.conf)
	if err != nil {
		return nil, &DecodeError{Name: doc.Name, Err: err}
	}

	var groups []pageGroup
	// Range and interval pieces are labeled as a span even when they hold a
	// single page ("4-4", "5-5"); only mode "all" uses bare page numbers.
	label := pageGroup.spanLabel
	switch req.Mode {
	case "all":
		label = pageGroup.shortLabel
		groups = make([]pageGroup, 0, total)
		for p := 1; p <= total; p++ {
			groups = append(groups, pageGroup{start: p, end: p})
		}
	case "range":
		if req.PageRanges != "" {
			groups = parsePageGroups(req.PageRanges, total)
		}
	case "interval":
		if req.Interval > 0 {
			groups = intervalGroups(req.Interval, total)
		}
	}

	pieces := make([]Piece, 0, len(groups))
	for _, g := range groups {
		var buf bytes.Buffer
		if err := api.Trim(bytes.NewReader(doc.Data), &buf, []string{g.selection()}, e.conf); err != nil {
			return nil, fmt.Errorf("extract pages %s: %w", g.selection(), err)
		}
		pieces = append(pieces, Piece{Data: buf.Bytes(), Label: label(g)})
	}

	return &SplitOutput{Pieces: pieces, TotalPages: total}, nil
}

// pageGroup is a 1-based inclusive page span.
type pageGroup struct {
	start int
	end   int
}

func (g pageGroup) selection() string {
	if g.start == g.end {
		return strconv.Itoa(g.start)
	}
	return fmt.Sprintf("%d-%d", g.start, g.end)
}

func (g pageGroup) shortLabel() string {
	return g.selection()
}

func (g pageGroup) spanLabel() string {
	return fmt.Sprintf("%d-%d", g.start, g.end)
}

func intervalGroups(k, total int) []pageGroup {
	if k < 1 {
		return nil
	}
	groups := make([]pageGroup, 0, (total+k-1)/k)
	for start := 1; start <= total; start += k {
		end := start + k - 1
		if end > total {
			end = total
		}
		groups = append(groups, pageGroup{start: start, end: end})
	}
	return groups
}
