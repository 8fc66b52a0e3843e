package pdfinspect

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrNotPDF is returned for uploads that do not even start like a PDF.
var ErrNotPDF = errors.New("file is not a PDF document")

func init() {
	// pdfcpu must not create its config dir under $HOME inside a server process
	api.DisableConfigDir()
}

// Inspector reads PDF structure locally with pdfcpu; it never extracts text.
type Inspector struct {
	conf *model.Configuration
}

func New() *Inspector {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Inspector{conf: conf}
}

// PageCount returns the number of pages or an error when pdfcpu cannot read the document.
func (i *Inspector) PageCount(ctx context.Context, pdf []byte) (n int, err error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if !bytes.HasPrefix(bytes.TrimLeft(pdf, "\x00\t\r\n "), []byte("%PDF-")) {
		return 0, ErrNotPDF
	}
	// pdfcpu can panic on malformed input
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("read pdf: %v", r)
		}
	}()
	n, err = api.PageCount(bytes.NewReader(pdf), i.conf)
	if err != nil {
		return 0, fmt.Errorf("read pdf: %w", err)
	}
	return n, nil
}
