// Package extractor reads PDF, DOCX and TXT files into plain text.
package extractor

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"docrag/internal/domain"
	"docrag/internal/logger"
)

// readFunc extracts the text of one file format. It returns a plain error;
// Extract maps it onto the pipeline taxonomy.
type readFunc func(path string) (string, error)

// errNoText marks a document that parsed but held no text.
var errNoText = errors.New("no extractable text")

// Extractor dispatches on file extension.
type Extractor struct {
	readers map[string]readFunc
	logger  *zap.Logger
}

// New creates an Extractor for .pdf, .docx and .txt files.
func New(log *zap.Logger) *Extractor {
	return &Extractor{
		readers: map[string]readFunc{
			".pdf":  readPDF,
			".docx": readDOCX,
			".txt":  readTXT,
		},
		logger: logger.OrNop(log),
	}
}

// SupportedExtensions lists the accepted extensions in sorted order.
func (e *Extractor) SupportedExtensions() []string {
	exts := make([]string, 0, len(e.readers))
	for ext := range e.readers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Extract returns the normalized text of doc. The file must exist before the
// extension is looked at; unknown extensions are rejected without parsing.
func (e *Extractor) Extract(doc domain.Document) (string, error) {
	info, err := os.Stat(doc.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", domain.NewError(domain.StageRead, domain.KindFileNotFound,
				"file not found at path: %s", doc.Path)
		}
		return "", domain.WrapError(domain.StageRead, domain.KindExtractionFailed, err,
			"could not access %s", doc.Path)
	}
	if info.IsDir() {
		return "", domain.NewError(domain.StageRead, domain.KindFileNotFound,
			"file not found at path: %s (path is a directory)", doc.Path)
	}

	read, ok := e.readers[doc.Ext]
	if !ok {
		return "", domain.NewError(domain.StageRead, domain.KindUnsupportedFormat,
			"unsupported file type: %s. Only %s are supported", displayExt(doc.Ext), e.supportedList())
	}

	text, err := read(doc.Path)
	if err != nil {
		if errors.Is(err, errNoText) {
			return "", domain.NewError(domain.StageRead, domain.KindEmptyExtraction,
				"no text could be extracted from %s", doc.Path)
		}
		return "", domain.WrapError(domain.StageRead, domain.KindExtractionFailed, err,
			"failed to read %s", doc.Path)
	}

	e.logger.Debug("document extracted",
		zap.String("path", doc.Path),
		zap.String("format", doc.Ext),
		zap.Int("chars", len([]rune(text))),
	)
	return text, nil
}

func (e *Extractor) supportedList() string {
	exts := e.SupportedExtensions()
	if len(exts) < 2 {
		return strings.Join(exts, "")
	}
	return fmt.Sprintf("%s, and %s", strings.Join(exts[:len(exts)-1], ", "), exts[len(exts)-1])
}

func displayExt(ext string) string {
	if ext == "" {
		return "(none)"
	}
	return ext
}
