package extractor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/domain"
)

func extract(t *testing.T, path string) (string, error) {
	t.Helper()
	return New(nil).Extract(domain.NewDocument("doc", path))
}

func TestExtract_TXTVerbatim(t *testing.T) {
	dir := t.TempDir()
	content := "The sky is blue.\n\nThe grass is green. Ünïcödé ✓"
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	text, err := extract(t, path)
	require.NoError(t, err)
	assert.Equal(t, content, text)
}

func TestExtract_TXTEmptyIsValid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	text, err := extract(t, path)
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestExtract_TXTInvalidUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latin1.txt")
	require.NoError(t, os.WriteFile(path, []byte{'c', 'a', 'f', 0xe9}, 0644))

	text, err := extract(t, path)
	require.NoError(t, err)
	assert.Equal(t, "caf�", text)
}

func TestExtract_UppercaseExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "README.TXT")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	text, err := extract(t, path)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestExtract_FileNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.pdf")

	_, err := extract(t, path)
	require.Error(t, err)
	assert.Equal(t, domain.KindFileNotFound, domain.KindOf(err))
	assert.Contains(t, err.Error(), path)
}

func TestExtract_MissingUnsupportedFileIsNotFound(t *testing.T) {
	// existence is checked before the extension
	_, err := extract(t, filepath.Join(t.TempDir(), "missing.csv"))
	assert.Equal(t, domain.KindFileNotFound, domain.KindOf(err))
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0644))

	_, err := extract(t, path)
	require.Error(t, err)
	assert.Equal(t, domain.KindUnsupportedFormat, domain.KindOf(err))
	assert.Contains(t, err.Error(), ".csv")
	assert.Contains(t, err.Error(), ".pdf")
}

func TestExtract_DOCXParagraphs(t *testing.T) {
	body := `<w:p><w:r><w:t>Quarterly</w:t></w:r><w:r><w:t xml:space="preserve"> report</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Revenue</w:t><w:tab/><w:t>up</w:t></w:r></w:p>` +
		`<w:p/>` +
		`<w:p><w:r><w:t>Line one</w:t><w:br/><w:t>Line two</w:t></w:r><w:r><w:delText>gone</w:delText></w:r></w:p>`
	path := writeDOCX(t, t.TempDir(), "report.docx", body)

	text, err := extract(t, path)
	require.NoError(t, err)
	assert.Equal(t, "Quarterly report\nRevenue\tup\n\nLine one\nLine two", text)
}

func TestExtract_DOCXEmpty(t *testing.T) {
	path := writeDOCX(t, t.TempDir(), "blank.docx", `<w:p/><w:p><w:r/></w:p>`)

	_, err := extract(t, path)
	assert.Equal(t, domain.KindEmptyExtraction, domain.KindOf(err))
}

func TestExtract_DOCXNotAnArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.docx")
	require.NoError(t, os.WriteFile(path, []byte("plain text pretending"), 0644))

	_, err := extract(t, path)
	assert.Equal(t, domain.KindExtractionFailed, domain.KindOf(err))
}

func TestExtract_PDFPages(t *testing.T) {
	path := writePDF(t, t.TempDir(), "deck.pdf", "The sky is blue.", "", "The grass is green.")

	text, err := extract(t, path)
	require.NoError(t, err)
	assert.Contains(t, text, "The sky is blue.")
	assert.Contains(t, text, "The grass is green.")
	assert.Less(t, strings.Index(text, "sky"), strings.Index(text, "grass"))
	assert.True(t, text[len(text)-1] == '\n', "every page ends with a newline")
}

func TestExtract_PDFWithoutText(t *testing.T) {
	path := writePDF(t, t.TempDir(), "scan.pdf", "")

	_, err := extract(t, path)
	assert.Equal(t, domain.KindEmptyExtraction, domain.KindOf(err))
}

func TestExtract_PDFCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\nnot really"), 0644))

	_, err := extract(t, path)
	assert.Equal(t, domain.KindExtractionFailed, domain.KindOf(err))
}

func TestSupportedExtensions(t *testing.T) {
	assert.Equal(t, []string{".docx", ".pdf", ".txt"}, New(nil).SupportedExtensions())
}
