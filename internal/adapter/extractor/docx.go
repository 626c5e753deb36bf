package extractor

import (
	"archive/zip"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
)

const docxBody = "word/document.xml"

// readDOCX returns the body paragraphs of a Word document joined with "\n".
func readDOCX(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("failed to open docx archive: %w", err)
	}
	defer zr.Close()

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == docxBody {
			body = f
			break
		}
	}
	if body == nil {
		return "", fmt.Errorf("docx archive has no %s", docxBody)
	}

	rc, err := body.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", docxBody, err)
	}
	defer rc.Close()

	doc, err := xmlquery.Parse(rc)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", docxBody, err)
	}

	paragraphs := xmlquery.Find(doc, "//*[local-name()='body']/*[local-name()='p']")
	lines := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		var sb strings.Builder
		paragraphText(p, &sb)
		lines = append(lines, sb.String())
	}

	text := strings.Join(lines, "\n")
	if strings.TrimSpace(text) == "" {
		return "", errNoText
	}
	return text, nil
}

// paragraphText writes the visible text of the runs below n.
func paragraphText(n *xmlquery.Node, sb *strings.Builder) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		switch c.Data {
		case "t":
			sb.WriteString(c.InnerText())
		case "tab":
			sb.WriteString("\t")
		case "br", "cr":
			sb.WriteString("\n")
		case "delText", "instrText":
			// tracked deletions and field codes are not visible text
		default:
			paragraphText(c, sb)
		}
	}
}
