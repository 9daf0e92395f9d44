package reader

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aqua777/docquery/schema"
)

// DocxParser reads Microsoft Word (.docx) documents.
type DocxParser struct {
	// ExtractMetadata copies document properties (author, title, etc.) into metadata.
	ExtractMetadata bool
	// ExtractTables includes table content, one row per line.
	ExtractTables bool
}

// NewDocxParser creates a DocxParser with metadata and table extraction enabled.
func NewDocxParser() *DocxParser {
	return &DocxParser{
		ExtractMetadata: true,
		ExtractTables:   true,
	}
}

func (p *DocxParser) Parse(ctx context.Context, blob Blob) ([]schema.Node, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(blob.Data), int64(len(blob.Data)))
	if err != nil {
		return nil, fmt.Errorf("failed to read DOCX: %w", err)
	}

	metadata := make(map[string]interface{})
	if p.ExtractMetadata {
		props, err := extractCoreProperties(zipReader)
		if err == nil {
			for k, v := range props {
				metadata[k] = v
			}
		}
	}

	text, err := p.extractDocumentText(zipReader)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}

	return []schema.Node{newDocumentNode(text, metadata)}, nil
}

func openZipEntry(zipReader *zip.Reader, name string) (io.ReadCloser, error) {
	for _, file := range zipReader.File {
		if file.Name == name {
			return file.Open()
		}
	}
	return nil, fmt.Errorf("%s not found in DOCX", name)
}

// extractDocumentText walks word/document.xml as a token stream so that
// paragraphs and tables keep their document order.
func (p *DocxParser) extractDocumentText(zipReader *zip.Reader) (string, error) {
	rc, err := openZipEntry(zipReader, "word/document.xml")
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var (
		parts      []string
		para       strings.Builder
		inText     bool
		tableDepth int
		cell       []string
		row        []string
		rows       []string
	)

	decoder := xml.NewDecoder(rc)
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("invalid document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				para.WriteByte('\t')
			case "br", "cr":
				para.WriteByte('\n')
			case "tbl":
				tableDepth++
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				text := strings.TrimSpace(para.String())
				para.Reset()
				if text == "" {
					continue
				}
				if tableDepth > 0 {
					cell = append(cell, text)
				} else {
					parts = append(parts, text)
				}
			case "tc":
				row = append(row, strings.Join(cell, " "))
				cell = nil
			case "tr":
				if len(row) > 0 {
					rows = append(rows, strings.Join(row, " | "))
				}
				row = nil
			case "tbl":
				tableDepth--
				if tableDepth == 0 {
					if p.ExtractTables && len(rows) > 0 {
						parts = append(parts, strings.Join(rows, "\n"))
					}
					rows = nil
				}
			}
		}
	}

	return strings.Join(parts, "\n\n"), nil
}

// coreProperties represents docProps/core.xml
type coreProperties struct {
	XMLName     xml.Name `xml:"coreProperties"`
	Title       string   `xml:"title"`
	Subject     string   `xml:"subject"`
	Creator     string   `xml:"creator"`
	Keywords    string   `xml:"keywords"`
	Description string   `xml:"description"`
	LastModBy   string   `xml:"lastModifiedBy"`
	Created     string   `xml:"created"`
	Modified    string   `xml:"modified"`
}

func extractCoreProperties(zipReader *zip.Reader) (map[string]interface{}, error) {
	rc, err := openZipEntry(zipReader, "docProps/core.xml")
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var core coreProperties
	if err := xml.NewDecoder(rc).Decode(&core); err != nil {
		return nil, err
	}

	props := make(map[string]interface{})
	for key, value := range map[string]string{
		schema.MetadataTitle: core.Title,
		"subject":            core.Subject,
		"author":             core.Creator,
		"keywords":           core.Keywords,
		"description":        core.Description,
		"last_modified_by":   core.LastModBy,
		"created":            core.Created,
		"modified":           core.Modified,
	} {
		if value != "" {
			props[key] = value
		}
	}
	return props, nil
}

var _ Parser = (*DocxParser)(nil)
