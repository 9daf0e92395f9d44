package reader

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MIME types handled by the default registry.
const (
	MimeTypeText  = "text/plain"
	MimeTypePDF   = "application/pdf"
	MimeTypeDocx  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeTypeDoc   = "application/msword"
	MimeTypeHTML  = "text/html"
	MimeTypeJSON  = "application/json"
	MimeTypePNG   = "image/png"
	MimeTypeJPEG  = "image/jpeg"
	MimeTypeTIFF  = "image/tiff"
	MimeTypeBMP   = "image/bmp"
	mimeTypeOctet = "application/octet-stream"
)

var extensionMimeTypes = map[string]string{
	".txt":  MimeTypeText,
	".pdf":  MimeTypePDF,
	".docx": MimeTypeDocx,
	".doc":  MimeTypeDoc,
	".html": MimeTypeHTML,
	".htm":  MimeTypeHTML,
	".json": MimeTypeJSON,
	".png":  MimeTypePNG,
	".jpg":  MimeTypeJPEG,
	".jpeg": MimeTypeJPEG,
	".tiff": MimeTypeTIFF,
	".bmp":  MimeTypeBMP,
}

// ResolveMIMEType determines the MIME type of a file. The extension table wins;
// otherwise the content signature is sniffed. Parameters such as charset are
// dropped from the result.
func ResolveMIMEType(filename string, content []byte) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if mt, ok := extensionMimeTypes[ext]; ok {
		return mt
	}

	detected, _, _ := strings.Cut(mimetype.Detect(content).String(), ";")
	detected = strings.TrimSpace(detected)

	if detected == mimeTypeOctet {
		if mt, ok := extensionMimeTypes[ext]; ok {
			return mt
		}
	}
	return detected
}

// SupportedExtensions returns the file extensions of the extension table, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(extensionMimeTypes))
	for ext := range extensionMimeTypes {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
