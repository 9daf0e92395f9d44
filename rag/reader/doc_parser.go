package reader

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aqua777/docquery/schema"
	"github.com/richardlehane/mscfb"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Word 97-2003 File Information Block offsets.
const (
	fibIdent          = 0xA5EC
	fibOffsetFlags    = 0x000A
	fibOffsetCcpText  = 0x004C
	fibOffsetFcClx    = 0x01A2
	fibOffsetLcbClx   = 0x01A6
	fibFlagEncrypted  = 0x0100
	fibFlagWhichTable = 0x0200
	fcCompressedBit   = 0x40000000
	fcMask            = 0x3FFFFFFF
)

// ErrEncryptedDocument is returned for password protected Word documents.
var ErrEncryptedDocument = errors.New("encrypted documents are not supported")

// DocParser reads legacy Word 97-2003 (.doc) documents. The main document
// text is reassembled from the piece table; field instructions are dropped
// and field results kept.
type DocParser struct{}

// NewDocParser creates a DocParser.
func NewDocParser() *DocParser {
	return &DocParser{}
}

func (p *DocParser) Parse(ctx context.Context, blob Blob) ([]schema.Node, error) {
	streams, err := readCompoundStreams(blob.Data, "WordDocument", "0Table", "1Table")
	if err != nil {
		return nil, err
	}

	text, err := extractDocText(streams)
	if err != nil {
		return nil, err
	}
	return []schema.Node{newDocumentNode(text, nil)}, nil
}

func readCompoundStreams(data []byte, names ...string) (map[string][]byte, error) {
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open compound file: %w", err)
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	streams := make(map[string][]byte)
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if !wanted[entry.Name] || len(entry.Path) > 0 {
			continue
		}
		if _, seen := streams[entry.Name]; seen {
			continue
		}
		buf, err := io.ReadAll(entry)
		if err != nil {
			return nil, fmt.Errorf("failed to read stream %s: %w", entry.Name, err)
		}
		streams[entry.Name] = buf
	}
	return streams, nil
}

func extractDocText(streams map[string][]byte) (string, error) {
	wordDoc, ok := streams["WordDocument"]
	if !ok {
		return "", fmt.Errorf("not a Word document: WordDocument stream missing")
	}
	if len(wordDoc) < fibOffsetLcbClx+4 {
		return "", fmt.Errorf("WordDocument stream too short")
	}
	if binary.LittleEndian.Uint16(wordDoc) != fibIdent {
		return "", fmt.Errorf("invalid Word document signature")
	}

	flags := binary.LittleEndian.Uint16(wordDoc[fibOffsetFlags:])
	if flags&fibFlagEncrypted != 0 {
		return "", ErrEncryptedDocument
	}
	tableName := "0Table"
	if flags&fibFlagWhichTable != 0 {
		tableName = "1Table"
	}
	table, ok := streams[tableName]
	if !ok {
		return "", fmt.Errorf("table stream %s missing", tableName)
	}

	ccpText := binary.LittleEndian.Uint32(wordDoc[fibOffsetCcpText:])
	fcClx := binary.LittleEndian.Uint32(wordDoc[fibOffsetFcClx:])
	lcbClx := binary.LittleEndian.Uint32(wordDoc[fibOffsetLcbClx:])
	if uint64(fcClx)+uint64(lcbClx) > uint64(len(table)) {
		return "", fmt.Errorf("piece table out of range")
	}

	plcPcd, err := findPlcPcd(table[fcClx : fcClx+lcbClx])
	if err != nil {
		return "", err
	}

	raw, err := readPieces(wordDoc, plcPcd, ccpText)
	if err != nil {
		return "", err
	}
	return cleanDocText(raw), nil
}

// findPlcPcd skips the Prc entries of a Clx and returns the PlcPcd payload.
func findPlcPcd(clx []byte) ([]byte, error) {
	for i := 0; i < len(clx); {
		switch clx[i] {
		case 0x01:
			if i+3 > len(clx) {
				return nil, fmt.Errorf("truncated Prc")
			}
			cb := int(int16(binary.LittleEndian.Uint16(clx[i+1:])))
			if cb < 0 {
				return nil, fmt.Errorf("invalid Prc size")
			}
			i += 3 + cb
		case 0x02:
			if i+5 > len(clx) {
				return nil, fmt.Errorf("truncated Pcdt")
			}
			lcb := int(binary.LittleEndian.Uint32(clx[i+1:]))
			if i+5+lcb > len(clx) {
				return nil, fmt.Errorf("truncated PlcPcd")
			}
			return clx[i+5 : i+5+lcb], nil
		default:
			return nil, fmt.Errorf("unexpected Clx entry 0x%02x", clx[i])
		}
	}
	return nil, fmt.Errorf("piece table not found")
}

func readPieces(wordDoc, plcPcd []byte, ccpText uint32) (string, error) {
	// PlcPcd holds n+1 character positions followed by n 8-byte piece descriptors.
	if len(plcPcd) < 4 || (len(plcPcd)-4)%12 != 0 {
		return "", fmt.Errorf("invalid PlcPcd size %d", len(plcPcd))
	}
	n := (len(plcPcd) - 4) / 12
	pcdBase := (n + 1) * 4

	cp1252 := charmap.Windows1252.NewDecoder()
	utf16 := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()

	var sb strings.Builder
	for i := 0; i < n; i++ {
		cpStart := binary.LittleEndian.Uint32(plcPcd[i*4:])
		cpEnd := binary.LittleEndian.Uint32(plcPcd[(i+1)*4:])
		if cpStart >= ccpText {
			break
		}
		if cpEnd > ccpText {
			cpEnd = ccpText
		}
		if cpEnd <= cpStart {
			continue
		}
		count := int(cpEnd - cpStart)

		fc := binary.LittleEndian.Uint32(plcPcd[pcdBase+i*8+2:])
		var (
			offset int
			size   int
			dec    *encoding.Decoder
		)
		if fc&fcCompressedBit != 0 {
			offset, size, dec = int(fc&fcMask)/2, count, cp1252
		} else {
			offset, size, dec = int(fc&fcMask), count*2, utf16
		}
		if offset+size > len(wordDoc) {
			return "", fmt.Errorf("piece %d out of range", i)
		}
		decoded, err := dec.Bytes(wordDoc[offset : offset+size])
		if err != nil {
			return "", fmt.Errorf("failed to decode piece %d: %w", i, err)
		}
		sb.Write(decoded)
	}
	return sb.String(), nil
}

// cleanDocText maps Word control characters to plain text.
func cleanDocText(raw string) string {
	var (
		sb     strings.Builder
		fields []bool // true while inside a field instruction
	)
	inInstruction := func() bool {
		for _, f := range fields {
			if f {
				return true
			}
		}
		return false
	}

	for _, r := range raw {
		switch r {
		case 0x13: // field begin
			fields = append(fields, true)
			continue
		case 0x14: // field separator
			if len(fields) > 0 {
				fields[len(fields)-1] = false
			}
			continue
		case 0x15: // field end
			if len(fields) > 0 {
				fields = fields[:len(fields)-1]
			}
			continue
		}
		if inInstruction() {
			continue
		}
		switch r {
		case '\r', 0x0B, 0x0C:
			sb.WriteByte('\n')
		case 0x07:
			sb.WriteByte('\t')
		case '\t', '\n':
			sb.WriteRune(r)
		default:
			if r >= 0x20 {
				sb.WriteRune(r)
			}
		}
	}
	return strings.TrimSpace(sb.String())
}

var _ Parser = (*DocParser)(nil)
