// Package sniffer detects the layout of a published sales sheet export:
// delimiter, header row and a fingerprint of the header set.
package sniffer

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"unicode"
)

// Header keywords seen in venue sheets (Spanish first, English aliases).
var headerKeywords = []string{
	"fecha", "timestamp", "hora", "cliente", "mesa", "total", "costo", "ganancia",
	"metodo", "método", "pago", "forma", "items", "detalle", "producto", "cantidad", "precio",
	"date", "customer", "table", "cost", "profit", "payment", "qty", "price",
}

// maxHeaderScan bounds how many leading lines may hold metadata before the header.
const maxHeaderScan = 20

// FileConfig holds the detected layout of a delimited export.
type FileConfig struct {
	Delimiter   rune       // field delimiter
	SkipLines   int        // metadata lines before the header row
	Headers     []string   // header names, trimmed
	Fingerprint string     // SHA256 of the normalized header names
	SampleRows  [][]string // first data rows, for diagnostics
}

// DetectOptions overrides header row or delimiter detection.
type DetectOptions struct {
	// HeaderRowIndex is a 0-based index for the header row. Set to -1 to auto-detect.
	HeaderRowIndex int
	// Delimiter overrides the detected delimiter when non-zero.
	Delimiter rune
}

var (
	ErrEmptyFile        = errors.New("file is empty")
	ErrNoHeadersFound   = errors.New("could not find data headers")
	ErrInvalidDelimiter = errors.New("could not detect valid delimiter")
)

// DetectConfig analyzes a delimited export and returns its layout.
func DetectConfig(data []byte) (*FileConfig, error) {
	return DetectConfigWithOptions(data, nil)
}

// DetectConfigWithOptions analyzes a delimited export with optional overrides.
func DetectConfigWithOptions(data []byte, opts *DetectOptions) (*FileConfig, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	lines := strings.Split(string(data), "\n")

	var (
		delimiter rune
		skipLines int
		err       error
	)
	if opts != nil && opts.HeaderRowIndex >= 0 {
		if opts.HeaderRowIndex >= len(lines) {
			return nil, ErrNoHeadersFound
		}
		skipLines = opts.HeaderRowIndex
		delimiter = opts.Delimiter
		if delimiter == 0 {
			delimiter, _ = detectDelimiter(cleanLine(lines[skipLines], skipLines == 0))
			if delimiter == 0 {
				return nil, ErrInvalidDelimiter
			}
		}
	} else {
		delimiter, skipLines, err = findHeaderRow(lines)
		if err != nil {
			return nil, err
		}
		if opts != nil && opts.Delimiter != 0 {
			delimiter = opts.Delimiter
		}
	}

	reader := csv.NewReader(strings.NewReader(cleanLine(lines[skipLines], skipLines == 0)))
	reader.Comma = delimiter
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		return nil, err
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	return &FileConfig{
		Delimiter:   delimiter,
		SkipLines:   skipLines,
		Headers:     headers,
		Fingerprint: Fingerprint(headers),
		SampleRows:  getSampleRows(data, delimiter, skipLines+1, 5),
	}, nil
}

// findHeaderRow locates the header row and its delimiter. Lines carrying
// header keywords win over plain lines; more columns win among equals.
func findHeaderRow(lines []string) (rune, int, error) {
	fallbackIndex, fallbackCount := -1, 0
	fallbackDelimiter := rune(0)

	keywordIndex, keywordScore, keywordCount := -1, 0, 0
	keywordDelimiter := rune(0)

	for i, line := range lines {
		if i > maxHeaderScan {
			break
		}
		line = cleanLine(line, i == 0)
		if line == "" {
			continue
		}

		delimiter, count := detectDelimiter(line)
		if count < 1 {
			continue
		}

		lineLower := strings.ToLower(line)
		matches := 0
		for _, kw := range headerKeywords {
			if strings.Contains(lineLower, kw) {
				matches++
			}
		}

		if matches > 0 {
			score := count*10 + matches
			if keywordIndex == -1 || score > keywordScore {
				keywordIndex, keywordScore, keywordCount = i, score, count
				keywordDelimiter = delimiter
			}
			continue
		}
		if count > fallbackCount {
			fallbackIndex, fallbackCount = i, count
			fallbackDelimiter = delimiter
		}
	}

	if keywordIndex >= 0 && keywordCount >= 1 {
		return keywordDelimiter, keywordIndex, nil
	}
	if fallbackIndex >= 0 && fallbackCount >= 1 {
		return fallbackDelimiter, fallbackIndex, nil
	}
	return 0, 0, ErrNoHeadersFound
}

func cleanLine(line string, firstLine bool) string {
	line = strings.TrimRight(line, "\r")
	if firstLine {
		line = strings.TrimPrefix(line, "\uFEFF")
	}
	return strings.TrimSpace(line)
}

// detectDelimiter picks the candidate occurring most often outside quotes.
func detectDelimiter(line string) (rune, int) {
	unquoted := stripQuoted(line)
	best, bestCount := rune(0), 0
	for _, d := range []rune{',', ';', '\t', '|'} {
		if count := strings.Count(unquoted, string(d)); count > bestCount {
			best, bestCount = d, count
		}
	}
	return best, bestCount
}

func stripQuoted(line string) string {
	var b strings.Builder
	inQuotes := false
	for _, r := range line {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Fingerprint hashes the normalized header names so a changed sheet layout
// shows up in load diagnostics.
func Fingerprint(headers []string) string {
	normalized := make([]string, 0, len(headers))
	for _, h := range headers {
		clean := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return unicode.ToLower(r)
			}
			return -1
		}, h)
		if clean != "" {
			normalized = append(normalized, clean)
		}
	}
	hash := sha256.Sum256([]byte(strings.Join(normalized, "|")))
	return hex.EncodeToString(hash[:])
}

// getSampleRows returns up to maxRows records starting at record startLine.
func getSampleRows(data []byte, delimiter rune, startLine, maxRows int) [][]string {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var rows [][]string
	for n := 0; len(rows) < maxRows; n++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if n >= startLine {
			rows = append(rows, record)
		}
	}
	return rows
}
