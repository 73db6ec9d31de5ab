package contacts

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"voice-campaign/pkg/models"
)

// "1465. MARIA LOPEZ - +34600111222"
var simpleLine = regexp.MustCompile(`^(\d+)\.\s*(.+?)\s*-\s*(\+?\d+)$`)

// Column order of the full CSV export.
const (
	colID = iota
	colDNI
	colName
	colPhone
	colEmail
	colAddress
	colPostalCode
	colIBAN
)

const minCSVFields = 4

// ParseFile reads the contact list at path.
// An unreadable file is an error; unparseable rows are skipped.
func ParseFile(path string) ([]models.Contact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open contact list: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads one contact per line, preserving input order.
func Parse(r io.Reader) ([]models.Contact, error) {
	var out []models.Contact
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if c, ok := ParseLine(scanner.Text()); ok {
			out = append(out, c)
		}
	}
	if err := scanner.Err(); err != nil {
		return out, fmt.Errorf("read contact list: %w", err)
	}
	return out, nil
}

// ParseLine parses a single row in either the numbered "id. name - phone"
// shape or the comma separated shape. ok is false for blank, header and
// malformed rows, and for rows without a phone.
func ParseLine(line string) (c models.Contact, ok bool) {
	line = strings.TrimSpace(strings.TrimPrefix(line, "\ufeff"))
	if line == "" {
		return c, false
	}

	if m := simpleLine.FindStringSubmatch(line); m != nil {
		id, _ := strconv.Atoi(m[1])
		c = models.Contact{
			ID:       id,
			FullName: strings.TrimSpace(m[2]),
			Phone:    strings.TrimSpace(m[3]),
		}
		return c, c.Phone != ""
	}

	values := SplitCSVLine(line)
	if len(values) < minCSVFields || isHeader(values) {
		return c, false
	}

	id, _ := strconv.Atoi(field(values, colID))
	c = models.Contact{
		ID:               id,
		FullName:         field(values, colName),
		Phone:            stripSpaces(field(values, colPhone)),
		Email:            strings.ToUpper(field(values, colEmail)),
		Address:          field(values, colAddress),
		PostalCode:       field(values, colPostalCode),
		MaskedIDSuffix:   MaskTail(strings.ToUpper(stripSpaces(field(values, colDNI))), 2, 6),
		MaskedIBANSuffix: MaskTail(stripSpaces(field(values, colIBAN)), 4, 4),
	}
	return c, c.Phone != ""
}

// SplitCSVLine splits on commas that are not inside double quotes.
// Quotes are removed and every field is trimmed.
func SplitCSVLine(line string) []string {
	var (
		out     []string
		current strings.Builder
		quoted  bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
		case r == ',' && !quoted:
			out = append(out, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	return append(out, strings.TrimSpace(current.String()))
}

// MaskTail keeps the last keep characters of v behind stars asterisks.
func MaskTail(v string, keep, stars int) string {
	if v == "" {
		return ""
	}
	runes := []rune(v)
	if len(runes) > keep {
		runes = runes[len(runes)-keep:]
	}
	return strings.Repeat("*", stars) + string(runes)
}

// Column labels that mark a header row.
var headerLabels = map[string]bool{
	"id": true, "dni": true, "nombre": true, "name": true,
	"telefono": true, "teléfono": true, "phone": true,
}

// isHeader reports whether any of the leading fields holds a column label
// as a whole word, e.g. "ID", "id_cliente" or "Teléfono".
func isHeader(values []string) bool {
	for _, v := range values[:minCSVFields] {
		words := strings.FieldsFunc(strings.ToLower(v), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, w := range words {
			if headerLabels[w] {
				return true
			}
		}
	}
	return false
}

func field(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}

func stripSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}
