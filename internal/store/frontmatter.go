package store

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

const frontmatterDelim = "---"

// splitFrontmatter separates a "---\nyaml\n---\nbody" document into its raw
// YAML block and body text. A document with no frontmatter delimiters is
// treated as body-only (empty frontmatter).
func splitFrontmatter(data []byte) (fm []byte, body string, err error) {
	text := string(data)
	if !bytes.HasPrefix(data, []byte(frontmatterDelim)) {
		return nil, text, nil
	}
	rest := text[len(frontmatterDelim):]
	// Skip the newline after the opening delimiter.
	if len(rest) > 0 && rest[0] == '\n' {
		rest = rest[1:]
	}
	end := bytes.Index([]byte(rest), []byte("\n"+frontmatterDelim))
	if end == -1 {
		return nil, "", fmt.Errorf("unterminated frontmatter block")
	}
	fm = []byte(rest[:end])
	body = rest[end+1+len(frontmatterDelim):]
	if len(body) > 0 && body[0] == '\n' {
		body = body[1:]
	}
	return fm, body, nil
}

// decodeFrontmatter parses a document's frontmatter into v and returns the
// body.
func decodeFrontmatter(data []byte, v interface{}) (body string, err error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return "", err
	}
	if len(fm) == 0 {
		return body, nil
	}
	if err := yaml.Unmarshal(fm, v); err != nil {
		return "", fmt.Errorf("decoding frontmatter: %w", err)
	}
	return body, nil
}

// DecodeFrontmatter is the exported counterpart of decodeFrontmatter, for
// callers outside this package that parse walk-directory documents
// directly (internal/planning's _planning_result.md, in particular).
func DecodeFrontmatter(data []byte, v interface{}) (body string, err error) {
	return decodeFrontmatter(data, v)
}

// EncodeFrontmatter is the exported counterpart of encodeFrontmatter.
func EncodeFrontmatter(v interface{}, body string) ([]byte, error) {
	return encodeFrontmatter(v, body)
}

// encodeFrontmatter renders v as a YAML frontmatter block followed by body.
func encodeFrontmatter(v interface{}, body string) ([]byte, error) {
	fm, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding frontmatter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(frontmatterDelim)
	buf.WriteString("\n")
	buf.Write(fm)
	buf.WriteString(frontmatterDelim)
	buf.WriteString("\n")
	if body != "" {
		buf.WriteString(body)
	}
	return buf.Bytes(), nil
}
