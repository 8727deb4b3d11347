package changelog

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultTitle heads a newly created changelog.
const DefaultTitle = "# Changelog"

// File is a markdown changelog on disk.
type File struct {
	Path  string
	Title string
}

// New returns a changelog for path with the given title. An empty title uses
// DefaultTitle.
func New(path, title string) *File {
	if title == "" {
		title = DefaultTitle
	}
	if !strings.HasPrefix(title, "#") {
		title = "# " + title
	}
	return &File{Path: path, Title: title}
}

// Prepend inserts notes for version at the top of the changelog. It reports
// false without writing when the version already has a section.
func (f *File) Prepend(version, notes string) (bool, error) {
	existing, err := os.ReadFile(f.Path)
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("reading changelog %s: %w", f.Path, err)
	}

	if HasVersion(existing, version) {
		return false, nil
	}

	header, rest := splitHeader(existing)
	if header == "" {
		header = f.Title
	}

	var b bytes.Buffer
	b.WriteString(strings.TrimRight(header, "\n"))
	b.WriteString("\n\n")
	b.WriteString(strings.TrimRight(notes, "\n"))
	b.WriteString("\n")
	if rest = strings.TrimLeft(rest, "\n"); rest != "" {
		b.WriteString("\n")
		b.WriteString(rest)
		if !strings.HasSuffix(rest, "\n") {
			b.WriteString("\n")
		}
	}

	if dir := filepath.Dir(f.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("creating changelog directory: %w", err)
		}
	}
	if err := writeAtomic(f.Path, b.Bytes()); err != nil {
		return false, err
	}
	return true, nil
}

// splitHeader separates the document title and any preamble paragraphs from
// the release sections. The header ends at the first "## " heading.
func splitHeader(content []byte) (string, string) {
	if len(bytes.TrimSpace(content)) == 0 {
		return "", ""
	}

	var header, rest strings.Builder
	inRest := false
	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if !inRest && strings.HasPrefix(line, "## ") {
			inRest = true
		}
		if inRest {
			rest.WriteString(line)
			rest.WriteString("\n")
		} else {
			header.WriteString(line)
			header.WriteString("\n")
		}
	}

	h := header.String()
	if !strings.HasPrefix(strings.TrimSpace(h), "# ") {
		// No title; everything is content.
		return "", h + rest.String()
	}
	return h, rest.String()
}

// HasVersion reports whether content has a release heading for version.
// Both "## 1.2.0" and linked "## [1.2.0](...)" headings are recognized.
func HasVersion(content []byte, version string) bool {
	if version == "" {
		return false
	}
	re := regexp.MustCompile(`(?m)^##\s+\[?` + regexp.QuoteMeta(version) + `(\]|\s|$)`)
	return re.Match(content)
}

// Versions lists release headings in file order.
func Versions(content []byte) []string {
	re := regexp.MustCompile(`(?m)^##\s+\[?([0-9]+\.[0-9]+\.[0-9]+[0-9A-Za-z.+-]*)`)
	var out []string
	for _, m := range re.FindAllSubmatch(content, -1) {
		out = append(out, string(m[1]))
	}
	return out
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".changelog-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing changelog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing changelog: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("setting changelog permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing changelog: %w", err)
	}
	return nil
}
