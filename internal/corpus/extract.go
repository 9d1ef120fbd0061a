package corpus

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
)

// supportedExtensions lists the document formats the loader reads directly.
var supportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
}

// minPDFText is the shortest PDF text layer treated as real content. Scanned
// or image-only PDFs yield a few stray glyphs at most.
const minPDFText = 50

// ExtractFile returns the raw text of one document. Unsupported formats are
// an error; a readable but empty file returns "".
func ExtractFile(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !supportedExtensions[ext] {
		return "", fmt.Errorf("unsupported document format %q (supported: .txt, .md, .html, .pdf)", ext)
	}
	if ext == ".pdf" {
		return ExtractPDF(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if ext == ".html" || ext == ".htm" {
		return ExtractHTML(f)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// ExtractPDF returns the text layer of a PDF. A text layer shorter than
// minPDFText after normalization returns "" so the plan is reported as empty
// rather than scored on noise.
func ExtractPDF(path string) (text string, err error) {
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf %s: %w", path, err)
	}
	data, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read pdf %s: %w", path, err)
	}
	text = string(data)
	if len([]rune(Normalize(text))) < minPDFText {
		return "", nil
	}
	return text, nil
}

// blockSelector lists the HTML elements that become separate lines.
const blockSelector = "h1, h2, h3, h4, h5, h6, p, li, dt, dd, td, th, pre, blockquote, figcaption"

// ExtractHTML returns the visible text of an HTML document, one line per
// block element. List items keep a "- " marker so plan actions survive.
func ExtractHTML(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript, template, nav, footer").Remove()

	var lines []string
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		// Nested blocks (p inside li) are emitted by the innermost element.
		if s.Find(blockSelector).Length() > 0 {
			return
		}
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		switch goquery.NodeName(s) {
		case "li":
			text = "- " + text
		case "h1", "h2", "h3", "h4", "h5", "h6":
			lines = append(lines, "")
		}
		lines = append(lines, text)
	})

	if len(lines) == 0 {
		return strings.TrimSpace(doc.Find("body").Text()), nil
	}
	return strings.Join(lines, "\n"), nil
}

// LoadFile extracts and normalizes one document. The document ID is derived
// from the file name.
func LoadFile(path string) (Document, error) {
	raw, err := ExtractFile(path)
	if err != nil {
		return Document{}, err
	}
	return Document{
		ID:     PlanID(filepath.Base(path)),
		Source: filepath.Base(path),
		Text:   Normalize(raw),
	}, nil
}

// Load reads the audit report and every supported document in plansDir.
// A plan whose extraction fails is kept with empty text so that the run
// reports it as unscored; the returned warnings describe each failure.
func Load(auditPath, plansDir string) (*Corpus, []error, error) {
	audit, err := LoadFile(auditPath)
	if err != nil {
		return nil, nil, fmt.Errorf("audit report: %w", err)
	}

	entries, err := os.ReadDir(plansDir)
	if err != nil {
		return nil, nil, fmt.Errorf("plans directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	c := &Corpus{Audit: audit, Findings: ParseFindings(audit.Text)}
	var warnings []error
	used := make(map[string]bool)

	for _, e := range entries {
		if e.IsDir() || !supportedExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		path := filepath.Join(plansDir, e.Name())
		if sameFile(path, auditPath) {
			continue
		}
		id := uniqueID(PlanID(e.Name()), used)
		raw, err := ExtractFile(path)
		if err != nil {
			warnings = append(warnings, fmt.Errorf("plan %s: %w", id, err))
			raw = ""
		}
		c.Plans = append(c.Plans, NewPlan(id, e.Name(), raw))
	}

	if len(c.Plans) == 0 {
		return nil, warnings, fmt.Errorf("no plan documents found in %s", plansDir)
	}
	return c, warnings, nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// PlanID derives a stable identifier from a file name:
// "Gemini 2.5 Pro - a11y plan.md" -> "gemini-2-5-pro-a11y-plan".
func PlanID(filename string) string {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))
	id := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if id == "" {
		return "plan"
	}
	return id
}

func uniqueID(id string, used map[string]bool) string {
	candidate := id
	for n := 2; used[candidate]; n++ {
		candidate = fmt.Sprintf("%s-%d", id, n)
	}
	used[candidate] = true
	return candidate
}

func sameFile(a, b string) bool {
	ia, err := os.Stat(a)
	if err != nil {
		return false
	}
	ib, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ia, ib)
}
