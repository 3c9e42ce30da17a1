package reporting

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/beevik/etree"

	"github.com/xkilldash9x/jsguard/internal/analysis/static/javascript"
	"github.com/xkilldash9x/jsguard/internal/scanner"
)

// checkstyleVersion is the format version most CI annotators expect.
const checkstyleVersion = "4.3"

// CheckstyleReporter writes Checkstyle XML for CI annotators. Files are grouped in
// first-seen order; output happens on Close.
type CheckstyleReporter struct {
	writer io.WriteCloser
	doc    *etree.Document
	root   *etree.Element
	files  map[string]*etree.Element
	mu     sync.Mutex
}

func NewCheckstyleReporter(writer io.WriteCloser, toolVersion string) *CheckstyleReporter {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("checkstyle")
	root.CreateAttr("version", checkstyleVersion)
	if toolVersion != "" {
		root.CreateAttr("generator", ToolName+" "+toolVersion)
	}
	return &CheckstyleReporter{
		writer: writer,
		doc:    doc,
		root:   root,
		files:  make(map[string]*etree.Element),
	}
}

func (r *CheckstyleReporter) Write(report *scanner.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Clean files are listed too.
	for _, f := range report.Files {
		r.fileElement(f.Path)
	}
	for _, finding := range report.Findings {
		el := r.fileElement(finding.File).CreateElement("error")
		el.CreateAttr("line", strconv.Itoa(finding.Line))
		el.CreateAttr("column", strconv.Itoa(finding.Column))
		el.CreateAttr("severity", checkstyleSeverity(finding.Severity))
		el.CreateAttr("message", finding.Description)
		el.CreateAttr("source", ToolName+"."+string(finding.IssueType))
	}
	return nil
}

func (r *CheckstyleReporter) fileElement(path string) *etree.Element {
	if el, ok := r.files[path]; ok {
		return el
	}
	el := r.root.CreateElement("file")
	el.CreateAttr("name", path)
	r.files[path] = el
	return el
}

func (r *CheckstyleReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.doc.Indent(2)
	_, writeErr := r.doc.WriteTo(r.writer)
	closeErr := r.writer.Close()
	if writeErr != nil {
		return fmt.Errorf("failed to write checkstyle report: %w", writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	return nil
}

func checkstyleSeverity(severity javascript.Severity) string {
	switch severity {
	case javascript.SeverityCritical:
		return "error"
	case javascript.SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}
