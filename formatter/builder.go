package formatter

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"unicode"

	"github.com/fatih/color"

	"github.com/gnolang/flowlint/internal"
	"github.com/gnolang/flowlint/internal/lints"
	tt "github.com/gnolang/flowlint/internal/types"
)

const tabWidth = 8

var (
	errorStyle      = color.New(color.FgRed, color.Bold)
	warningStyle    = color.New(color.FgHiYellow, color.Bold)
	infoStyle       = color.New(color.FgHiCyan, color.Bold)
	ruleStyle       = color.New(color.FgYellow, color.Bold)
	fileStyle       = color.New(color.FgCyan, color.Bold)
	lineStyle       = color.New(color.FgHiBlue, color.Bold)
	messageStyle    = color.New(color.FgRed, color.Bold)
	suggestionStyle = color.New(color.FgGreen, color.Bold)
)

// SetColor turns colored output on or off.
func SetColor(enabled bool) {
	color.NoColor = !enabled
}

// issueFormatter is the interface that wraps the IssueTemplate method.
// Implementations of this interface are responsible for formatting specific types of lint issues.
type issueFormatter interface {
	IssueTemplate() string
}

// getIssueFormatter returns the formatter for an issue. Issues spanning
// several lines, and unreachable code, are shown as a region; everything
// else gets an underline.
func getIssueFormatter(issue tt.Issue) issueFormatter {
	if issue.Rule == lints.RuleUnreachableCode || issue.Start.Line != issue.End.Line {
		return &RegionIssueFormatter{}
	}
	return &GeneralIssueFormatter{}
}

// GenerateFormattedIssue formats a slice of issues into a human-readable string.
// It uses the appropriate formatter for each issue based on its rule.
func GenerateFormattedIssue(issues []tt.Issue, snippet *internal.SourceCode) string {
	var builder strings.Builder
	for _, issue := range issues {
		builder.WriteString(buildIssue(issue, snippet, getIssueFormatter(issue)))
	}
	return builder.String()
}

/***** Issue Formatter Builder *****/

type IssueData struct {
	Severity        tt.Severity
	Rule            string
	Filename        string
	Padding         string
	StartLine       int
	StartColumn     int
	EndLine         int
	EndColumn       int
	MaxLineNumWidth int
	Message         string
	Suggestion      string
	Note            string
	SnippetLines    []string
	CommonIndent    string
}

var funcMap = template.FuncMap{
	"header":     header,
	"snippet":    codeSnippet,
	"underline":  underlineAndMessage,
	"message":    message,
	"suggestion": suggestion,
	"note":       note,
}

func buildIssue(issue tt.Issue, snippet *internal.SourceCode, formatter issueFormatter) string {
	var lines []string
	if snippet != nil {
		lines = snippet.Lines
	}
	maxLineNumWidth := calculateMaxLineNumWidth(issue.End.Line)

	data := IssueData{
		Severity:        issue.Severity,
		Rule:            issue.Rule,
		Filename:        issue.Filename,
		StartLine:       issue.Start.Line,
		StartColumn:     issue.Start.Column,
		EndLine:         issue.End.Line,
		EndColumn:       issue.End.Column,
		Message:         issue.Message,
		Suggestion:      issue.Suggestion,
		Note:            issue.Note,
		MaxLineNumWidth: maxLineNumWidth,
		Padding:         strings.Repeat(" ", maxLineNumWidth+1),
		SnippetLines:    lines,
	}
	if isValidLineRange(data.StartLine, data.EndLine, lines) {
		data.CommonIndent = findCommonIndent(lines[data.StartLine-1 : data.EndLine])
	}

	tmpl := template.Must(template.New("issue").Funcs(funcMap).Parse(formatter.IssueTemplate()))

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Sprintf("Error formatting issue: %v", err)
	}
	return buf.String()
}

// utils functions used in the text templates

func header(d IssueData) string {
	var out string
	switch d.Severity {
	case tt.SeverityError:
		out = errorStyle.Sprint("error: ")
	case tt.SeverityWarning:
		out = warningStyle.Sprint("warning: ")
	default:
		out = infoStyle.Sprint("info: ")
	}
	out += ruleStyle.Sprintf("%s\n", d.Rule)

	name := d.Filename
	if name == "" {
		name = "<source>"
	}
	out += lineStyle.Sprintf("%s--> ", strings.Repeat(" ", d.MaxLineNumWidth))
	out += fileStyle.Sprintf("%s:%d:%d", name, d.StartLine, d.StartColumn)
	return out + "\n"
}

func codeSnippet(d IssueData) string {
	out := lineStyle.Sprintf("%s|\n", d.Padding)
	if !isValidLineRange(d.StartLine, d.EndLine, d.SnippetLines) {
		return out
	}
	for i := d.StartLine; i <= d.EndLine; i++ {
		line := strings.TrimPrefix(d.SnippetLines[i-1], d.CommonIndent)
		out += lineStyle.Sprintf("%*d | ", d.MaxLineNumWidth, i) + line + "\n"
	}
	return out
}

// underlineAndMessage marks the columns of a single-line issue and prints
// its message.
func underlineAndMessage(d IssueData) string {
	if !isValidLineRange(d.StartLine, d.EndLine, d.SnippetLines) {
		return message(d)
	}

	indentWidth := calculateVisualColumn(d.CommonIndent, len(d.CommonIndent)+1)
	start := calculateVisualColumn(d.SnippetLines[d.StartLine-1], d.StartColumn) - indentWidth
	if start < 0 {
		start = 0
	}
	end := calculateVisualColumn(d.SnippetLines[d.EndLine-1], d.EndColumn) - indentWidth
	length := end - start + 1
	if length < 1 {
		length = 1
	}

	out := lineStyle.Sprintf("%s| ", d.Padding)
	out += strings.Repeat(" ", start)
	out += messageStyle.Sprintf("%s\n", strings.Repeat("~", length))
	return out + message(d)
}

func message(d IssueData) string {
	return lineStyle.Sprintf("%s= ", d.Padding) + messageStyle.Sprintf("%s\n", d.Message)
}

func suggestion(d IssueData) string {
	if d.Suggestion == "" {
		return ""
	}

	out := "\n" + suggestionStyle.Sprint("Suggestion:\n")
	out += lineStyle.Sprintf("%s|\n", d.Padding)
	for i, line := range strings.Split(d.Suggestion, "\n") {
		out += lineStyle.Sprintf("%*d | ", d.MaxLineNumWidth, d.StartLine+i) + line + "\n"
	}
	return out + lineStyle.Sprintf("%s|\n", d.Padding)
}

func note(d IssueData) string {
	if d.Note == "" {
		return ""
	}
	return "\n" + suggestionStyle.Sprint("Note: ") + d.Note + "\n"
}

func isValidLineRange(startLine int, endLine int, snippetLines []string) bool {
	return startLine > 0 &&
		endLine > 0 &&
		startLine <= endLine &&
		startLine <= len(snippetLines) &&
		endLine <= len(snippetLines)
}

func calculateMaxLineNumWidth(endLine int) int {
	return len(fmt.Sprintf("%d", endLine))
}

// calculateVisualColumn calculates the visual column position
// in a string. taking into account tab characters.
func calculateVisualColumn(line string, column int) int {
	if column < 0 {
		return 0
	}
	visualColumn := 0
	for i, ch := range line {
		if i+1 == column {
			break
		}
		if ch == '\t' {
			visualColumn += tabWidth - (visualColumn % tabWidth)
		} else {
			visualColumn++
		}
	}
	return visualColumn
}

// findCommonIndent finds the common indent in the code snippet.
func findCommonIndent(lines []string) string {
	var common []rune
	seen := false
	for _, line := range lines {
		trimmed := strings.TrimLeftFunc(line, unicode.IsSpace)
		if trimmed == "" {
			continue
		}
		indent := []rune(line[:len(line)-len(trimmed)])
		if !seen {
			common, seen = indent, true
			continue
		}
		common = commonPrefix(common, indent)
		if len(common) == 0 {
			break
		}
	}
	return string(common)
}

// commonPrefix finds the common prefix of two strings.
func commonPrefix(a, b []rune) []rune {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[:i]
		}
	}
	return a[:n]
}
