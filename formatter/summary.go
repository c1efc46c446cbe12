package formatter

import (
	"fmt"
	"strings"

	tt "github.com/gnolang/flowlint/internal/types"
)

// Summary counts issues by severity, e.g. "found 3 issues (1 error, 2 warnings)".
func Summary(issues []tt.Issue) string {
	if len(issues) == 0 {
		return "no issues found"
	}

	counts := make(map[tt.Severity]int)
	for _, issue := range issues {
		counts[issue.Severity]++
	}
	var parts []string
	for _, s := range []struct {
		sev  tt.Severity
		noun string
	}{
		{tt.SeverityError, "error"},
		{tt.SeverityWarning, "warning"},
		{tt.SeverityInfo, "info"},
	} {
		if n := counts[s.sev]; n > 0 {
			parts = append(parts, plural(n, s.noun))
		}
	}
	return fmt.Sprintf("found %s (%s)", plural(len(issues), "issue"), strings.Join(parts, ", "))
}

func plural(n int, noun string) string {
	if n == 1 || noun == "info" {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
