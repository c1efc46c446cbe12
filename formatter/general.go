package formatter

type GeneralIssueFormatter struct{}

func (f *GeneralIssueFormatter) IssueTemplate() string {
	return `{{header .}}{{snippet .}}{{underline .}}{{suggestion .}}{{note .}}
`
}

// RegionIssueFormatter shows every line of the issue without an underline.
type RegionIssueFormatter struct{}

func (f *RegionIssueFormatter) IssueTemplate() string {
	return `{{header .}}{{snippet .}}{{message .}}{{suggestion .}}{{note .}}
`
}
