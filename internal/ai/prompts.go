package ai

import (
	_ "embed"
	"text/template"
)

//go:embed prompts/job_extraction.md
var jobExtractionPromptRaw string

// JobExtractionTemplate is the parsed prompt template for extracting a job
// list from page text. Parsed once at package init; reused on every call.
var JobExtractionTemplate = template.Must(template.New("job_extraction").Parse(jobExtractionPromptRaw))
