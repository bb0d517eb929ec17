// Package prompt renders the instructions sent to the model.
package prompt

import (
	"bytes"
	"fmt"
	"text/template"
)

// GraphExample is the sample triple list shown to the model.
const GraphExample = `[["Artificial Intelligence", "is a field of", "Computer Science"],
 ["Machine Learning", "is a subset of", "Artificial Intelligence"]]`

var graphTmpl = template.Must(template.New("graph").Parse(
	`Extract key knowledge graph triples (subject, predicate, object)
from the following text and format them as a JSON list:
Example:
{{.Example}}

Text: {{.Text}}`))

var summaryTmpl = template.Must(template.New("summary").Parse(
	"Summarize the following text:\n\n{{.Text}}"))

// Graph asks for (subject, predicate, object) triples formatted as a JSON list of lists.
// The caller applies any length cap to text.
func Graph(text string) (string, error) {
	return render(graphTmpl, map[string]string{"Example": GraphExample, "Text": text})
}

// Summary asks for a summary of one chunk.
func Summary(chunk string) (string, error) {
	return render(summaryTmpl, map[string]string{"Text": chunk})
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", t.Name(), err)
	}
	return buf.String(), nil
}
