package crag

import (
	"bytes"
	"fmt"
	"text/template"
)

// PromptData holds all the data needed for prompt template execution
type PromptData struct {
	Query     string
	Document  string
	Knowledge string
	Sources   string
}

func executeTemplates(systemTmpl, promptTmpl string, data PromptData) (string, string, error) {
	var systemBuf, promptBuf bytes.Buffer

	sysT := template.Must(template.New("system").Parse(systemTmpl))
	if err := sysT.Execute(&systemBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute system template: %w", err)
	}

	prmptT := template.Must(template.New("prompt").Parse(promptTmpl))
	if err := prmptT.Execute(&promptBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute prompt template: %w", err)
	}

	return systemBuf.String(), promptBuf.String(), nil
}
