package dto

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// StdinPath is the path shown for sources read from standard input.
const StdinPath = "<stdin>"

// RenderText writes the human-readable report: one section per file, one line
// per function indented by nest level, followed by its throws entries.
func RenderText(w io.Writer, response AnalysisResponse) error {
	var b strings.Builder

	for i, report := range response.Reports {
		if i > 0 {
			b.WriteString("\n")
		}

		path := report.FilePath
		if path == "" {
			path = StdinPath
		}
		fmt.Fprintf(&b, "%s functions:\n", path)

		if len(report.Functions) == 0 {
			b.WriteString("  no functions found\n")
			continue
		}

		for _, fn := range report.Functions {
			indent := strings.Repeat("  ", fn.NestLevel+1)
			fmt.Fprintf(&b, "%s- %s\n", indent, fn.Name)
			if len(fn.Throws) == 0 {
				continue
			}
			fmt.Fprintf(&b, "%s    throws:\n", indent)
			for _, entry := range fn.Throws {
				if entry.Description != nil {
					fmt.Fprintf(&b, "%s      - %s: %s\n", indent, entry.Type, *entry.Description)
				} else {
					fmt.Fprintf(&b, "%s      - %s\n", indent, entry.Type)
				}
			}
		}

		if report.MalformedBlocks > 0 {
			fmt.Fprintf(&b, "  (%d malformed doc comment block(s) skipped)\n", report.MalformedBlocks)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderJSON writes the response as indented JSON.
func RenderJSON(w io.Writer, response AnalysisResponse) error {
	data, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// RenderYAML writes the response as YAML.
func RenderYAML(w io.Writer, response AnalysisResponse) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(response); err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	return enc.Close()
}

// Render writes response in the named format: text, json or yaml.
func Render(w io.Writer, format string, response AnalysisResponse) error {
	switch strings.ToLower(format) {
	case "", "text":
		return RenderText(w, response)
	case "json":
		return RenderJSON(w, response)
	case "yaml", "yml":
		return RenderYAML(w, response)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
