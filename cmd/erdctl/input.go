package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-schema/pkg/jsonutil"
	"github.com/ekaya-inc/ekaya-schema/pkg/models"
	"github.com/ekaya-inc/ekaya-schema/pkg/normalization"
	"github.com/ekaya-inc/ekaya-schema/pkg/services"
)

// readDocument reads a JSON or YAML file ("-" for stdin) and returns JSON.
func readDocument(cmd *cobra.Command, path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	out, err := jsonutil.ToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

func loadERD(cmd *cobra.Command, path string) (*models.ERD, error) {
	data, err := readDocument(cmd, path)
	if err != nil {
		return nil, err
	}
	return models.ParseERD(data)
}

func loadSchema(cmd *cobra.Command, path string) (*models.Schema, error) {
	data, err := readDocument(cmd, path)
	if err != nil {
		return nil, err
	}
	return models.ParseSchema(data)
}

// diagramDocument is the canvas export accepted by --diagram.
type diagramDocument struct {
	Name  string                 `json:"name"`
	Nodes []services.DiagramNode `json:"nodes"`
	Edges []services.DiagramEdge `json:"edges"`
}

func loadDiagram(cmd *cobra.Command, path string) (*models.ERD, error) {
	data, err := readDocument(cmd, path)
	if err != nil {
		return nil, err
	}
	var doc diagramDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: invalid diagram: %w", path, err)
	}
	return services.ParseDiagram(doc.Name, doc.Nodes, doc.Edges)
}

// loadERDInput loads exactly one of --erd or --diagram.
func loadERDInput(cmd *cobra.Command, erdPath, diagramPath string) (*models.ERD, error) {
	switch {
	case erdPath != "" && diagramPath != "":
		return nil, errors.New("only one of --erd or --diagram can be specified")
	case erdPath != "":
		return loadERD(cmd, erdPath)
	case diagramPath != "":
		return loadDiagram(cmd, diagramPath)
	}
	return nil, errors.New("one of --erd or --diagram must be specified")
}

// loadFDs accepts a file holding a dependency string or list, or the
// dependency text itself (e.g. "a -> b; b -> c").
func loadFDs(cmd *cobra.Command, value string) ([]models.FunctionalDependency, error) {
	if value == "" {
		return nil, nil
	}

	var raw json.RawMessage
	if _, err := os.Stat(value); err == nil || value == "-" {
		data, err := readDocument(cmd, value)
		if err != nil {
			return nil, err
		}
		raw = data
	} else {
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		raw = encoded
	}
	return normalization.ParseFDInput(raw)
}

// writeOutput writes text to path, or to the command's stdout when path is empty.
func writeOutput(cmd *cobra.Command, path, text string) error {
	if path == "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
		return err
	}
	if err := os.WriteFile(path, []byte(text+"\n"), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printIssues lists validation issues on stderr.
func printIssues(cmd *cobra.Command, issues []models.ValidationIssue) {
	w := cmd.ErrOrStderr()
	for _, issue := range issues {
		location := issue.Table
		if issue.Column != nil {
			location += "." + *issue.Column
		}
		fmt.Fprintf(w, "%-7s %-28s %s: %s\n", issue.Severity, issue.Code, location, issue.Message)
	}
}
