package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/lychee-technology/formview"
	"github.com/lychee-technology/formview/internal"
)

func runCompile(args []string, out io.Writer) error {
	flags := flag.NewFlagSet("compile", flag.ContinueOnError)
	flags.SetOutput(out)
	flags.Usage = func() {
		fmt.Fprintln(out, "Usage: formview-tools compile [options]")
		fmt.Fprintln(out, "")
		fmt.Fprintln(out, "Options:")
		flags.PrintDefaults()
	}

	schemaFile := flags.String("schema-file", "", "Path to the JSON or YAML schema file (required)")
	modelFile := flags.String("model", "", "Document to compile against (defaults to the schema's default document)")
	namespace := flags.String("namespace", getenvDefault("FORM_NAMESPACE", formview.DefaultNamespace), "control element namespace")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if *schemaFile == "" {
		return fmt.Errorf("-schema-file is required")
	}

	schema, err := readSchemaFile(*schemaFile)
	if err != nil {
		return err
	}
	if !formview.IsObjectSchema(schema) {
		return formview.NewUnsupportedSchemaError("", "top level schema has to be an object")
	}

	var model formview.Document
	if *modelFile != "" {
		if model, err = readDocumentFile(*modelFile); err != nil {
			return err
		}
	} else if model, err = formview.CreateDocument(schema, ""); err != nil {
		return err
	}

	desc, err := internal.NewCompiler(*namespace).Resolve(schema, model, internal.Location{},
		map[string]any{formview.OptionMode: formview.ModeMinimal})
	if err != nil {
		return err
	}
	return writeIndented(out, desc)
}

func runDefaults(args []string, out io.Writer) error {
	flags := flag.NewFlagSet("defaults", flag.ContinueOnError)
	flags.SetOutput(out)
	flags.Usage = func() {
		fmt.Fprintln(out, "Usage: formview-tools defaults [options]")
		fmt.Fprintln(out, "")
		fmt.Fprintln(out, "Options:")
		flags.PrintDefaults()
	}

	schemaFile := flags.String("schema-file", "", "Path to the JSON or YAML schema file (required)")
	typeName := flags.String("type", "", "value of type_ on the default document")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if *schemaFile == "" {
		return fmt.Errorf("-schema-file is required")
	}

	schema, err := readSchemaFile(*schemaFile)
	if err != nil {
		return err
	}
	value, err := formview.CreateValue(schema, *typeName)
	if err != nil {
		return err
	}
	return writeIndented(out, value)
}

func readSchemaFile(path string) (*formview.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formview.ParseSchemaYAML(data)
	}
	return formview.ParseSchema(data)
}

func readDocumentFile(path string) (formview.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document file %s: %w", path, err)
	}
	var doc formview.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse document file %s: %w", path, err)
	}
	if doc == nil {
		doc = formview.Document{}
	}
	return doc, nil
}

func writeIndented(out io.Writer, v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = fmt.Fprintln(out, string(encoded))
	return err
}
