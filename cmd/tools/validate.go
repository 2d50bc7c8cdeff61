package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/lychee-technology/formview"
	"github.com/lychee-technology/formview/internal"
)

// errDocumentInvalid is returned after the field errors have been printed.
var errDocumentInvalid = errors.New("document is invalid")

func runValidate(args []string, out io.Writer) error {
	flags := flag.NewFlagSet("validate", flag.ContinueOnError)
	flags.SetOutput(out)
	flags.Usage = func() {
		fmt.Fprintln(out, "Usage: formview-tools validate [options]")
		fmt.Fprintln(out, "")
		fmt.Fprintln(out, "Options:")
		flags.PrintDefaults()
	}

	schemaFile := flags.String("schema-file", "", "Path to the JSON or YAML schema file (required)")
	docFile := flags.String("doc", "", "Path to the JSON document (required)")
	strict := flags.Bool("strict", false, "also run full JSON Schema validation")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if *schemaFile == "" || *docFile == "" {
		return fmt.Errorf("-schema-file and -doc are required")
	}

	schema, err := readSchemaFile(*schemaFile)
	if err != nil {
		return err
	}
	doc, err := readDocumentFile(*docFile)
	if err != nil {
		return err
	}

	errs := internal.CheckDocument(schema, doc)
	if len(errs) == 0 && *strict {
		if err := internal.ValidateDocument(schema, doc); err != nil {
			if fe, ok := formview.AsFormError(err); ok && len(fe.Errors) > 0 {
				errs = fe.Errors
			} else {
				fmt.Fprintf(out, "invalid: %v\n", err)
				return errDocumentInvalid
			}
		}
	}
	if len(errs) == 0 {
		fmt.Fprintln(out, "valid")
		return nil
	}
	for _, fe := range errs {
		fmt.Fprintf(out, "%s: %s (%s)\n", fe.Path, fe.Message, fe.Code)
	}
	return errDocumentInvalid
}
