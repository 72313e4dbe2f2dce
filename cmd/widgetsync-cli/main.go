// widgetsync-cli inspects widget manifests and imports schemas:
//
//	widgetsync-cli validate <manifest>          Validate a manifest
//	widgetsync-cli defaults <manifest>          Print the default value tree
//	widgetsync-cli flatten <manifest>           Print the flat dot-path schema
//	widgetsync-cli import-openapi [flags]       Derive a manifest from OpenAPI
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/goliatone/go-widgetsync/pkg/manifest"
	"github.com/goliatone/go-widgetsync/pkg/openapiimport"
	"github.com/goliatone/go-widgetsync/pkg/param"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "validate":
		cmdValidate(os.Args[2:])
	case "defaults":
		cmdDefaults(os.Args[2:])
	case "flatten":
		cmdFlatten(os.Args[2:])
	case "import-openapi":
		cmdImportOpenAPI(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: widgetsync-cli <validate|defaults|flatten|import-openapi> ...")
}

func loadManifest(args []string) manifest.Manifest {
	if len(args) < 1 {
		usage()
		os.Exit(1)
	}
	loader := manifest.NewLoader()
	m, err := loader.LoadManifest(context.Background(), manifest.SourceFromFile(args[0]))
	if err != nil {
		log.Fatalf("load manifest: %v", err)
	}
	return m
}

func cmdValidate(args []string) {
	m := loadManifest(args)
	fmt.Printf("%s %s: %d parameters, ok\n", m.Name, m.Version, countLeaves(m.Parameters))
}

func cmdDefaults(args []string) {
	m := loadManifest(args)
	printJSON(param.Defaults(m.Parameters))
}

func cmdFlatten(args []string) {
	m := loadManifest(args)
	flat, err := param.Flatten(m.Parameters)
	if err != nil {
		log.Fatalf("flatten: %v", err)
	}
	printJSON(flat)
}

func cmdImportOpenAPI(args []string) {
	fs := flag.NewFlagSet("import-openapi", flag.ExitOnError)
	source := fs.String("source", "", "OpenAPI document path")
	component := fs.String("component", "", "component schema name")
	name := fs.String("name", "", "widget name for the emitted manifest")
	version := fs.String("version", "0.1.0", "widget version for the emitted manifest")
	output := fs.String("output", "", "output file (stdout if empty)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *source == "" || *component == "" {
		log.Fatalf("import-openapi requires -source and -component")
	}

	raw, err := os.ReadFile(*source)
	if err != nil {
		log.Fatalf("read source: %v", err)
	}
	schema, err := openapiimport.Component(context.Background(), raw, *component)
	if err != nil {
		log.Fatalf("import: %v", err)
	}

	widgetName := *name
	if widgetName == "" {
		widgetName = *component
	}
	m := manifest.Manifest{
		Name:       widgetName,
		Version:    *version,
		Parameters: schema,
	}
	if err := m.Validate(); err != nil {
		log.Fatalf("imported manifest invalid: %v", err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		log.Fatalf("encode manifest: %v", err)
	}
	data = append(data, '\n')

	if *output != "" {
		if err := os.WriteFile(*output, data, 0o644); err != nil {
			log.Fatalf("write output: %v", err)
		}
		fmt.Printf("manifest written to %s\n", *output)
		return
	}
	os.Stdout.Write(data)
}

func countLeaves(schema param.Schema) int {
	count := 0
	schema.Walk(func(_ string, field param.Field) error {
		if !field.IsFolder() {
			count++
		}
		return nil
	})
	return count
}

func printJSON(value any) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		log.Fatalf("encode: %v", err)
	}
	fmt.Println(string(data))
}
