package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/invopop/jsonschema"

	"arenasync/server"
)

// 为每种线上消息的载荷生成 JSON Schema，供客户端校验
func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	if err := writeSchema(outPath, buildSchemas()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

func buildSchemas() map[string]*jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	messages := server.WireMessages()
	kinds := make([]string, 0, len(messages))
	for kind := range messages {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	out := make(map[string]*jsonschema.Schema, len(kinds))
	for _, kind := range kinds {
		schema := reflector.Reflect(messages[kind])
		schema.Title = kind
		schema.Description = fmt.Sprintf("Payload carried in the data field of a %q envelope", kind)
		out[kind] = schema
	}
	return out
}

func writeSchema(outPath string, schemas map[string]*jsonschema.Schema) error {
	data, err := json.MarshalIndent(schemas, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
