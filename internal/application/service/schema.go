package service

import (
	"bytes"
	"encoding/json"
	"fmt"

	"chainforge/internal/application/port/output"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// CheckToolSchemas compiles the documentation schema of every registered
// tool and reports the ones that are not valid JSON Schema. It never looks
// at tool input.
func CheckToolSchemas(tools output.ToolRegistry) map[string]error {
	problems := make(map[string]error)
	for _, tool := range tools.List() {
		schema := tool.Parameters().Schema
		if len(schema) == 0 {
			continue
		}
		if err := compileSchema(tool.Name().String(), schema); err != nil {
			problems[tool.Name().String()] = err
		}
	}
	return problems
}

func compileSchema(name string, schema map[string]any) error {
	raw, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("decode schema: %w", err)
	}

	url := "mem://tools/" + name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	if _, err := c.Compile(url); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	return nil
}
