package executor

import (
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// schemaCompiler memoises compiled schemas by their raw JSON text, mirroring
// pkg/pluginsdk's compileSchema: a ToolSpec.Schema is immutable for the life
// of the tool registration (§3), so compiling it once per distinct schema
// body is sufficient.
type schemaCompiler struct {
	mu    sync.Mutex
	cache map[string]*jsonschema.Schema
}

func newSchemaCompiler() *schemaCompiler {
	return &schemaCompiler{cache: make(map[string]*jsonschema.Schema)}
}

func (c *schemaCompiler) compile(name string, raw []byte) (*jsonschema.Schema, error) {
	key := string(raw)
	c.mu.Lock()
	if s, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return s, nil
	}
	c.mu.Unlock()

	compiled, err := jsonschema.CompileString(name+".schema.json", key)
	if err != nil {
		return nil, fmt.Errorf("compile schema for %q: %w", name, err)
	}

	c.mu.Lock()
	c.cache[key] = compiled
	c.mu.Unlock()
	return compiled, nil
}

// validate checks input against spec.Schema when one is configured. A nil
// or empty Schema means no validation is performed (§6: "optional JSON-schema
// validation of tool call input before dispatch").
func (c *schemaCompiler) validate(toolName string, schema []byte, input map[string]any) error {
	if len(schema) == 0 {
		return nil
	}
	compiled, err := c.compile(toolName, schema)
	if err != nil {
		return err
	}
	if err := compiled.Validate(input); err != nil {
		return fmt.Errorf("input for %q failed schema validation: %w", toolName, err)
	}
	return nil
}
