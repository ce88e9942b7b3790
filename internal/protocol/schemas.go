package protocol

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var (
	schemasOnce sync.Once
	schemasErr  error
	helloSchema *jsonschema.Schema
	uiSchema    *jsonschema.Schema
)

func loadSchemas() error {
	schemasOnce.Do(func() {
		compile := func(name string) *jsonschema.Schema {
			if schemasErr != nil {
				return nil
			}
			raw, err := schemaFS.ReadFile("schemas/" + name)
			if err != nil {
				schemasErr = err
				return nil
			}
			s, err := jsonschema.CompileString(name, string(raw))
			if err != nil {
				schemasErr = fmt.Errorf("compile %s: %w", name, err)
				return nil
			}
			return s
		}
		helloSchema = compile("hello.schema.json")
		uiSchema = compile("ui.schema.json")
	})
	return schemasErr
}

// ValidateHello checks a raw HELLO frame against its schema.
func ValidateHello(raw []byte) error {
	return validate(raw, func() *jsonschema.Schema { return helloSchema })
}

// ValidateUIRequest checks a raw UI frame against its schema.
func ValidateUIRequest(raw []byte) error {
	return validate(raw, func() *jsonschema.Schema { return uiSchema })
}

func validate(raw []byte, schema func() *jsonschema.Schema) error {
	if err := loadSchemas(); err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return schema().Validate(v)
}
