package catalog

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/phrazzld/hierconf/internal/domain"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const schemaFile = "schema/catalog.schema.json"

//go:embed schema/*.json
var schemaFS embed.FS

// ErrInvalidCatalog is returned when a catalog document is malformed.
var ErrInvalidCatalog = errors.New("invalid definition catalog")

type document struct {
	Definitions []*domain.Definition `yaml:"definitions"`
}

// Parse decodes a catalog document. Every definition is validated, which
// normalizes default values, and keys must be unique within the document.
func Parse(data []byte) ([]*domain.Definition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: document is empty", ErrInvalidCatalog)
	}
	if err := validateSchema(data); err != nil {
		return nil, err
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse: %v", ErrInvalidCatalog, err)
	}

	seen := make(map[string]bool, len(doc.Definitions))
	for i, def := range doc.Definitions {
		if def == nil {
			return nil, fmt.Errorf("%w: definition %d is empty", ErrInvalidCatalog, i)
		}
		if seen[def.Key] {
			return nil, fmt.Errorf("%w: key %q appears more than once", ErrInvalidCatalog, def.Key)
		}
		seen[def.Key] = true
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
		}
	}
	return doc.Definitions, nil
}

// Decode reads a whole catalog from r.
func Decode(r io.Reader) ([]*domain.Definition, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// LoadFile reads the catalog stored at path.
func LoadFile(path string) ([]*domain.Definition, error) {
	if path == "" {
		return nil, errors.New("catalog path is empty")
	}
	// #nosec G304 -- catalog path is operator-provided.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	defs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return defs, nil
}

func validateSchema(data []byte) error {
	schemaBytes, err := schemaFS.ReadFile(schemaFile)
	if err != nil {
		return fmt.Errorf("load catalog schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("inmemory://catalog", bytes.NewReader(schemaBytes)); err != nil {
		return fmt.Errorf("add catalog schema: %w", err)
	}
	schema, err := compiler.Compile("inmemory://catalog")
	if err != nil {
		return fmt.Errorf("compile catalog schema: %w", err)
	}

	payload, err := toJSONValue(data)
	if err != nil {
		return fmt.Errorf("%w: parse: %v", ErrInvalidCatalog, err)
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	return nil
}

// toJSONValue converts YAML into the generic JSON shape the schema
// validator expects.
func toJSONValue(data []byte) (any, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(encoded))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
