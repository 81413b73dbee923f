package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidateConfigSchema validates a merged config tree against an optional
// JSON-Schema document, beyond the simple name-presence check the chain
// validator performs. A nil or empty schemaDoc is treated as "no schema
// declared" and always succeeds.
func ValidateConfigSchema(schemaDoc []byte, config map[string]interface{}) error {
	if len(bytes.TrimSpace(schemaDoc)) == 0 {
		return nil
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("manifest.json", bytes.NewReader(schemaDoc)); err != nil {
		return fmt.Errorf("manifest: invalid config schema: %w", err)
	}
	schema, err := compiler.Compile("manifest.json")
	if err != nil {
		return fmt.Errorf("manifest: compiling config schema: %w", err)
	}

	// jsonschema validates against decoded JSON values (not Go maps
	// directly, to get consistent number/bool handling).
	raw, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("manifest: marshaling config for validation: %w", err)
	}
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("manifest: decoding config for validation: %w", err)
	}

	if err := schema.Validate(decoded); err != nil {
		return fmt.Errorf("manifest: config fails schema: %w", err)
	}
	return nil
}
