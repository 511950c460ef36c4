// Package output implements the validate/serialise/compress/encrypt
// pipeline that turns a populated model.DatabaseSchema into an on-disk
// artifact (spec.md §4.10): `.json`, `.json.zst`, or `.enc`.
package output

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/dbsurveyor/dbsurveyor/internal/dberrors"
	"github.com/dbsurveyor/dbsurveyor/internal/model"
	"github.com/dbsurveyor/dbsurveyor/internal/redact"
)

//go:embed schema.json
var schemaJSON []byte

const schemaResourceURL = "https://dbsurveyor.dev/schema/database-schema-v1.json"

var (
	compileOnce   sync.Once
	compiledSchema *jsonschema.Schema
	compileErr    error
)

func compile() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("parsing embedded output schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaResourceURL, doc); err != nil {
			compileErr = fmt.Errorf("registering embedded output schema: %w", err)
			return
		}
		sch, err := c.Compile(schemaResourceURL)
		if err != nil {
			compileErr = fmt.Errorf("compiling embedded output schema: %w", err)
			return
		}
		compiledSchema = sch
	})
	return compiledSchema, compileErr
}

// sensitiveFieldFragments is the closed set of substrings (case-insensitive)
// that must never appear in a serialised field name, per spec.md §4.10's
// defence-in-depth pass (a).
var sensitiveFieldFragments = []string{"password", "secret", "token", "credential", "auth"}

// Validate checks doc against the embedded Draft 2020-12 schema and the two
// defence-in-depth passes: no field name looks credential-shaped, and no
// string value matches the shared ValidationPatterns credential set.
func Validate(doc *model.DatabaseSchema) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return dberrors.NewSerializationError(err)
	}

	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return dberrors.NewSerializationError(err)
	}

	sch, err := compile()
	if err != nil {
		return dberrors.NewSerializationError(err)
	}
	if err := sch.Validate(instance); err != nil {
		return dberrors.NewSerializationError(fmt.Errorf("schema validation failed: %w", err))
	}

	if violation := scanForCredentials(instance, ""); violation != "" {
		return dberrors.NewSerializationError(fmt.Errorf("output document failed credential scan: %s", violation))
	}

	return nil
}

// scanForCredentials walks the decoded JSON value looking for a field name
// that contains one of sensitiveFieldFragments, or a string value that
// matches redact.ContainsCredentials. Returns a short description of the
// first violation found, or "" if none.
func scanForCredentials(value any, path string) string {
	switch v := value.(type) {
	case map[string]any:
		for key, child := range v {
			childPath := key
			if path != "" {
				childPath = path + "." + key
			}
			lowerKey := strings.ToLower(key)
			for _, fragment := range sensitiveFieldFragments {
				if strings.Contains(lowerKey, fragment) {
					return fmt.Sprintf("field name %q looks credential-shaped", childPath)
				}
			}
			if msg := scanForCredentials(child, childPath); msg != "" {
				return msg
			}
		}
	case []any:
		for i, child := range v {
			if msg := scanForCredentials(child, fmt.Sprintf("%s[%d]", path, i)); msg != "" {
				return msg
			}
		}
	case string:
		if redact.ContainsCredentials(v) {
			return fmt.Sprintf("value at %q matches a known credential pattern", path)
		}
	}
	return ""
}
