package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/BTreeMap/LegalDraft/internal/models"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const nextStepSchemaJSON = `{
	"type": "object",
	"required": ["documentType"],
	"properties": {
		"documentType": {"type": "string"},
		"currentAnswer": {"type": ["string", "null"]},
		"previousResponses": {"type": ["object", "null"], "additionalProperties": {"type": "string"}}
	}
}`

const generateDocumentSchemaJSON = `{
	"type": "object",
	"required": ["documentType"],
	"properties": {
		"documentType": {"type": "string"},
		"responses": {"type": ["object", "null"], "additionalProperties": {"type": "string"}},
		"deliverTo": {"type": ["string", "null"]}
	}
}`

const processDocumentSchemaJSON = `{
	"type": "object",
	"required": ["documentText"],
	"properties": {
		"documentText": {"type": "string"},
		"currentQuestionIndex": {"type": ["integer", "null"]}
	}
}`

// Presence is checked by UpdateSectionRequest.Validate so the client gets the
// missing-fields message; the schema only rejects wrong types.
const updateSectionSchemaJSON = `{
	"type": "object",
	"properties": {
		"userInput": {"type": ["string", "null"]},
		"documentText": {"type": ["string", "null"]},
		"questionContext": {
			"type": ["object", "null"],
			"properties": {
				"blank": {"type": "string"},
				"position": {"type": "integer"},
				"length": {"type": "integer"},
				"context": {"type": "string"},
				"contextStart": {"type": "integer"},
				"type": {"type": "string"}
			}
		}
	}
}`

// errBodyTooLarge marks a body cut off by the size limit.
var errBodyTooLarge = errors.New("request body too large")

var (
	nextStepSchema         = mustCompileSchema("next-step.json", nextStepSchemaJSON)
	generateDocumentSchema = mustCompileSchema("generate-document.json", generateDocumentSchemaJSON)
	processDocumentSchema  = mustCompileSchema("process-document.json", processDocumentSchemaJSON)
	updateSectionSchema    = mustCompileSchema("update-section.json", updateSectionSchemaJSON)
)

func mustCompileSchema(name, schema string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(schema)); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", name, err))
	}
	compiled, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("compile schema %s: %v", name, err))
	}
	return compiled
}

// decodeRequest reads the body, checks it against schema, and decodes it into v. Every
// failure wraps models.ErrValidation, and its text is safe to show the client.
func decodeRequest(r *http.Request, schema *jsonschema.Schema, v interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("%w: request body is required", models.ErrValidation)
	}
	defer r.Body.Close()
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: %w", models.ErrValidation, errBodyTooLarge)
		}
		return fmt.Errorf("%w: failed to read request body", models.ErrValidation)
	}

	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: invalid JSON format", models.ErrValidation)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %s", models.ErrValidation, schemaMessage(err))
	}
	if err := json.Unmarshal(data, v); err != nil {
		slog.Warn("decodeRequest: schema-valid body failed to decode", "error", err)
		return fmt.Errorf("%w: request body has an unsupported value", models.ErrValidation)
	}
	return nil
}

// schemaMessage names the first failing field of a schema validation error.
func schemaMessage(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return "request does not match schema"
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	field := strings.TrimPrefix(ve.InstanceLocation, "/")
	if field == "" {
		return "invalid request: " + ve.Message
	}
	return fmt.Sprintf("invalid field %s: %s", field, ve.Message)
}
