package client

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidPayload marks a response body that does not match its schema.
var ErrInvalidPayload = errors.New("payload does not match schema")

// Payload shapes, one per endpoint. Indicator values are left untyped:
// anything that is not a number decodes to a missing value.
const (
	columnsSchema = `{
		"type": "array",
		"items": {"type": "string"}
	}`

	rowsSchema = `{
		"type": "array",
		"items": {
			"type": "object",
			"required": ["Country name"],
			"properties": {
				"Country name": {"type": "string"},
				"Region": {"type": ["string", "null"]},
				"Income Category": {"type": ["string", "null"]}
			}
		}
	}`

	scatterSchema = `{
		"type": "object",
		"required": ["ladder_score", "country_name"],
		"properties": {
			"ladder_score": {"type": "array"},
			"country_name": {"type": "array", "items": {"type": ["string", "null"]}}
		},
		"additionalProperties": {"type": "array"}
	}`

	pieSchema = `{
		"type": "array",
		"items": {
			"type": "object",
			"required": ["Region", "Ladder score"],
			"properties": {
				"Region": {"type": "string"},
				"Ladder score": {"type": "number"}
			}
		}
	}`

	pcpSchema = `{
		"type": "object",
		"required": ["data", "mappings"],
		"properties": {
			"data": {"type": "array", "items": {"type": "object"}},
			"mappings": {
				"type": "object",
				"required": ["Country name", "Region"],
				"additionalProperties": {
					"type": "object",
					"additionalProperties": {"type": "string"}
				}
			}
		}
	}`

	radarSchema = `{
		"type": "object",
		"additionalProperties": {"type": "object"}
	}`
)

var (
	columnsPayload = mustSchema(columnsSchema)
	rowsPayload    = mustSchema(rowsSchema)
	scatterPayload = mustSchema(scatterSchema)
	piePayload     = mustSchema(pieSchema)
	pcpPayload     = mustSchema(pcpSchema)
	radarPayload   = mustSchema(radarSchema)
)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("client: bad schema: %v", err))
	}
	return s
}

// validate checks body against schema.
func validate(schema *gojsonschema.Schema, body []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if !result.Valid() {
		msgs := make([]string, len(result.Errors()))
		for i, e := range result.Errors() {
			msgs[i] = e.String()
		}
		return fmt.Errorf("%w: %s", ErrInvalidPayload, strings.Join(msgs, "; "))
	}
	return nil
}
