package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Envelope schemas. A successful list must carry an array of objects, a
// successful mutation an object; failures only need success=false.
const (
	listEnvelopeSchema = `{
  "type": "object",
  "required": ["success"],
  "properties": {
    "success": {"type": "boolean"},
    "message": {"type": "string"},
    "error": {"type": "string"}
  },
  "if": {"properties": {"success": {"const": true}}},
  "then": {
    "required": ["data"],
    "properties": {"data": {"type": "array", "items": {"type": "object"}}}
  }
}`

	itemEnvelopeSchema = `{
  "type": "object",
  "required": ["success"],
  "properties": {
    "success": {"type": "boolean"},
    "message": {"type": "string"},
    "error": {"type": "string"}
  },
  "if": {"properties": {"success": {"const": true}}},
  "then": {
    "required": ["data"],
    "properties": {"data": {"type": "object"}}
  }
}`

	ackEnvelopeSchema = `{
  "type": "object",
  "required": ["success"],
  "properties": {
    "success": {"type": "boolean"},
    "message": {"type": "string"},
    "error": {"type": "string"}
  }
}`
)

var (
	listSchema = mustCompile("list", listEnvelopeSchema)
	itemSchema = mustCompile("item", itemEnvelopeSchema)
	ackSchema  = mustCompile("ack", ackEnvelopeSchema)
)

func mustCompile(name, schema string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := fmt.Sprintf("https://backoffice.schemas.local/remote/%s.schema.json", name)
	if err := c.AddResource(url, strings.NewReader(schema)); err != nil {
		panic(fmt.Sprintf("remote schema %s load failed: %v", name, err))
	}
	compiled, err := c.Compile(url)
	if err != nil {
		panic(fmt.Sprintf("remote schema %s compile failed: %v", name, err))
	}
	return compiled
}

func validateEnvelope(schema *jsonschema.Schema, body []byte) error {
	var v any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	return schema.Validate(v)
}

type schemaRef int

const (
	schemaList schemaRef = iota
	schemaItem
	schemaAck
)

func (s schemaRef) get() *jsonschema.Schema {
	switch s {
	case schemaList:
		return listSchema
	case schemaItem:
		return itemSchema
	default:
		return ackSchema
	}
}

