package tools

import "encoding/json"

// Property describes one parameter of a tool in JSON Schema form.
type Property struct {
	Type        string     `json:"type"`
	Description string     `json:"description,omitempty"`
	Enum        []string   `json:"enum,omitempty"`
	Default     any        `json:"default,omitempty"`
	Items       *Property  `json:"items,omitempty"`
	Properties  Properties `json:"properties,omitempty"`
}

// Properties maps parameter names to their schemas.
type Properties map[string]Property

// Schema is the JSON Schema object describing a tool's arguments.
type Schema struct {
	Type       string     `json:"type"`
	Properties Properties `json:"properties"`
	Required   []string   `json:"required"`
}

// ObjectSchema builds a schema for an object with the given properties.
// Required is never nil so it marshals as an empty array.
func ObjectSchema(props Properties, required ...string) Schema {
	if props == nil {
		props = Properties{}
	}
	if required == nil {
		required = []string{}
	}
	return Schema{Type: "object", Properties: props, Required: required}
}

// JSON renders the schema as a raw JSON document.
func (s Schema) JSON() json.RawMessage {
	raw, err := json.Marshal(s)
	if err != nil {
		// Schema values are built from literals; marshaling cannot fail.
		panic(err)
	}
	return raw
}
