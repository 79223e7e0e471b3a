package model

// ProcessDefinition is a stored raw graph document. Type names the graph
// dialect the navigator should parse the document with.
type ProcessDefinition struct {
	Name     string
	Type     string
	Document []byte
}
