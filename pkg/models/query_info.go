package models

import "strings"

// QueryInfo is one analyzed SQL script file.
type QueryInfo struct {
	FileName           string
	FullPath           string
	Parameters         []*ParameterDescriptor
	SQLContent         string
	SQLWithoutDeclares string
	// Warnings lists problems that parse silently, such as annotations for
	// undeclared parameters.
	Warnings []string
}

// Parameter returns the descriptor with the given name, compared case-insensitively.
func (q *QueryInfo) Parameter(name string) (*ParameterDescriptor, bool) {
	for _, p := range q.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	for _, p := range q.Parameters {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return nil, false
}
