package ooxml

import "fmt"

// ContainerError reports that a file is not a readable OOXML workbook. It is fatal
// for an extraction.
type ContainerError struct {
	Path string
	Err  error
}

func (e *ContainerError) Error() string {
	return fmt.Sprintf("open workbook container %q: %v", e.Path, e.Err)
}

func (e *ContainerError) Unwrap() error {
	return e.Err
}

// RelationshipParseError reports a missing or malformed manifest or relationship
// part. Callers treat the affected lookups as empty and continue.
type RelationshipParseError struct {
	Part string
	Err  error
}

func (e *RelationshipParseError) Error() string {
	return fmt.Sprintf("parse relationship part %q: %v", e.Part, e.Err)
}

func (e *RelationshipParseError) Unwrap() error {
	return e.Err
}

func relError(part string, err error) *RelationshipParseError {
	return &RelationshipParseError{Part: part, Err: err}
}
