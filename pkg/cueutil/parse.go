// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// ParseResult holds a decoded document and the unified CUE value it came from.
type ParseResult[T any] struct {
	Value   *T
	Unified cue.Value
}

// ParseAndDecode compiles schema, unifies data with the definition at
// schemaPath, validates the result and decodes it into T.
func ParseAndDecode[T any](schema, data []byte, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	unified, filename, err := Unify(schema, data, schemaPath, opts...)
	if err != nil {
		return nil, err
	}

	var result T
	if err := unified.Decode(&result); err != nil {
		return nil, FormatError(err, filename)
	}

	return &ParseResult[T]{Value: &result, Unified: unified}, nil
}

// Decode is ParseAndDecode for callers that only need the Go value.
func Decode[T any](schema, data []byte, schemaPath string, opts ...Option) (*T, error) {
	res, err := ParseAndDecode[T](schema, data, schemaPath, opts...)
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

// Unify validates data against the definition at schemaPath and returns the
// unified value together with the filename used for error messages.
func Unify(schema, data []byte, schemaPath string, opts ...Option) (cue.Value, string, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	filename := options.filename
	if filename == "" {
		filename = "<input>"
	}

	if err := CheckFileSize(data, options.maxFileSize, filename); err != nil {
		return cue.Value{}, filename, err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileBytes(schema)
	if schemaValue.Err() != nil {
		return cue.Value{}, filename, fmt.Errorf("internal error: failed to compile schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(filename))
	if userValue.Err() != nil {
		return cue.Value{}, filename, FormatError(userValue.Err(), filename)
	}

	def := schemaValue.LookupPath(cue.ParsePath(schemaPath))
	if def.Err() != nil {
		return cue.Value{}, filename, fmt.Errorf("internal error: schema definition %s not found: %w", schemaPath, def.Err())
	}

	unified := def.Unify(userValue)
	if err := unified.Validate(cue.Concrete(options.concrete)); err != nil {
		return cue.Value{}, filename, FormatError(err, filename)
	}

	return unified, filename, nil
}
