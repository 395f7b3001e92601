// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates user documents against embedded CUE schemas.
//
// Both spvm documents go through it: the CUE configuration file and the
// pyp.json project metadata (JSON is valid CUE). Unification with the schema
// validates the document and fills schema defaults in one step:
//
//	//go:embed meta_schema.cue
//	var metaSchema []byte
//
//	meta, err := cueutil.Decode[Meta](metaSchema, data, "#Meta",
//	    cueutil.WithFilename("pyp.json"))
package cueutil
