// SPDX-License-Identifier: MPL-2.0

// Package project manages a Python project directory prepared for spvm:
// the pyp.json metadata document, its detection from an existing tree and
// the generated files (setup.py, the package __init__.py) that carry the
// metadata into the build.
package project
