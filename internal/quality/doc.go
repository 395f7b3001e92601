// SPDX-License-Identifier: MPL-2.0

// Package quality drives the Python code-quality and packaging tools of a
// release: pyflakes and pycodestyle for conformance, pytest, autopep8 for
// repairs and setuptools for building distributions.
package quality
