// SPDX-License-Identifier: MPL-2.0

package project

import (
	"os"
	"strings"
	"testing"
)

func TestSetDunder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want string
	}{
		{"empty", "", "__version__ = \"1.0.0\"\n"},
		{"append without newline", "import os", "import os\n__version__ = \"1.0.0\"\n"},
		{"replace spaced", "__version__ = '0.1'\nx = 1\n", "__version__ = \"1.0.0\"\nx = 1\n"},
		{"replace compact", "__version__='0.1'\n", "__version__ = \"1.0.0\"\n"},
		{"indented is not an assignment", "    __version__ = '0.1'\n", "    __version__ = '0.1'\n__version__ = \"1.0.0\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := setDunder(tt.src, "__version__", "1.0.0"); got != tt.want {
				t.Errorf("setDunder() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPopulateInit(t *testing.T) {
	t.Parallel()

	p := newTestProject(t)
	p.Meta().Info.URL = "https://example.com"
	p.Meta().Authors[0] = Author{Name: "Ada", Email: "ada@example.com"}

	if err := os.WriteFile(p.InitFilePath(), []byte("from .core import run\n__version__ = \"0.0.0\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := p.PopulateInit(); err != nil {
		t.Fatalf("PopulateInit() error = %v", err)
	}

	data, err := os.ReadFile(p.InitFilePath())
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	for _, want := range []string{
		"from .core import run\n",
		`__name__ = "Demo-Pkg"`,
		`__version__ = "1.2.3"`,
		`__author__ = "Ada"`,
		`__url__ = "https://example.com"`,
		`__email__ = "ada@example.com"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("__init__.py missing %q:\n%s", want, got)
		}
	}
	if strings.Count(got, "__version__") != 1 {
		t.Errorf("__version__ duplicated:\n%s", got)
	}
}
