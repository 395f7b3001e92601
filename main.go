// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/WIN32GG/spvm/cmd/spvm"

func main() {
	cmd.Execute()
}
