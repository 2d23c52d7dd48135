// Copyright © 2026 EdgeKit
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package main

import "github.com/edgekit/thingsboard-connector/cmd"

func main() {
	cmd.Execute()
}
