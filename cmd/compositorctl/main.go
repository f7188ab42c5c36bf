// Command compositorctl composites frame files with the gogpu compositor.
package main

import "github.com/gogpu/compositor/internal/cli"

func main() {
	cli.Execute()
}
