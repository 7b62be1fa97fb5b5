// Command lumochat runs the LumoPack order interview in a terminal and
// analyzes box strength from the command line.
package main

import (
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	Execute()
}
