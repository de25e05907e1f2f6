// stimguard is the safety-envelope decision kernel for bio-actuation requests.
package main

import "github.com/stimguard/stimguard/internal/cli"

func main() {
	cli.Execute()
}
