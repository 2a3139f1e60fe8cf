package main

import (
	"context"
	"fmt"
	"os"

	"github.com/growthpath/zohocrm-go/cmd/zohocrm/commands"
)

func main() {
	if err := commands.Execute(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
