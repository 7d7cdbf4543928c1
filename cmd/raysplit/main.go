package main

import (
	"context"
	"fmt"
	"os"

	"github.com/agbru/raysplit/internal/app"
	apperrors "github.com/agbru/raysplit/internal/errors"
)

func main() {
	if app.HasVersionFlag(os.Args[1:]) {
		app.PrintVersion(os.Stdout)
		return
	}

	application, err := app.New(os.Args, os.Stderr)
	if err != nil {
		if app.IsHelpError(err) {
			os.Exit(0)
		}
		// Flag syntax errors were already reported with the usage text.
		if apperrors.KindOf(err) != apperrors.KindGeneric {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(apperrors.ExitCodeFor(err))
	}

	exitCode := application.Run(context.Background(), os.Stdout)
	os.Exit(exitCode)
}
