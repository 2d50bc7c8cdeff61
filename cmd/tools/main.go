package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Errorf("failed to set up logger: %w", err))
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	sugar := logger.Sugar()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "compile":
		if err := runCompile(os.Args[2:], os.Stdout); err != nil {
			sugar.Fatalf("compile: %v", err)
		}
	case "defaults":
		if err := runDefaults(os.Args[2:], os.Stdout); err != nil {
			sugar.Fatalf("defaults: %v", err)
		}
	case "validate":
		if err := runValidate(os.Args[2:], os.Stdout); err != nil {
			sugar.Fatalf("validate: %v", err)
		}
	case "health":
		if err := runHealth(os.Args[2:], os.Stdout); err != nil {
			sugar.Fatalf("health: %v", err)
		}
	case "init-db":
		if err := runInitDB(os.Args[2:]); err != nil {
			sugar.Fatalf("init-db: %v", err)
		}
	default:
		sugar.Errorf("unknown command %q", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	logger := zap.S()
	logger.Info("Usage: formview-tools <command> [options]")
	logger.Info("")
	logger.Info("Commands:")
	logger.Info("  compile    Print the control descriptor tree of a schema file")
	logger.Info("  defaults   Print the default document of a schema file")
	logger.Info("  validate   Check a document file against a schema file")
	logger.Info("  init-db    Create the PostgreSQL documents table")
	logger.Info("  health     Check the Postgres and S3 backends of a server config")
}
