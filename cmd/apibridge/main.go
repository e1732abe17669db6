// apibridge turns natural-language requests into API calls.
//
// Usage:
//
//	apibridge chat --config config.yaml   # interactive session
//	apibridge tools --query "add a pet"   # rank catalog tools
//	apibridge version                     # show version information
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/apibridge/apibridge"
	"github.com/apibridge/apibridge/config"
)

// Injected at build time.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "chat":
		runChat(os.Args[2:])
	case "tools":
		runTools(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runChat(args []string) {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	cfg, logger := loadConfig(*configPath)
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	bridge, err := apibridge.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to assemble bridge", zap.Error(err))
	}
	defer bridge.Close()

	id := bridge.StartConversation(ctx)
	fmt.Println("apibridge ready. Describe what you want to do (ctrl-d to quit).")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		text := scanner.Text()
		if text == "" {
			continue
		}

		reply, err := bridge.ProcessMessage(ctx, id, text)
		if err != nil {
			logger.Error("Turn failed", zap.Error(err))
			// The sweep may have evicted the conversation; start fresh.
			id = bridge.StartConversation(ctx)
			continue
		}
		fmt.Println(reply.Message)
	}
	fmt.Println()
}

func runTools(args []string) {
	fs := flag.NewFlagSet("tools", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	query := fs.String("query", "", "Rank tools against this query instead of listing")
	fs.Parse(args)

	cfg, logger := loadConfig(*configPath)
	defer logger.Sync()

	ctx := context.Background()
	bridge, err := apibridge.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to assemble bridge", zap.Error(err))
	}
	defer bridge.Close()

	if *query == "" {
		fmt.Fprintln(os.Stderr, "Provide --query to rank the catalog")
		os.Exit(1)
	}
	for _, scored := range bridge.FindSimilarTools(ctx, *query, 10) {
		fmt.Printf("%.3f  %-24s %s %s\n",
			scored.Score,
			scored.Tool.Name,
			scored.Tool.Endpoint.Method,
			scored.Tool.Endpoint.Path)
	}
}

func loadConfig(path string) (*config.Config, *zap.Logger) {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg, initLogger(cfg.Log)
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoding = "console"
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      encoding == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

func printVersion() {
	fmt.Printf("apibridge %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`apibridge - natural language to API calls

Usage:
  apibridge chat [--config config.yaml]              Interactive session
  apibridge tools --query "..." [--config ...]       Rank catalog tools
  apibridge version                                  Show version`)
}
