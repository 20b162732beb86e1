package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/xhad/mediassist/internal/app"
	"github.com/xhad/mediassist/internal/models"
	"github.com/xhad/mediassist/internal/types"
	cfgPkg "github.com/xhad/mediassist/pkg/config"
	"github.com/xhad/mediassist/pkg/logging"
	"github.com/xhad/mediassist/pkg/session"
	"go.uber.org/zap"
)

type Flags struct {
	ConfigPath   string
	Model        string
	Temperature  float64
	ChunkSize    int
	ChunkOverlap int
	TopK         int
	Index        string
	DBUrl        string
}

func main() {
	os.Exit(realMain(os.Args[1:]))
}

// realMain returns the process exit code, so deferred cleanup runs before
// the process exits.
func realMain(args []string) int {
	fs, flags := newFlagSet()
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := loadConfig(fs, flags)
	if err != nil {
		log.Print(err)
		return 1
	}

	logger, err := logging.New(cfg.Log.Level, true)
	if err != nil {
		log.Print(err)
		return 1
	}
	defer logger.Sync()

	if err := run(cfg, logger, fs.Args()); err != nil {
		logger.Error("mediassist stopped", zap.Error(err))
		return 1
	}
	return 0
}

func newFlagSet() (*flag.FlagSet, *Flags) {
	var flags Flags
	fs := flag.NewFlagSet("mediassist", flag.ContinueOnError)

	fs.StringVar(&flags.ConfigPath, "config", "", "Path to config file")
	fs.StringVar(&flags.Model, "model", "", "LLM model to use")
	fs.Float64Var(&flags.Temperature, "temperature", 0.7, "Set the LLM temperature")
	fs.IntVar(&flags.ChunkSize, "chunk-size", 1000, "Size of text chunks")
	fs.IntVar(&flags.ChunkOverlap, "chunk-overlap", 200, "Characters shared by consecutive chunks")
	fs.IntVar(&flags.TopK, "top-k", 3, "Chunks retrieved per question")
	fs.StringVar(&flags.Index, "index", "", "Index backend: memory or pgvector")
	fs.StringVar(&flags.DBUrl, "db-url", "", "PostgreSQL connection string")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: mediassist [flags] [file.pdf ...]\n")
		fs.PrintDefaults()
	}

	return fs, &flags
}

// loadConfig reads the config file, then applies only the flags that were
// set on the command line.
func loadConfig(fs *flag.FlagSet, flags *Flags) (*cfgPkg.Config, error) {
	cfg, err := cfgPkg.LoadConfig(flags.ConfigPath)
	if err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "model":
			cfg.LLM.Model = flags.Model
		case "temperature":
			cfg.LLM.Temperature = flags.Temperature
		case "chunk-size":
			cfg.Processor.ChunkSize = flags.ChunkSize
		case "chunk-overlap":
			cfg.Processor.ChunkOverlap = flags.ChunkOverlap
		case "top-k":
			cfg.Index.TopK = flags.TopK
		case "index":
			cfg.Index.Backend = flags.Index
		case "db-url":
			cfg.Index.DatabaseURL = flags.DBUrl
		}
	})

	return cfg, nil
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("files"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(cfg *cfgPkg.Config, logger *zap.Logger, paths []string) error {
	ctx := context.Background()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer a.Close()

	sess := a.Session
	color.Cyan("🏥 MediAssist - AI-powered medical document assistant")

	if len(paths) > 0 {
		addFiles(sess, paths)
		processFiles(ctx, sess)
	}

	color.Cyan("\nCommands: /add <file.pdf>, /url <link>, /process, /history, /reset, exit")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.ToLower(input) == "exit" {
			break
		}

		command, arg, _ := strings.Cut(input, " ")
		arg = strings.TrimSpace(arg)

		switch command {
		case "/add":
			addFiles(sess, strings.Fields(arg))
			continue
		case "/url":
			fetchFiles(ctx, a, arg)
			continue
		case "/process":
			processFiles(ctx, sess)
			continue
		case "/history":
			printHistory(sess.History())
			continue
		case "/reset":
			sess.Reset()
			color.Green("✓ Session cleared")
			continue
		}

		responseSpinner := getSpinner("🤖 Generating response...")
		entry, err := sess.Ask(ctx, input)
		responseSpinner.Finish()
		fmt.Print("\r")

		if errors.Is(err, types.ErrNotReady) {
			color.Yellow("⚠️ Please upload and process files first!")
			continue
		}
		if err != nil {
			color.Red("Error: %v\n", err)
			continue
		}
		assistantPrompt("MediAssist: %s\n", entry.Text)
	}

	return scanner.Err()
}

func addFiles(sess *session.Session, paths []string) {
	if len(paths) == 0 {
		color.Yellow("Usage: /add <file.pdf> [file.pdf ...]")
		return
	}

	bar := getProgressBar(len(paths), "📄 Loading files...")
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err == nil {
			err = sess.AddUpload(models.Upload{Name: filepath.Base(path), Data: data})
		}
		bar.Add(1)
		if err != nil {
			color.Red("\n✗ %s: %v", path, err)
		}
	}
	bar.Finish()
	color.Green("\n✓ %d file(s) queued", len(sess.Uploads()))
}

func fetchFiles(ctx context.Context, a *app.App, link string) {
	if link == "" {
		color.Yellow("Usage: /url <link>")
		return
	}

	spinner := getSpinner("🌐 Downloading documents...")
	uploads, err := a.Fetcher.Fetch(ctx, link)
	spinner.Finish()
	fmt.Print("\r")
	if err != nil {
		color.Red("Failed to fetch %s: %v", link, err)
		return
	}

	for _, u := range uploads {
		if err := a.Session.AddUpload(u); err != nil {
			color.Red("✗ %s: %v", u.Name, err)
		}
	}
	color.Green("✓ %d file(s) queued", len(a.Session.Uploads()))
}

func processFiles(ctx context.Context, sess *session.Session) {
	spinner := getSpinner("🔄 Analyzing your documents...")
	report, err := sess.Process(ctx)
	spinner.Finish()
	fmt.Print("\r")

	for _, skipped := range report.Skipped {
		color.Yellow("⚠️ Skipped %s", skipped)
	}
	if err != nil {
		color.Red("Processing failed: %v", err)
		return
	}
	color.Green("🎉 Processing complete! %d file(s), %d chunks. Ask your question.", report.Files, report.Chunks)
}

func printHistory(history []models.ConversationEntry) {
	if len(history) == 0 {
		color.Yellow("No conversation yet")
		return
	}

	for _, e := range history {
		if e.Role == models.RoleUser {
			color.Green("[%s] You: %s", e.Clock(), e.Text)
		} else {
			color.Cyan("[%s] MediAssist: %s", e.Clock(), e.Text)
		}
	}
}
