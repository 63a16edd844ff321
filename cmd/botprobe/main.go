package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/msageha/botprobe/internal/channel"
	"github.com/msageha/botprobe/internal/model"
	"github.com/msageha/botprobe/internal/runner"
	"github.com/msageha/botprobe/internal/validate"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runProbe(os.Args[2:])
	case "simple":
		runSimple(os.Args[2:])
	case "post":
		runPost(os.Args[2:])
	case "watch":
		runWatch(os.Args[2:])
	case "version":
		fmt.Printf("botprobe %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: botprobe <command> [options]

commands:
  run      post a trigger and validate the responder's reply
  simple   like run, with the standard validator set only
  post     append a message to a file channel (play the responder)
  watch    tail new messages on a file channel
  version  print version`)
}

// loadConfig merges -config file contents (if any) with flag overrides.
func loadConfig(path, responder, dir string) (model.ProbeConfig, error) {
	cfg := model.DefaultProbeConfig()
	if path != "" {
		var err error
		cfg, err = model.LoadProbeConfig(path)
		if err != nil {
			return cfg, err
		}
	}
	if responder != "" {
		cfg.ResponderID = responder
	}
	if cfg.ChannelID == "" {
		cfg.ChannelID = dir
	}
	return cfg, nil
}

func runProbe(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "probe config YAML")
	dir := fs.String("dir", "", "file channel directory (required)")
	responder := fs.String("responder", "", "responder author identity")
	message := fs.String("message", "", "trigger message body (required)")
	contains := fs.String("contains", "", "additionally require this substring in the reply")
	logLevel := fs.String("log-level", "info", "debug|info|warn|error")
	fs.Parse(args)

	if *dir == "" || *message == "" {
		fmt.Fprintln(os.Stderr, "usage: botprobe run -dir <channel-dir> -message <text> [options]")
		os.Exit(1)
	}

	validators := []validate.Validator{
		validate.NoErrorKeywords(),
		validate.HasSuccessIndicators(),
	}
	if *contains != "" {
		validators = append(validators, validate.Contains(*contains))
	}

	resp := execute(*configPath, *dir, *responder, *logLevel, func(ctx context.Context, r *runner.Runner) (*model.Response, error) {
		return r.RunWithRetry(ctx, *message, validators)
	})
	report(resp)
}

func runSimple(args []string) {
	fs := flag.NewFlagSet("simple", flag.ExitOnError)
	configPath := fs.String("config", "", "probe config YAML")
	dir := fs.String("dir", "", "file channel directory (required)")
	responder := fs.String("responder", "", "responder author identity")
	message := fs.String("message", "", "trigger message body (required)")
	expectSuccess := fs.Bool("expect-success", true, "require success indicators in the reply")
	logLevel := fs.String("log-level", "info", "debug|info|warn|error")
	fs.Parse(args)

	if *dir == "" || *message == "" {
		fmt.Fprintln(os.Stderr, "usage: botprobe simple -dir <channel-dir> -message <text> [options]")
		os.Exit(1)
	}

	validators := []validate.Validator{validate.NoErrorKeywords()}
	if *expectSuccess {
		validators = append(validators, validate.HasSuccessIndicators())
	}

	resp := execute(*configPath, *dir, *responder, *logLevel, func(ctx context.Context, r *runner.Runner) (*model.Response, error) {
		return r.RunWithRetry(ctx, *message, validators)
	})
	if resp.Passed {
		fmt.Println("PASS")
		return
	}
	fmt.Println("FAIL")
	os.Exit(1)
}

// execute wires config, channel, watcher, and runner, then runs fn.
func execute(configPath, dir, responder, logLevel string, fn func(context.Context, *runner.Runner) (*model.Response, error)) *model.Response {
	cfg, err := loadConfig(configPath, responder, dir)
	if err != nil {
		fatal(err)
	}

	ch, err := channel.OpenFile(dir, "botprobe")
	if err != nil {
		fatal(err)
	}

	logger := log.New(os.Stderr, "botprobe ", log.LstdFlags)
	r, err := runner.New(cfg, ch, logger, runner.ParseLogLevel(logLevel))
	if err != nil {
		fatal(err)
	}

	if w, err := ch.Watch(); err == nil {
		defer w.Close()
		r.SetWake(w.Wake())
	} else {
		logger.Printf("[WARN] channel watch unavailable, falling back to plain polling: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resp, err := fn(ctx, r)
	if err != nil {
		fatal(err)
	}
	return resp
}

func report(resp *model.Response) {
	if resp.Passed {
		fmt.Printf("PASS id=%d elapsed=%.1fs\n", resp.ID, resp.Elapsed.Seconds())
		return
	}
	fmt.Printf("FAIL: %s\n", resp.FailureDetail)
	os.Exit(1)
}

func runPost(args []string) {
	fs := flag.NewFlagSet("post", flag.ExitOnError)
	dir := fs.String("dir", "", "file channel directory (required)")
	author := fs.String("author", "", "author identity (required)")
	message := fs.String("message", "", "message body (required)")
	fs.Parse(args)

	if *dir == "" || *author == "" || *message == "" {
		fmt.Fprintln(os.Stderr, "usage: botprobe post -dir <channel-dir> -author <name> -message <text>")
		os.Exit(1)
	}

	ch, err := channel.OpenFile(*dir, *author)
	if err != nil {
		fatal(err)
	}
	id, err := ch.Post(context.Background(), *message)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("posted id=%d\n", id)
}

func runWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	dir := fs.String("dir", "", "file channel directory (required)")
	interval := fs.Int("interval", 5, "fallback scan interval in seconds")
	fs.Parse(args)

	if *dir == "" {
		fmt.Fprintln(os.Stderr, "usage: botprobe watch -dir <channel-dir> [-interval sec]")
		os.Exit(1)
	}

	ch, err := channel.OpenFile(*dir, "botprobe")
	if err != nil {
		fatal(err)
	}
	w, err := ch.Watch()
	if err != nil {
		fatal(err)
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(time.Duration(*interval) * time.Second)
	defer ticker.Stop()

	var watermark int64
	for {
		msgs, err := ch.ListSince(ctx, watermark)
		if err == nil {
			for _, m := range msgs {
				fmt.Printf("%s [%d] %s: %s\n", m.CreatedAt.Format(time.RFC3339), m.ID, m.Author, m.Body)
				if m.ID > watermark {
					watermark = m.ID
				}
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-w.Wake():
		case <-ticker.C:
		}
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "botprobe: %v\n", err)
	os.Exit(1)
}
