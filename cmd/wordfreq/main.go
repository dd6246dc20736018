// Command wordfreq counts the words of files, standard input or stored
// objects and prints "count<TAB>word" lines in ascending count order.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/suenchunyu/word-frequency/internal/config"
	"github.com/suenchunyu/word-frequency/internal/frequency"
	"github.com/suenchunyu/word-frequency/internal/job"
	"github.com/suenchunyu/word-frequency/internal/logger"
	"github.com/suenchunyu/word-frequency/internal/sink"
	"github.com/suenchunyu/word-frequency/pkg/rank"
	"google.golang.org/grpc"
)

var (
	configFileName = flag.String("config", "", "config filename, empty for defaults")
	store          = flag.Bool("store", false, "treat arguments as object names in the configured task store")
	persist        = flag.Bool("persist", false, "keep the result in the configured result store")
	remote         = flag.String("remote", "", "address of a wordfreq server to run the job on")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] [file|object ...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	c := config.Default()
	if *configFileName != "" {
		if err := config.Load(*configFileName, c); err != nil {
			log.Fatal().Err(err).Str("config", *configFileName).Msg("failed to load config")
		}
	}

	l, err := logger.New(c.Log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build logger")
	}

	format, err := sink.FormatFromString(c.Sink.Format)
	if err != nil {
		l.Fatal().Err(err).Msg("invalid sink format")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var entries []rank.Entry[string, string]
	if *remote != "" {
		entries, err = runRemote(ctx, l, c.MaxMessageSize, flag.Args())
	} else {
		entries, err = runLocal(ctx, c, l, flag.Args())
	}
	if err != nil {
		l.Fatal().Err(err).Msg("word frequency job failed")
	}

	w := sink.New(os.Stdout, format, c.Sink.Buffer)
	if err = w.Write(entries); err == nil {
		err = w.Flush()
	}
	if err != nil {
		l.Fatal().Err(err).Msg("failed to write result")
	}
}

func runLocal(ctx context.Context, c *config.Config, l zerolog.Logger, args []string) ([]rank.Entry[string, string], error) {
	runner, err := job.FromConfig(c, l)
	if err != nil {
		return nil, err
	}

	if *store {
		j, entries, err := runner.Run(ctx, args, *persist)
		if err != nil {
			return nil, err
		}
		logResult(l, j.ID, j.Result)
		return entries, nil
	}

	names, readers, closeAll, err := openInputs(args)
	if err != nil {
		return nil, err
	}
	defer closeAll()

	j, entries, err := runner.RunReaders(ctx, names, readers, *persist)
	if err != nil {
		return nil, err
	}
	logResult(l, j.ID, j.Result)
	return entries, nil
}

func runRemote(ctx context.Context, l zerolog.Logger, maxMessageSize int, args []string) ([]rank.Entry[string, string], error) {
	opts := []grpc.DialOption{grpc.WithInsecure()}
	if maxMessageSize > 0 {
		opts = append(opts, frequency.WithMaxMessageSize(maxMessageSize))
	}

	client, err := frequency.Dial(*remote, opts...)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	var r *frequency.Result
	if *store {
		r, err = client.RankObjects(ctx, args, *persist)
	} else {
		var text string
		if text, err = readText(args); err != nil {
			return nil, err
		}
		r, err = client.RankText(ctx, text, *persist)
	}
	if err != nil {
		return nil, err
	}

	logResult(l, r.JobID, r.Object)
	return r.Entries, nil
}

// openInputs opens the named files, or standard input when there are none.
func openInputs(args []string) ([]string, []io.Reader, func(), error) {
	if len(args) == 0 {
		return []string{"-"}, []io.Reader{os.Stdin}, func() {}, nil
	}

	readers := make([]io.Reader, 0, len(args))
	files := make([]*os.File, 0, len(args))
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}

	for _, name := range args {
		f, err := os.Open(name)
		if err != nil {
			closeAll()
			return nil, nil, nil, err
		}
		files = append(files, f)
		readers = append(readers, f)
	}
	return args, readers, closeAll, nil
}

// readText joins the inputs line-separated, so words never run together
// across files.
func readText(args []string) (string, error) {
	names, readers, closeAll, err := openInputs(args)
	if err != nil {
		return "", err
	}
	defer closeAll()

	var sb strings.Builder
	for i, r := range readers {
		if _, err = io.Copy(&sb, r); err != nil {
			return "", fmt.Errorf("read %s: %w", names[i], err)
		}
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

func logResult(l zerolog.Logger, id, result string) {
	e := l.Info().Str("job", id)
	if result != "" {
		e = e.Str("result", result)
	}
	e.Msg("job done")
}
