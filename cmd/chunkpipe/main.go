package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/jaddr2line/chunkpipe"
	"github.com/jaddr2line/chunkpipe/internal/runlog"
	"github.com/jaddr2line/chunkpipe/transform"
	"go.uber.org/zap"
)

func main() {
	os.Exit(cli(os.Args[1:]))
}

// cli runs the command and returns its exit code.
// Deferred cleanup, including flushing the logger, completes before the process exits.
func cli(args []string) int {
	var input string
	var output string
	var name string
	var level int
	var record string
	var list bool
	var verbose bool
	var opts chunkpipe.Options

	fs := flag.NewFlagSet("chunkpipe", flag.ContinueOnError)
	fs.StringVar(&input, "i", "-", "input source (path, file:// or http(s):// URL)")
	fs.StringVar(&output, "o", "-", "output destination (path or file:// URL)")
	fs.StringVar(&name, "t", "identity", "transform to apply (identity/crc32/xxhash/lines/gzip/lz4/zstd)")
	fs.IntVar(&level, "l", 0, "compression level")
	fs.IntVar(&opts.ChunkSize, "c", chunkpipe.DefaultChunkSize, "chunk size in bytes")
	fs.StringVar(&record, "record", "", "record runs in this database")
	fs.BoolVar(&list, "list", false, "list recorded runs instead of running")
	fs.BoolVar(&verbose, "v", false, "verbose logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var logger *zap.Logger
	var err error
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %s\n", err)
		return 1
	}
	defer logger.Sync()
	opts.Logger = logger

	if list {
		if record == "" {
			logger.Error("-list requires -record")
			return 2
		}
		if err := listRuns(record); err != nil {
			logger.Error("failed to list runs", zap.Error(err))
			return 1
		}
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rec := runlog.Record{
		Transform: name,
		Source:    input,
		Sink:      output,
		Started:   time.Now(),
	}
	err = run(ctx, &rec, level, opts)
	rec.Duration = time.Since(rec.Started)
	if err != nil {
		rec.Error = err.Error()
	}

	if record != "" {
		if rerr := saveRun(record, rec); rerr != nil {
			logger.Error("failed to record run", zap.Error(rerr))
		}
	}
	if err != nil {
		logger.Error("pipeline failed", zap.String("transform", name), zap.Error(err))
		return 1
	}
	logger.Info("pipeline completed",
		zap.String("transform", name),
		zap.Int64("bytes_in", rec.BytesIn),
		zap.Int64("bytes_out", rec.BytesOut),
		zap.Duration("duration", rec.Duration))
	return 0
}

func run(ctx context.Context, rec *runlog.Record, level int, opts chunkpipe.Options) error {
	sr, err := openSource(rec.Source)
	if err != nil {
		return err
	}
	defer sr.Close()

	sw, err := openSink(rec.Sink)
	if err != nil {
		return err
	}
	defer sw.Close()

	in := &counter{r: sr}
	out := &counter{w: sw}
	err = apply(ctx, rec.Transform, level, out, in, opts)
	rec.BytesIn, rec.BytesOut = in.n, out.n
	if err != nil {
		return err
	}

	err = sr.Close()
	if err != nil {
		return err
	}
	return sw.Close()
}

// apply runs the named transform.
func apply(ctx context.Context, name string, level int, dst io.Writer, src io.Reader, opts chunkpipe.Options) error {
	switch name {
	case "identity":
		return chunkpipe.Process(ctx, dst, src, transform.Identity, opts)
	case "crc32":
		return chunkpipe.Process(ctx, dst, src, transform.CRC32, opts)
	case "xxhash":
		return chunkpipe.Process(ctx, dst, src, transform.XXHash, opts)
	case "lines":
		return chunkpipe.Process(ctx, dst, src, transform.NumberLines, opts)
	default:
		fn, err := transform.Compress(name, level)
		if err != nil {
			return fmt.Errorf("unknown transform %q: %w", name, err)
		}
		return chunkpipe.Process(ctx, dst, src, fn, opts)
	}
}

func openSource(src string) (io.ReadCloser, error) {
	if src == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	u, err := url.Parse(src)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "", "file":
		return os.Open(u.Path)
	case "http", "https":
		resp, err := http.Get(u.String())
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("failed to download: %s", resp.Status)
		}
		return resp.Body, nil
	default:
		return nil, errors.New("unsupported url scheme")
	}
}

func openSink(dst string) (io.WriteCloser, error) {
	if dst == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	u, err := url.Parse(dst)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "", "file":
		return os.OpenFile(u.Path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0640)
	default:
		return nil, errors.New("unsupported url scheme")
	}
}

func saveRun(path string, rec runlog.Record) error {
	l, err := runlog.Open(path)
	if err != nil {
		return err
	}
	defer l.Close()
	_, err = l.Add(rec)
	return err
}

func listRuns(path string) error {
	l, err := runlog.Open(path)
	if err != nil {
		return err
	}
	defer l.Close()
	recs, err := l.List()
	if err != nil {
		return err
	}
	for _, r := range recs {
		status := "ok"
		if r.Error != "" {
			status = r.Error
		}
		fmt.Printf("%s %s %s -> %s (%d -> %d bytes, %s) %s\n",
			r.ID, r.Transform, r.Source, r.Sink, r.BytesIn, r.BytesOut, r.Duration, status)
	}
	return nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// counter counts the bytes passing through a reader or writer.
type counter struct {
	r io.Reader
	w io.Writer
	n int64
}

func (c *counter) Read(dst []byte) (int, error) {
	n, err := c.r.Read(dst)
	c.n += int64(n)
	return n, err
}

func (c *counter) Write(src []byte) (int, error) {
	n, err := c.w.Write(src)
	c.n += int64(n)
	return n, err
}
