package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"segfetch/internal/clipboard"
	"segfetch/internal/config"
	"segfetch/internal/utils"
	"segfetch/pkg/segfetch"
)

type getOptions struct {
	output        string
	threads       int
	hash          string
	algorithm     string
	forceSingle   bool
	fromClipboard bool
	noHistory     bool
	lockDir       string
}

func newGetCmd(root *rootOptions) *cobra.Command {
	opts := &getOptions{}

	cmd := &cobra.Command{
		Use:   "get [url]",
		Short: "Download a file",
		Long: `Download a file using several concurrent range requests.
Without a URL argument the URL is read from the clipboard (--clipboard) or prompted for on stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd, root, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", ".", "Output file or directory")
	cmd.Flags().IntVarP(&opts.threads, "threads", "t", 0, "Number of parts (default from settings; 0 picks by size)")
	cmd.Flags().StringVar(&opts.hash, "hash", "", "Expected hex digest of the finished file")
	cmd.Flags().StringVar(&opts.algorithm, "algorithm", "", "Digest algorithm: SHA-256, SHA-1 or MD5 (default from settings)")
	cmd.Flags().BoolVar(&opts.forceSingle, "force-single", false, "Force single-connection downloader")
	cmd.Flags().BoolVar(&opts.fromClipboard, "clipboard", false, "Read URL from clipboard")
	cmd.Flags().BoolVar(&opts.noHistory, "no-history", false, "Do not record this download in the history database")
	cmd.Flags().StringVar(&opts.lockDir, "lock-dir", "", "Directory for destination lock files (default: runtime dir)")
	_ = cmd.Flags().MarkHidden("lock-dir")

	return cmd
}

func runGet(cmd *cobra.Command, root *rootOptions, opts *getOptions, args []string) error {
	out := cmd.OutOrStdout()

	rawURL, err := resolveURL(cmd.InOrStdin(), out, opts, args)
	if err != nil {
		return err
	}

	settings := *root.settings
	if cmd.Flags().Changed("threads") {
		settings.Network.Parts = opts.threads
	}
	if opts.forceSingle {
		settings.Download.ForceSingle = true
	}

	req := segfetch.Request{
		URL:          rawURL,
		Destination:  opts.output,
		Parts:        settings.Network.Parts,
		ExpectedHash: opts.hash,
	}
	if opts.hash != "" {
		name := opts.algorithm
		if name == "" {
			name = settings.Download.Algorithm
		}
		algo, err := segfetch.ParseAlgorithm(name)
		if err != nil {
			return err
		}
		req.Algorithm = algo
	}

	lockDir := opts.lockDir
	if lockDir == "" {
		lockDir = config.GetRuntimeDir()
	}
	lock, err := acquireDestinationLock(lockDir, opts.output)
	if err != nil {
		return err
	}
	defer func() { _ = lock.release() }()

	client, err := segfetch.NewClient(&segfetch.ClientOptions{
		Settings:       &settings,
		Verbose:        settings.General.Verbose,
		DisableHistory: opts.noHistory,
	})
	if err != nil {
		return err
	}
	shutdown := newShutdownCoordinator(client.Shutdown)
	defer func() { _ = shutdown.execute("get: deferred") }()

	renderer := newProgressRenderer(out, isTerminal(out))
	renderer.attach(client)

	if path := client.DebugLogPath(); path != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Debug log: %s\n", path)
	}

	ctx, stop := withSignals(cmd.Context())
	defer stop()

	res, dlErr := client.Download(ctx, req)

	// Drain the bus so every progress line is printed before the summary.
	if err := shutdown.execute("get: download returned"); err != nil && dlErr == nil {
		dlErr = err
	}
	if dlErr != nil {
		return dlErr
	}

	fmt.Fprintf(out, "Saved %s (%s, %d %s)\n", res.Path, humanize.Bytes(uint64(res.Size)), res.Parts, plural(res.Parts, "part", "parts"))
	if req.ExpectedHash != "" {
		fmt.Fprintf(out, "Checksum OK (%s)\n", req.Algorithm)
	}
	if settings.General.Verbose {
		if kind, ok, err := utils.DetectKind(res.Path); err == nil && ok {
			fmt.Fprintf(out, "Detected type: %s (%s)\n", kind.MIME, kind.Extension)
		}
	}
	return nil
}

// resolveURL picks the URL from the argument, the clipboard or a stdin prompt.
func resolveURL(in io.Reader, out io.Writer, opts *getOptions, args []string) (string, error) {
	if len(args) > 0 && opts.fromClipboard {
		return "", errors.New("give either a URL argument or --clipboard, not both")
	}
	if len(args) > 0 {
		return args[0], nil
	}
	if opts.fromClipboard {
		u, err := clipboard.ReadURL()
		if err != nil {
			return "", err
		}
		fmt.Fprintf(out, "URL from clipboard: %s\n", u)
		return u, nil
	}
	return promptForURL(in, out)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
