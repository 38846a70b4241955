package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/muesli/reflow/truncate"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/term"
	"pkt.systems/version"

	"github.com/heathj/browsefront/parser"
	"github.com/heathj/browsefront/url"
)

func init() {
	version.SetDefaultModule("github.com/heathj/browsefront")
}

type options struct {
	rawURL      string
	logLevel    string
	script      bool
	width       int
	showVersion bool
}

func main() {
	var opts options
	flags := pflag.NewFlagSet("browsefront", pflag.ExitOnError)
	flags.StringVarP(&opts.rawURL, "url", "u", "", "Decompose an http URL instead of tokenizing HTML")
	flags.StringVarP(&opts.logLevel, "log-level", "l", "warn", "Log level: trace|debug|info|warn|error")
	flags.BoolVar(&opts.script, "script", true, "Switch to script data after <script> like a tree builder would")
	flags.IntVarP(&opts.width, "width", "w", 0, "Truncate token lines to this width (0 uses terminal width if available)")
	flags.BoolVarP(&opts.showVersion, "version", "v", false, "Print version and exit")
	flags.Usage = func() {
		fmt.Fprintln(os.Stderr, version.Module(), version.Current())
		fmt.Fprintf(os.Stderr, "Usage: browsefront [flags] [file]\n")
		fmt.Fprintln(os.Stderr, "\nWithout --url, HTML is read from file or stdin and printed one token per line.")
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flags.PrintDefaults()
	}
	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	if opts.showVersion {
		fmt.Println(version.Module(), version.Current())
		return
	}

	if err := setupLogging(opts.logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "invalid --log-level %q: %v\n", opts.logLevel, err)
		os.Exit(2)
	}

	if opts.rawURL != "" {
		if err := printURL(os.Stdout, opts.rawURL); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		return
	}

	in, closer, err := openInput(flags.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "open input: %v\n", err)
		os.Exit(1)
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	if err := printTokens(os.Stdout, in, opts.script, resolveWidth(opts.width)); err != nil {
		fmt.Fprintf(os.Stderr, "tokenize: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{
		ForceColors:   isTerminal(os.Stderr),
		DisableColors: !isTerminal(os.Stderr),
	})
	return nil
}

func openInput(args []string) (io.Reader, io.Closer, error) {
	switch len(args) {
	case 0:
		return os.Stdin, nil, nil
	case 1:
		if args[0] == "-" {
			return os.Stdin, nil, nil
		}
		f, err := os.Open(args[0])
		if err != nil {
			return nil, nil, err
		}
		return f, f, nil
	default:
		return nil, nil, errors.Errorf("expected at most one input file, got %d", len(args))
	}
}

func printURL(w io.Writer, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "host: %s\n", u.Host())
	fmt.Fprintf(w, "port: %d\n", u.Port())
	if path, ok := u.Path(); ok {
		fmt.Fprintf(w, "path: %s\n", path)
	} else {
		fmt.Fprintln(w, "path: (none)")
	}
	sp := u.Searchpart()
	keys := make([]string, 0, len(sp))
	for k := range sp {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "query: %s=%s\n", k, sp[k])
	}
	return nil
}

func printTokens(w io.Writer, in io.Reader, scriptAware bool, width int) error {
	tokenizer, err := parser.NewHTMLTokenizerFromReader(in)
	if err != nil {
		return err
	}
	sink := parser.TokenSinkFunc(func(tok parser.Token) (*parser.State, error) {
		line := tok.String()
		if width > 0 {
			line = truncate.StringWithTail(line, uint(width), "…")
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return nil, errors.Wrap(err, "writing token")
		}
		if scriptAware {
			return parser.ScriptDataSwitch(tok), nil
		}
		return nil, nil
	})

	count, err := parser.NewParser(tokenizer, sink).Start()
	if err != nil {
		return err
	}
	logrus.WithField("tokens", count).Info("tokenized input")
	return nil
}

func resolveWidth(flagWidth int) int {
	if flagWidth > 0 {
		return flagWidth
	}
	if !isTerminal(os.Stdout) {
		return 0
	}
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 0
	}
	return w
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
