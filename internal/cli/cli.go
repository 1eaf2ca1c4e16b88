// Package cli implements the jp command line tool: JSONPath queries,
// JSON Pointer resolution and JSON Patch application over JSON or YAML
// documents.
package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	yaml "github.com/goccy/go-yaml"
	"github.com/tidwall/pretty"

	"github.com/jacoelho/jsonpath"
	"github.com/jacoelho/jsonpath/internal/exit"
	"github.com/jacoelho/jsonpath/orderedmap"
	"github.com/jacoelho/jsonpath/patch"
	"github.com/jacoelho/jsonpath/pointer"
)

const usage = `usage: jp <command> [flags]

Commands:
  path     find values matching a JSONPath query
  pointer  resolve an RFC 6901 JSON Pointer
  patch    apply an RFC 6902 JSON Patch document

Run 'jp <command> -h' for command flags.
`

// Command selects the jp subcommand.
type Command int

const (
	CommandPath Command = iota + 1
	CommandPointer
	CommandPatch
)

// Config is the parsed command line.
type Config struct {
	Command Command

	Query     string // JSONPath or pointer text
	QueryFile string // file containing the query text
	PatchFile string // file containing a JSON Patch document

	DataFile   string // input document, default stdin
	OutputFile string // output destination, default stdout

	FromYAML        bool
	Pretty          bool
	NoTypeChecks    bool
	NoUnicodeEscape bool
	Strict          bool
	URIDecode       bool
}

// Parse interprets command line arguments. It returns a non-nil exit
// result for usage errors and help requests.
func Parse(args []string) (*Config, *exit.Result) {
	if len(args) < 2 {
		return nil, exit.UsageErrorf("%s", usage)
	}

	cfg := &Config{}
	switch args[1] {
	case "path":
		cfg.Command = CommandPath
	case "pointer":
		cfg.Command = CommandPointer
	case "patch":
		cfg.Command = CommandPatch
	case "-h", "--help", "help":
		return nil, &exit.Result{Output: os.Stdout, ExitCode: 0, Message: usage}
	default:
		return nil, exit.UsageErrorf("jp: unknown command %q\n%s", args[1], usage)
	}

	fs := flag.NewFlagSet("jp "+args[1], flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.Query, "q", "", "query text (JSONPath or pointer)")
	fs.StringVar(&cfg.QueryFile, "r", "", "file to read the query text from")
	fs.StringVar(&cfg.DataFile, "f", "", "input document file (default stdin)")
	fs.StringVar(&cfg.OutputFile, "o", "", "output file (default stdout)")
	fs.BoolVar(&cfg.FromYAML, "yaml", false, "decode the input document as YAML")
	fs.BoolVar(&cfg.Pretty, "pretty", false, "pretty-print output")
	fs.BoolVar(&cfg.NoTypeChecks, "no-type-checks", false, "disable filter well-typedness checks")
	fs.BoolVar(&cfg.NoUnicodeEscape, "no-unicode-escape", false, "disable \\uXXXX decoding in queries")
	fs.BoolVar(&cfg.Strict, "strict", false, "reject non-standard JSONPath syntax")
	if cfg.Command == CommandPatch {
		fs.StringVar(&cfg.PatchFile, "p", "", "JSON Patch document file")
	}
	if cfg.Command == CommandPointer {
		fs.BoolVar(&cfg.URIDecode, "u", false, "percent-decode the pointer before parsing")
	}

	if err := fs.Parse(args[2:]); err != nil {
		if err == flag.ErrHelp {
			var b strings.Builder
			fs.SetOutput(&b)
			fs.PrintDefaults()
			return nil, &exit.Result{Output: os.Stdout, ExitCode: 0, Message: b.String()}
		}
		return nil, exit.UsageErrorf("jp: %v\n", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, exit.UsageErrorf("jp: %v\n", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Command {
	case CommandPath, CommandPointer:
		if c.Query == "" && c.QueryFile == "" {
			return fmt.Errorf("a query is required, use -q or -r")
		}
	case CommandPatch:
		if c.PatchFile == "" {
			return fmt.Errorf("a patch document is required, use -p")
		}
	}
	return nil
}

// Run executes the parsed command and returns its exit result.
func Run(cfg *Config) *exit.Result {
	data, err := readDocument(cfg)
	if err != nil {
		return exit.Errorf("jp: %v\n", err)
	}

	var result any
	switch cfg.Command {
	case CommandPath:
		result, err = runPath(cfg, data)
	case CommandPointer:
		result, err = runPointer(cfg, data)
	case CommandPatch:
		result, err = runPatch(cfg, data)
	}
	if err != nil {
		return exit.Errorf("jp: %v\n", err)
	}

	if err := writeResult(cfg, result); err != nil {
		return exit.Errorf("jp: %v\n", err)
	}
	return exit.Success("")
}

func (c *Config) queryText() (string, error) {
	if c.QueryFile == "" {
		return c.Query, nil
	}
	text, err := os.ReadFile(c.QueryFile)
	if err != nil {
		return "", err
	}
	return string(text), nil
}

func runPath(cfg *Config, data any) (any, error) {
	query, err := cfg.queryText()
	if err != nil {
		return nil, err
	}

	opts := []jsonpath.Option{}
	if cfg.NoTypeChecks {
		opts = append(opts, jsonpath.WithoutTypeChecks())
	}
	if cfg.NoUnicodeEscape {
		opts = append(opts, jsonpath.WithoutUnicodeEscape())
	}
	if cfg.Strict {
		opts = append(opts, jsonpath.WithStrictMode())
	}
	env := jsonpath.NewEnvironment(opts...)

	return env.FindAll(query, data, nil)
}

func runPointer(cfg *Config, data any) (any, error) {
	query, err := cfg.queryText()
	if err != nil {
		return nil, err
	}
	ptr, err := pointer.ParseWithOptions(query, pointer.Options{
		UnicodeEscape: !cfg.NoUnicodeEscape,
		URIDecode:     cfg.URIDecode,
	})
	if err != nil {
		return nil, err
	}
	return ptr.Resolve(data)
}

func runPatch(cfg *Config, data any) (any, error) {
	patchDoc, err := os.ReadFile(cfg.PatchFile)
	if err != nil {
		return nil, err
	}
	p, err := patch.Parse(patchDoc)
	if err != nil {
		return nil, err
	}
	return p.Apply(data)
}

// readDocument loads and decodes the input document. YAML input is
// decoded into the same JSON-shaped values the engine operates on.
func readDocument(cfg *Config) (any, error) {
	var raw []byte
	var err error
	if cfg.DataFile == "" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(cfg.DataFile)
	}
	if err != nil {
		return nil, err
	}

	if cfg.FromYAML {
		var doc any
		if err := yaml.UnmarshalWithOptions(raw, &doc, yaml.UseOrderedMap()); err != nil {
			return nil, fmt.Errorf("invalid YAML document: %w", err)
		}
		return fromYAML(doc), nil
	}
	// Hand the raw text to the engine's decoder so numbers stay exact
	// and object member order is preserved.
	return jsonpath.DecodeJSON(raw)
}

// fromYAML converts goccy's ordered mapping representation into the
// engine's, keeping member order.
func fromYAML(value any) any {
	switch v := value.(type) {
	case yaml.MapSlice:
		obj := orderedmap.NewWithCapacity(len(v))
		for _, item := range v {
			obj.Set(fmt.Sprint(item.Key), fromYAML(item.Value))
		}
		return obj
	case []any:
		converted := make([]any, len(v))
		for i, element := range v {
			converted[i] = fromYAML(element)
		}
		return converted
	default:
		return v
	}
}

func writeResult(cfg *Config, result any) error {
	encoded, err := jsonpath.EncodeJSON(result)
	if err != nil {
		return err
	}
	if cfg.Pretty {
		encoded = pretty.Pretty(encoded)
	} else {
		encoded = append(encoded, '\n')
	}

	if cfg.OutputFile == "" {
		_, err = os.Stdout.Write(encoded)
		return err
	}
	return os.WriteFile(cfg.OutputFile, encoded, 0o644)
}
