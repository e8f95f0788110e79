package main

import (
	"fmt"
	"os"

	"github.com/npillmayer/gorgel/encode"
	"github.com/npillmayer/gorgel/graphfile"
	"github.com/npillmayer/gorgel/redfsm"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	cfgFile    string
	traceLevel string
	encFlags   encodeFlags
)

var rootCmd = &cobra.Command{
	Use:   "gorgel",
	Short: "gorgel - table and code generator for state machine graphs",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		initDisplay()
		setTraceLevel(traceLevel)
		if cfgFile == "" {
			return nil
		}
		cfg, err := loadConfig(cfgFile)
		if err != nil {
			return err
		}
		cfg.apply(cmd, &encFlags, &genOpts)
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&traceLevel, "trace", "Error", "Trace level [Debug|Info|Error]")
	rootCmd.PersistentFlags().StringVarP(&encFlags.encoding, "encoding", "e", "bin", "Table encoding [flat|bin|switch]")
	rootCmd.PersistentFlags().BoolVar(&encFlags.classes, "classes", false, "Map keys through a character class table (flat)")
	rootCmd.PersistentFlags().StringVar(&encFlags.indices, "indices", "auto", "Address transitions through indices [auto|on|off] (bin)")
	rootCmd.PersistentFlags().Uint64Var(&encFlags.maxSpan, "max-span", 0, "Largest key span of a table row (flat)")
	rootCmd.AddCommand(genCmd)
	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(dotCmd)
	rootCmd.AddCommand(scanCmd)
}

// We use pterm for moderately fancy output.
func initDisplay() {
	pterm.Info.Prefix = pterm.Prefix{
		Text:  "  >>",
		Style: pterm.NewStyle(pterm.BgCyan, pterm.FgBlack),
	}
	pterm.Error.Prefix = pterm.Prefix{
		Text:  "  Error",
		Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack),
	}
}

// --- Encoding --------------------------------------------------------------

// encodeFlags are the command line flags selecting an encoding.
type encodeFlags struct {
	encoding string
	classes  bool
	indices  string
	maxSpan  uint64
}

func (ef encodeFlags) options() (encode.Options, error) {
	kind, err := encode.ParseKind(ef.encoding)
	if err != nil {
		return encode.Options{}, err
	}
	opts := encode.DefaultOptions(kind)
	opts.ClassMap = ef.classes
	opts.MaxSpan = ef.maxSpan
	switch ef.indices {
	case "", "auto":
		opts.Indices = encode.IndicesAuto
	case "on":
		opts.Indices = encode.IndicesOn
	case "off":
		opts.Indices = encode.IndicesOff
	default:
		return opts, fmt.Errorf("unknown indices mode %q", ef.indices)
	}
	return opts, nil
}

// loadGraph reads a graph file and encodes it.
func loadGraph(path string, ef encodeFlags) (*redfsm.Graph, *encode.Encoding, error) {
	opts, err := ef.options()
	if err != nil {
		return nil, nil, err
	}
	g, err := graphfile.Load(path)
	if err != nil {
		return nil, nil, err
	}
	enc, err := encode.Encode(g, opts)
	if err != nil {
		return g, nil, fmt.Errorf("%s: %w", path, err)
	}
	tracer().Infof("encoded %s as %s", g.Name, enc.Kind)
	return g, enc, nil
}

// --- Configuration ---------------------------------------------------------

// config holds defaults for flags. Flags given on the command line win.
type config struct {
	Encoding string `yaml:"encoding"`
	Classes  bool   `yaml:"classes"`
	Indices  string `yaml:"indices"`
	Driver   string `yaml:"driver"`
	Package  string `yaml:"package"`
	Prefix   string `yaml:"prefix"`
	Type     string `yaml:"type"`
}

func loadConfig(path string) (*config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	tracer().Debugf("config %s: %+v", path, *cfg)
	return cfg, nil
}

func (cfg *config) apply(cmd *cobra.Command, ef *encodeFlags, gf *genFlags) {
	set := func(flag string, dst *string, v string) {
		if v != "" && !cmd.Flags().Changed(flag) {
			*dst = v
		}
	}
	set("encoding", &ef.encoding, cfg.Encoding)
	set("indices", &ef.indices, cfg.Indices)
	set("driver", &gf.driver, cfg.Driver)
	set("package", &gf.pkg, cfg.Package)
	set("prefix", &gf.prefix, cfg.Prefix)
	set("type", &gf.typ, cfg.Type)
	if cfg.Classes && !cmd.Flags().Changed("classes") {
		ef.classes = true
	}
}
