package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/anirudhraja/protocodec"
	"github.com/anirudhraja/protocodec/framing"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath     string
	protoPaths     []string
	protos         []string
	descriptorSets []string
	logLevel       string
}

// ioFlags select where bytes come from and how they are laid out.
type ioFlags struct {
	in          string
	format      string
	frame       bool
	compression string
	maxSize     int
}

func (f *ioFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.in, "in", "i", "", "input file (default stdin)")
	cmd.Flags().StringVarP(&f.format, "format", "f", formatRaw, "protobuf byte format: raw, hex or base64")
	cmd.Flags().BoolVar(&f.frame, "frame", false, "treat protobuf bytes as a stream of length-prefixed messages")
	cmd.Flags().StringVar(&f.compression, "compression", framing.Identity, "frame compression when --frame is set")
	cmd.Flags().IntVar(&f.maxSize, "max-message-size", framing.DefaultMaxMessageSize, "largest accepted frame in bytes")
}

func (f *ioFlags) framingOptions() ([]framing.Option, error) {
	compressor, err := framing.GetCompressor(f.compression)
	if err != nil {
		return nil, err
	}
	return []framing.Option{
		framing.WithCompressor(compressor),
		framing.WithMaxMessageSize(f.maxSize),
	}, nil
}

func (f *ioFlags) open(stdin io.Reader) (io.ReadCloser, error) {
	if f.in == "" || f.in == "-" {
		return io.NopCloser(stdin), nil
	}
	return os.Open(f.in)
}

// newRootCommand builds the command tree. Streams are injected so commands can
// run in tests.
func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "protocodec",
		Short:         "Encode and decode protobuf messages against .proto schemas",
		Long:          "protocodec converts between JSON and the protobuf wire format using schemas loaded at runtime, without generated code.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "YAML config file")
	pf.StringSliceVarP(&g.protoPaths, "proto-path", "I", nil, "directory to search for .proto files and imports")
	pf.StringSliceVarP(&g.protos, "proto", "p", nil, ".proto file to load, relative to a proto path")
	pf.StringSliceVar(&g.descriptorSets, "descriptor-set", nil, "serialized FileDescriptorSet to load")
	pf.StringVar(&g.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newEncodeCommand(g),
		newDecodeCommand(g),
		newRawCommand(g),
		newSchemaCommand(g),
	)
	return root
}

// session is the state one command invocation works with.
type session struct {
	codec  *protocodec.Codec
	logger *zap.Logger
}

// newSession merges flags over the config file, builds the logger and loads
// every configured schema.
func newSession(g *globalFlags) (*session, error) {
	cfg, err := loadConfig(g.configPath)
	if err != nil {
		return nil, err
	}
	cfg.ProtoPaths = append(cfg.ProtoPaths, g.protoPaths...)
	cfg.Protos = append(cfg.Protos, g.protos...)
	cfg.DescriptorSets = append(cfg.DescriptorSets, g.descriptorSets...)
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}

	logger, err := cfg.Logger()
	if err != nil {
		return nil, err
	}

	codec := protocodec.New(
		protocodec.WithConfig(cfg.WireConfig()),
		protocodec.WithLogger(logger),
		protocodec.WithProtoDirectories(cfg.ProtoPaths...),
	)
	for _, file := range cfg.Protos {
		if err := codec.LoadSchemaFromFile(filepath.ToSlash(file)); err != nil {
			return nil, err
		}
	}
	for _, path := range cfg.DescriptorSets {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading descriptor set: %w", err)
		}
		if err := codec.LoadDescriptorSet(data); err != nil {
			return nil, fmt.Errorf("loading descriptor set %s: %w", path, err)
		}
	}
	return &session{codec: codec, logger: logger}, nil
}

func (s *session) close() {
	_ = s.logger.Sync()
}
