package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/anirudhraja/protocodec/framing"
	"github.com/anirudhraja/protocodec/wire"
)

func newEncodeCommand(g *globalFlags) *cobra.Command {
	f := &ioFlags{}
	cmd := &cobra.Command{
		Use:   "encode <message-type>",
		Short: "Encode JSON messages to protobuf",
		Long: `Reads JSON objects and writes their protobuf encoding.
Without --frame the input must hold exactly one object.`,
		Example: `  echo '{"name":"CreateShelf"}' | protocodec encode -p library.proto library.Shelf -f hex`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(g)
			if err != nil {
				return err
			}
			defer s.close()

			in, err := f.open(cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer in.Close()

			var out bytes.Buffer
			var writer *framing.Writer
			if f.frame {
				opts, err := f.framingOptions()
				if err != nil {
					return err
				}
				writer = framing.NewWriter(&out, opts...)
			}

			dec := json.NewDecoder(in)
			count := 0
			for dec.More() {
				var msg map[string]interface{}
				if err := dec.Decode(&msg); err != nil {
					return fmt.Errorf("reading JSON message %d: %w", count+1, err)
				}
				if count > 0 && writer == nil {
					return errors.New("input holds several JSON messages; use --frame")
				}
				count++

				data, err := s.codec.Marshal(msg, args[0])
				if err != nil {
					return fmt.Errorf("encoding message %d: %w", count, err)
				}
				if writer == nil {
					out.Write(data)
					continue
				}
				if err := writer.WriteMessage(data); err != nil {
					return fmt.Errorf("framing message %d: %w", count, err)
				}
			}
			if count == 0 {
				return errors.New("no JSON message in input")
			}
			s.logger.Debug("encoded", zap.String("message", args[0]), zap.Int("count", count), zap.Int("bytes", out.Len()))

			formatted, err := formatBytes(f.format, out.Bytes())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(formatted)
			return err
		},
	}
	f.register(cmd)
	return cmd
}

func newDecodeCommand(g *globalFlags) *cobra.Command {
	f := &ioFlags{}
	var indent bool
	cmd := &cobra.Command{
		Use:   "decode <message-type>",
		Short: "Decode protobuf messages to JSON",
		Long: `Reads protobuf bytes and writes each message as a JSON object.
With --frame every length-prefixed message is written on its own line.`,
		Example: `  printf '0a0b4372656174655368656c66' | protocodec decode -p library.proto library.Shelf -f hex`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(g)
			if err != nil {
				return err
			}
			defer s.close()

			payloads, err := readPayloads(cmd.InOrStdin(), f)
			if err != nil {
				return err
			}
			for i, payload := range payloads {
				msg, err := s.codec.Unmarshal(payload, args[0])
				if err != nil {
					return fmt.Errorf("decoding message %d: %w", i+1, err)
				}
				if err := writeJSON(cmd.OutOrStdout(), jsonValue(msg), indent); err != nil {
					return err
				}
			}
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&indent, "indent", false, "indent JSON output")
	return cmd
}

// rawField is the JSON shape of a schemaless field.
type rawField struct {
	Offset   int         `json:"offset"`
	Field    int32       `json:"field"`
	WireType string      `json:"wire_type"`
	Value    interface{} `json:"value"`
	Nested   []rawField  `json:"nested,omitempty"`
}

func toRawFields(fields []wire.RawField) []rawField {
	out := make([]rawField, 0, len(fields))
	for _, f := range fields {
		rf := rawField{
			Offset:   f.Offset,
			Field:    int32(f.FieldNumber),
			WireType: f.WireType.String(),
			Value:    f.Data,
			Nested:   toRawFields(f.Nested),
		}
		if group, ok := f.Data.([]wire.RawField); ok {
			rf.Value = nil
			rf.Nested = toRawFields(group)
		}
		if len(rf.Nested) == 0 {
			rf.Nested = nil
		}
		out = append(out, rf)
	}
	return out
}

func newRawCommand(g *globalFlags) *cobra.Command {
	f := &ioFlags{}
	cmd := &cobra.Command{
		Use:   "raw",
		Short: "Dump protobuf fields without a schema",
		Long: `Lists every field by number and wire type. Length-delimited payloads
that parse as messages are expanded under "nested".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(g)
			if err != nil {
				return err
			}
			defer s.close()

			payloads, err := readPayloads(cmd.InOrStdin(), f)
			if err != nil {
				return err
			}
			for i, payload := range payloads {
				fields, err := s.codec.ParseRaw(payload)
				if err != nil {
					return fmt.Errorf("parsing message %d: %w", i+1, err)
				}
				if err := writeJSON(cmd.OutOrStdout(), toRawFields(fields), true); err != nil {
					return err
				}
			}
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

// readPayloads reads the input and splits it into messages: the whole input
// without --frame, otherwise one entry per frame.
func readPayloads(stdin io.Reader, f *ioFlags) ([][]byte, error) {
	in, err := f.open(stdin)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	data, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	data, err = parseBytes(f.format, data)
	if err != nil {
		return nil, err
	}
	if !f.frame {
		return [][]byte{data}, nil
	}

	opts, err := f.framingOptions()
	if err != nil {
		return nil, err
	}
	reader := framing.NewReader(bytes.NewReader(data), opts...)
	var payloads [][]byte
	for {
		msg, err := reader.ReadMessage()
		if errors.Is(err, io.EOF) {
			return payloads, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading frame %d: %w", len(payloads)+1, err)
		}
		payloads = append(payloads, msg)
	}
}

func writeJSON(w io.Writer, v interface{}, indent bool) error {
	var (
		data []byte
		err  error
	)
	if indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("writing JSON: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
