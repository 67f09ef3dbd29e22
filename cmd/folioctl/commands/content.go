package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"github.com/tendant/folio/pkg/folio"
)

func newSeedCmd() *cobra.Command {
	var (
		file string
		keep bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load sections from a JSON file",
		Long: `Load a content.json style object into the store, one section per
top-level key.

By default the table is cleared first. With --keep the sections are upserted
over what is there and other sections survive.`,
		Example: `  folioctl seed --file content.json
  cat content.json | folioctl seed --file - --keep`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			entries, err := decodeSections(data)
			if err != nil {
				return err
			}

			svc, closeStore, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			if keep {
				err = svc.UpsertMany(cmd.Context(), entries)
			} else {
				err = svc.Reseed(cmd.Context(), entries)
			}
			if err != nil {
				var upsertErr *folio.UpsertError
				if errors.As(err, &upsertErr) && len(upsertErr.Applied) > 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "Sections written before the failure: %v\n", upsertErr.Applied)
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d section(s): %v\n", len(entries), sortedKeys(entries))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", `JSON file to load ("-" for stdin)`)
	cmd.Flags().BoolVar(&keep, "keep", false, "upsert without clearing the table")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newDumpCmd() *cobra.Command {
	var compact bool

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print every section as one JSON object",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeStore, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			content, err := svc.GetAll(cmd.Context())
			if err != nil {
				var decodeErr *folio.DecodeError
				if !errors.As(err, &decodeErr) {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", decodeErr)
			}

			var out []byte
			if compact {
				out, err = json.Marshal(content)
			} else {
				out, err = json.MarshalIndent(content, "", "  ")
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().BoolVar(&compact, "compact", false, "print without indentation")
	return cmd
}

func newSetCmd() *cobra.Command {
	var merge bool

	cmd := &cobra.Command{
		Use:   "set KEY JSON",
		Short: "Write one section",
		Long: `Replace the document stored under KEY with JSON.

With --merge, JSON must be an object whose top-level fields are merged into
the existing document.`,
		Example: `  folioctl set hero '{"title":"Hi, I am Sam"}'
  folioctl set connect --merge '{"resumeUrl":"https://cdn.example.com/cv.pdf"}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, raw := args[0], []byte(args[1])
			if !json.Valid(raw) {
				return fmt.Errorf("value for %q is not valid JSON", key)
			}

			svc, closeStore, err := openService(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			if merge {
				var fields map[string]json.RawMessage
				if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
					return fmt.Errorf("--merge needs a JSON object")
				}
				partial := make(map[string]any, len(fields))
				for k, v := range fields {
					partial[k] = v
				}
				merged, err := svc.UpsertSingleMerged(cmd.Context(), key, partial)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(merged))
				return nil
			}

			if err := svc.UpsertMany(cmd.Context(), map[string]any{key: json.RawMessage(raw)}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", key)
			return nil
		},
	}

	cmd.Flags().BoolVar(&merge, "merge", false, "shallow-merge into the existing document")
	return cmd
}

// decodeSections splits a JSON object into raw per-section values.
func decodeSections(data []byte) (map[string]any, error) {
	var sections map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&sections); err != nil {
		return nil, fmt.Errorf("input must be a JSON object: %w", err)
	}
	if sections == nil {
		return nil, errors.New("input must be a JSON object")
	}

	entries := make(map[string]any, len(sections))
	for k, v := range sections {
		entries[k] = v
	}
	return entries, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func readAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return data, nil
}
