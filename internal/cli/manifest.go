package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/drawsync/pkg/errors"
	"github.com/matzehuels/drawsync/pkg/manifest"
)

// manifestCommand creates the manifest management command.
func (c *CLI) manifestCommand() *cobra.Command {
	var sopts storeOpts

	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Inspect or clear the sync manifest of a document",
	}
	cmd.PersistentFlags().StringVar(&sopts.target, "store", "", "manifest store: file (default), redis://..., mongodb://...")

	cmd.AddCommand(c.manifestShowCommand(&sopts))
	cmd.AddCommand(c.manifestPathCommand(&sopts))
	cmd.AddCommand(c.manifestClearCommand(&sopts))

	return cmd
}

// manifestShowCommand creates the "manifest show" subcommand.
func (c *CLI) manifestShowCommand(sopts *storeOpts) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "show <document>",
		Short: "Print the recorded pages of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openStore(cmd.Context(), *sopts)
			if err != nil {
				return err
			}
			defer store.Close()

			m, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if raw {
				data, err := manifest.Marshal(m)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}

			out := newPrinter(cmd.OutOrStdout())
			if len(m) == 0 {
				out.info("No manifest recorded for %s", filepath.Base(args[0]))
				return nil
			}
			out.keyValue("Location", store.Location(args[0]))
			out.keyValue("Pages", fmt.Sprintf("%d", len(m)))
			for _, p := range m.Pages() {
				out.keyValue(fmt.Sprintf("  %d", p.Index), p.Name+" "+StyleDim.Render(shortHash(p.Hash)))
				out.file(p.Path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "json", false, "print the manifest as stored JSON")

	return cmd
}

// manifestPathCommand creates the "manifest path" subcommand.
func (c *CLI) manifestPathCommand(sopts *storeOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "path <document>",
		Short: "Print where the manifest of a document is stored",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openStore(cmd.Context(), *sopts)
			if err != nil {
				return err
			}
			defer store.Close()

			fmt.Fprintln(cmd.OutOrStdout(), store.Location(args[0]))
			return nil
		},
	}
}

// manifestClearCommand creates the "manifest clear" subcommand.
func (c *CLI) manifestClearCommand(sopts *storeOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <document>",
		Short: "Delete the manifest so the next sync exports every page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openStore(cmd.Context(), *sopts)
			if err != nil {
				return err
			}
			defer store.Close()

			out := newPrinter(cmd.OutOrStdout())
			m, err := store.Load(cmd.Context(), args[0])
			if err != nil && !isCorrupt(err) {
				return err
			}
			if err == nil && len(m) == 0 {
				out.info("Manifest is empty")
				return nil
			}

			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			out.success("Cleared manifest of %s", filepath.Base(args[0]))
			out.detail("Location: %s", store.Location(args[0]))
			return nil
		},
	}
}

// isCorrupt reports whether err means the stored manifest cannot be decoded.
// Clearing such a manifest is the way to recover from it.
func isCorrupt(err error) bool {
	return errors.Is(err, errors.ErrCodeManifestCorrupt)
}
