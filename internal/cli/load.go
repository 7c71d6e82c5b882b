package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tilestyle/pkg/style"
)

// loadFlags holds flags for the load command.
type loadFlags struct {
	viewFlags
	json bool
}

// loadCommand creates the load command.
func (c *CLI) loadCommand() *cobra.Command {
	var flags loadFlags

	cmd := &cobra.Command{
		Use:   "load <style>",
		Short: "Load a stylesheet and print its evaluated layers",
		Long: `Load a stylesheet from a file or URL, fetch every source, tile, sprite and
glyph range the view needs, and print the computed properties of each layer.

The style may be a local path or an http(s), file or mapbox:// URL.`,
		Example: `  tilestyle load style.json --zoom 4 --center 13.4,52.5
  tilestyle load mapbox://styles/mapbox/streets-v8 --class night --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLoad(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&flags.json, "json", false, "print the result as JSON")

	return cmd
}

func (c *CLI) runLoad(ctx context.Context, out, status io.Writer, ref string, flags loadFlags) error {
	view, err := flags.view()
	if err != nil {
		return err
	}
	if flags.pixelRatio > 0 {
		c.Config.PixelRatio = flags.pixelRatio
	}

	ctx, cancel := context.WithTimeout(ctx, flags.timeout)
	defer cancel()

	e, err := c.newEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	prog := newProgress(c.Logger)
	spin := newSpinner(ctx, status, "Loading "+ref)
	spin.Start()

	if err := e.open(ctx, ref, flags.classes); err != nil {
		spin.Stop()
		return fmt.Errorf("load style: %w", err)
	}
	spin.SetMessage("Fetching resources")
	settleErr := e.settle(ctx, view, nil)
	spin.Stop()

	snap := e.style.Snapshot()
	prog.done("style evaluated", "layers", len(snap.Layers), "sources", len(snap.Sources))

	if flags.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			return err
		}
	} else {
		printSnapshot(out, snap)
	}

	if errors.Is(settleErr, context.DeadlineExceeded) {
		return fmt.Errorf("timed out after %s waiting for resources", flags.timeout)
	}
	return settleErr
}

// printSnapshot prints a summary line, the sources table and the layers
// table.
func printSnapshot(w io.Writer, snap style.Snapshot) {
	p := printer{w}
	name := snap.Name
	if name == "" {
		name = snap.ID
	}
	if snap.Loaded {
		p.success("%s", StyleTitle.Render(name))
	} else {
		p.warning("%s is not fully loaded", name)
	}
	if len(snap.Classes) > 0 {
		p.keyValue("Classes", fmt.Sprint(snap.Classes))
	}
	if snap.Sprite != "" {
		p.keyValue("Sprite", snap.Sprite)
	}
	if snap.Glyphs != "" {
		p.keyValue("Glyphs", snap.Glyphs)
	}
	if snap.LastError != "" {
		p.error("%s", snap.LastError)
	}
	if len(snap.Sources) > 0 {
		fmt.Fprintln(w, sourcesTable(snap.Sources))
	}
	if len(snap.Layers) > 0 {
		fmt.Fprintln(w, layersTable(snap.Layers))
	}
}
