package main

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/andreyvit/cobj/calib"
	"github.com/spf13/cobra"
)

type a2lInfoFlags struct {
	a2l        string
	s19, hex   []string
	values     []string
	bigEndian  bool
	maxOverlap uint64
	noLayout   bool
}

func newA2LInfoCmd(a *app) *cobra.Command {
	var f a2lInfoFlags
	cmd := &cobra.Command{
		Use:   "a2l-info --a2l FILE [--s19 FILE]... [--hex FILE]...",
		Short: "Check the memory layout of an A2L description and read calibration values",
		Long: "Lists every CHARACTERISTIC and AXIS_PTS in address order with its size, reporting\n" +
			"gaps and overlaps between them. With firmware images, --value prints the value of\n" +
			"the named objects.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.a2lInfo(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.a2l, "a2l", "", "A2L description (required)")
	cmd.Flags().StringSliceVar(&f.s19, "s19", nil, "Motorola S-record firmware image")
	cmd.Flags().StringSliceVar(&f.hex, "hex", nil, "Intel HEX firmware image")
	cmd.Flags().StringSliceVar(&f.values, "value", nil, "print the value of this CHARACTERISTIC or AXIS_PTS")
	cmd.Flags().BoolVar(&f.bigEndian, "big-endian", false, "decode values as big-endian (default little-endian)")
	cmd.Flags().Uint64Var(&f.maxOverlap, "max-overlap", 0, "ignore overlaps larger than this many bytes (0 means 10000)")
	cmd.Flags().BoolVar(&f.noLayout, "no-layout", false, "skip the layout listing")
	_ = cmd.MarkFlagRequired("a2l")
	return cmd
}

func (f a2lInfoFlags) inputs() []calib.Input {
	inputs := []calib.Input{{Name: f.a2l, Format: calib.FormatA2L}}
	for _, name := range f.s19 {
		inputs = append(inputs, calib.Input{Name: name, Format: calib.FormatS19})
	}
	for _, name := range f.hex {
		inputs = append(inputs, calib.Input{Name: name, Format: calib.FormatHex})
	}
	return inputs
}

func (a *app) a2lInfo(cmd *cobra.Command, f a2lInfoFlags) error {
	ctx := cmd.Context()
	inputs := f.inputs()
	for i := range inputs {
		mf, err := a.openFile(inputs[i].Name)
		if err != nil {
			return err
		}
		// parsers copy what they keep, so the data is only needed during Load
		defer mf.Close()
		inputs[i].Data = mf.Data()
	}
	p, err := calib.Load(ctx, inputs, calib.Options{Logger: a.logger, Limit: a.limit})
	if err != nil {
		return err
	}
	defer p.Close()

	w := cmd.OutOrStdout()
	layout := p.Index.Layout(calib.LayoutOptions{MaxOverlap: f.maxOverlap})
	if !f.noLayout {
		if _, err := layout.WriteTo(w); err != nil {
			return err
		}
	}
	a.logger.LogAttrs(ctx, slog.LevelInfo, "cotool: a2l layout",
		slog.Int("characteristics", p.Index.CharacteristicsList.Vector().Len()),
		slog.Int("axis_pts", p.Index.AxisPtsList.Vector().Len()),
		slog.Int("record_layouts", p.Index.RecordLayouts.Map().Len()),
		slog.Int("issues", len(layout.Issues)),
		slog.Int("image_bytes", p.Blocks.Size()),
		slog.Int64("used", p.Used()))

	if len(f.values) > 0 && p.Image == nil {
		return fmt.Errorf("--value needs a firmware image (--s19 or --hex)")
	}
	var order binary.ByteOrder = binary.LittleEndian
	if f.bigEndian {
		order = binary.BigEndian
	}
	for _, name := range f.values {
		if err := printValue(w, p, name, order); err != nil {
			return err
		}
	}
	return nil
}

// printValue prints scalars as numbers and everything else as hex.
func printValue(w io.Writer, p *calib.Project, name string, order binary.ByteOrder) error {
	v, err := p.Index.Scalar(name, p.Blocks, order)
	if err == nil {
		_, err = fmt.Fprintf(w, "%s = %g\n", name, v)
		return err
	}
	if !errors.Is(err, calib.ErrUnsupported) {
		return err
	}
	raw, err := p.Index.Raw(name, p.Blocks)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s = %s\n", name, hex.EncodeToString(raw))
	return err
}
