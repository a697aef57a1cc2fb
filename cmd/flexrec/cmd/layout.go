package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pavanmanishd/flexrec"
)

func newLayoutCmd() *cobra.Command {
	layoutCmd := &cobra.Command{
		Use:   "layout",
		Short: "Print the memory layout of a record",
		Long: `Print the memory layout of a record whose elements have the given size
and alignment. With --field-value the element shape is that of a field value.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			size, _ := cmd.Flags().GetUint64("elem-size")
			align, _ := cmd.Flags().GetUint64("elem-align")
			length, _ := cmd.Flags().GetUint16("length")

			var (
				l   flexrec.Layout
				err error
			)
			if fv, _ := cmd.Flags().GetBool("field-value"); fv {
				l, err = flexrec.LayoutOf[flexrec.FieldValue](length)
			} else {
				l, err = flexrec.ComputeLayout(uintptr(size), uintptr(align), length)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "size:   %d\n", l.Size)
			fmt.Fprintf(out, "align:  %d\n", l.Align)
			fmt.Fprintf(out, "id:     offset %d\n", l.IDOffset)
			fmt.Fprintf(out, "length: offset %d\n", l.LengthOffset)
			fmt.Fprintf(out, "data:   offset %d, %d x %d bytes\n", l.ArrayOffset, l.Length, l.ElemSize)
			fmt.Fprintf(out, "tail padding: %d\n", l.Size-l.ArrayOffset-l.ArraySize())
			return nil
		},
	}

	layoutCmd.Flags().Uint64("elem-size", 8, "Element size in bytes")
	layoutCmd.Flags().Uint64("elem-align", 8, "Element alignment in bytes")
	layoutCmd.Flags().Uint16("length", 4, "Number of elements")
	layoutCmd.Flags().Bool("field-value", false, "Use the field value element shape")
	return layoutCmd
}
