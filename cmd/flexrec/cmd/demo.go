package cmd

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/pavanmanishd/flexrec"
)

func newDemoCmd(a *app) *cobra.Command {
	demoCmd := &cobra.Command{
		Use:   "demo",
		Short: "Build, mutate and free a record of field values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetUint32("id")
			length, _ := cmd.Flags().GetUint16("length")
			showMetrics, _ := cmd.Flags().GetBool("metrics")

			tracker := flexrec.NewTrackingAllocator(a.allocator)
			out := cmd.OutOrStdout()
			if err := runDemo(out, tracker, a, id, length); err != nil {
				return err
			}
			if showMetrics {
				return writeMetrics(out, tracker, a.config.Metrics.Namespace)
			}
			return nil
		},
	}

	demoCmd.Flags().Uint32("id", 5, "Record id")
	demoCmd.Flags().Uint16("length", 4, "Number of elements")
	demoCmd.Flags().Bool("metrics", false, "Print allocator metrics in Prometheus text format")
	return demoCmd
}

func runDemo(out io.Writer, tracker *flexrec.TrackingAllocator, a *app, id uint32, length uint16) error {
	rec, err := flexrec.New(id, length, func(uint16) flexrec.FieldValue {
		return flexrec.Invalid()
	}, flexrec.WithAllocator(tracker), flexrec.WithLogger(a.logger))
	if err != nil {
		return fmt.Errorf("failed to create record: %w", err)
	}
	defer func() {
		rec.Free()
		fmt.Fprintf(out, "Outstanding allocations: %d\n", tracker.Outstanding())
	}()

	fmt.Fprintf(out, "Id: %d\n", rec.ID())
	fmt.Fprintf(out, "Length: %d\n", rec.Len())
	fmt.Fprintf(out, "Layout: %s\n", rec.Layout())

	for i := range rec.Len() {
		rec.Set(i, flexrec.IntValue(int32(i)))
	}
	for i, v := range rec.All() {
		fmt.Fprintf(out, "Value at %d is %d\n", i, v.Int())
	}

	rec.UpdateAll(func(elems []flexrec.FieldValue) {
		for i := range elems {
			elems[i].SetInt(elems[i].Int() * 2)
		}
	})

	data := make([]int32, 0, rec.Len())
	rec.View(func(elems []flexrec.FieldValue) {
		for _, v := range elems {
			data = append(data, v.Int())
		}
	})
	fmt.Fprintf(out, "Data: %v\n", data)
	return nil
}

func writeMetrics(out io.Writer, tracker *flexrec.TrackingAllocator, namespace string) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(flexrec.NewCollector(tracker, namespace)); err != nil {
		return fmt.Errorf("failed to register collector: %w", err)
	}
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(out, mf); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}
