package main

import (
	"fmt"

	"github.com/philipparndt/stl2vrml/pkg/analysis"
	"github.com/philipparndt/stl2vrml/pkg/vrml"
	"github.com/spf13/cobra"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file.stl>",
		Short: "Display general information about an STL file",
		Long: `Show the detected STL format, triangle count, surface area, bounding box,
edge statistics and the viewpoint a conversion would use.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runInfo(cmd, args[0])
		},
	}
}

func runInfo(cmd *cobra.Command, filename string) error {
	result, err := analysis.AnalyzeFile(filename)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "STL File Information")
	fmt.Fprintln(out, "====================")
	if result.Name != "" {
		fmt.Fprintf(out, "Name: %s\n", result.Name)
	}
	fmt.Fprintf(out, "File: %s\n", filename)
	fmt.Fprintf(out, "Format: %s\n\n", result.Mode)

	fmt.Fprintln(out, "Model Statistics:")
	fmt.Fprintf(out, "  Triangles: %d\n", result.TriangleCount)
	fmt.Fprintf(out, "  Edges: %d\n", result.EdgeCount)
	fmt.Fprintf(out, "  Surface Area: %.6f square units\n", result.SurfaceArea)
	if result.NonFinite > 0 {
		fmt.Fprintf(out, "  Non-finite vertices: %d\n", result.NonFinite)
	}
	fmt.Fprintln(out)

	if result.TriangleCount == 0 {
		fmt.Fprintln(out, "The model has no triangles.")
		return nil
	}

	fmt.Fprintln(out, "Bounding Box:")
	fmt.Fprintf(out, "  Min: %s\n", analysis.FormatVector(result.BoundingBox.Min))
	fmt.Fprintf(out, "  Max: %s\n", analysis.FormatVector(result.BoundingBox.Max))
	fmt.Fprintf(out, "  Center: %s\n\n", analysis.FormatVector(result.BoundingBox.Center()))

	fmt.Fprintln(out, "Dimensions:")
	fmt.Fprintf(out, "  Width (X): %.6f units\n", result.Dimensions.X)
	fmt.Fprintf(out, "  Depth (Y): %.6f units\n", result.Dimensions.Y)
	fmt.Fprintf(out, "  Height (Z): %.6f units\n", result.Dimensions.Z)
	fmt.Fprintf(out, "  Diagonal: %.6f units\n\n", result.BoundingBox.Diagonal())

	fmt.Fprintln(out, "Edge Lengths:")
	fmt.Fprintf(out, "  Minimum: %.6f units\n", result.MinEdgeLength)
	fmt.Fprintf(out, "  Maximum: %.6f units\n", result.MaxEdgeLength)
	fmt.Fprintf(out, "  Average: %.6f units\n\n", result.AvgEdgeLength)

	fmt.Fprintf(out, "VRML Viewpoint: %s\n", analysis.FormatVector(vrml.CameraPosition(result.BoundingBox)))
	return nil
}
