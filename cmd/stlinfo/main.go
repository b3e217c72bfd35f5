// Command stlinfo prints what the morph engine sees in an STL file.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/edipowladeo/enxame/stl"
)

func main() {
	show := flag.Int("show", 10, "Number of unique vertices to print")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: stlinfo [-show n] file.stl\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("%v: %v", stl.ErrIO, err)
	}
	mesh, err := stl.Decode(data)
	if err != nil {
		log.Fatal(err)
	}
	unique := stl.Dedup(mesh.Vertices)

	fmt.Printf("file:       %s (%d bytes)\n", path, len(data))
	fmt.Printf("format:     %s\n", mesh.Format)
	fmt.Printf("triangles:  %d parsed, %d declared\n", mesh.Triangles, mesh.DeclaredTriangles)
	if mesh.Truncated {
		fmt.Println("warning:    payload is shorter than the header declares")
	}
	fmt.Printf("vertices:   %d raw, %d unique\n", len(mesh.Vertices), len(unique))

	if len(unique) == 0 {
		return
	}
	lo, hi := stl.Bounds(unique)
	fmt.Printf("bounds:     min (%g, %g, %g)\n", lo.X, lo.Y, lo.Z)
	fmt.Printf("            max (%g, %g, %g)\n", hi.X, hi.Y, hi.Z)
	fmt.Printf("size:       (%g, %g, %g)\n", hi.X-lo.X, hi.Y-lo.Y, hi.Z-lo.Z)

	n := min(*show, len(unique))
	fmt.Printf("first %d unique vertices:\n", n)
	for i, v := range unique[:n] {
		fmt.Printf("  %4d  % .6g  % .6g  % .6g\n", i, v.X, v.Y, v.Z)
	}
}
