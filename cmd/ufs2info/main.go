// Command ufs2info inspects and extracts files from a UFS2 image without
// mounting it, the way the library's teacher shipped a read-only sqfs CLI
// (spec §2 DOMAIN STACK: cobra).
package main

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KarpelesLab/ufs2"
)

func main() {
	root := &cobra.Command{
		Use:   "ufs2info",
		Short: "Inspect and extract files from a UFS2 filesystem image",
	}
	root.AddCommand(lsCmd(), catCmd(), infoCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func openImage(imgPath string, rw bool) (*ufs2.Engine, *os.File, error) {
	flags := os.O_RDONLY
	if rw {
		flags = os.O_RDWR
	}
	f, err := os.OpenFile(imgPath, flags, 0)
	if err != nil {
		return nil, nil, err
	}
	e, err := ufs2.Open(f, rw)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return e, f, nil
}

// resolvePath walks a "/"-separated path from the root inode, component by
// component, through Engine.Lookup.
func resolvePath(e *ufs2.Engine, p string) (ufs2.InodeNumber, error) {
	inr := e.RootInodeNumber()
	p = strings.Trim(path.Clean("/"+p), "/")
	if p == "" {
		return inr, nil
	}
	for _, part := range strings.Split(p, "/") {
		next, err := e.Lookup(inr, part)
		if err != nil {
			return 0, err
		}
		inr = next
	}
	return inr, nil
}

func lsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <image> [path]",
		Short: "List a directory's entries",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dirPath := "/"
			if len(args) > 1 {
				dirPath = args[1]
			}
			e, f, err := openImage(args[0], false)
			if err != nil {
				return err
			}
			defer f.Close()

			dirInr, err := resolvePath(e, dirPath)
			if err != nil {
				return err
			}
			return e.Iter(dirInr, 0, func(ent ufs2.DirEntry) bool {
				if ent.Name != "." && ent.Name != ".." {
					attr, err := e.Attr(ent.Ino)
					if err != nil {
						fmt.Fprintf(cmd.OutOrStdout(), "%-30s (stat error: %v)\n", ent.Name, err)
						return true
					}
					mode := ufs2.UnixToMode(attr.Mode)
					fmt.Fprintf(cmd.OutOrStdout(), "%s %8d %s\n", mode, attr.Size, ent.Name)
				}
				return true
			})
		},
	}
}

func catCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat <image> <path>",
		Short: "Print a file's contents to stdout",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, f, err := openImage(args[0], false)
			if err != nil {
				return err
			}
			defer f.Close()

			inr, err := resolvePath(e, args[1])
			if err != nil {
				return err
			}
			attr, err := e.Attr(inr)
			if err != nil {
				return err
			}
			buf := make([]byte, attr.Size)
			if _, err := e.Read(inr, 0, buf); err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(buf)
			return err
		},
	}
}

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <image>",
		Short: "Print filesystem capacity summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, f, err := openImage(args[0], false)
			if err != nil {
				return err
			}
			defer f.Close()

			info := e.Info()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Block size:       %d bytes\n", info.Bsize)
			fmt.Fprintf(out, "Fragment size:    %d bytes\n", info.Fsize)
			fmt.Fprintf(out, "Blocks:           %d (%d free)\n", info.Blocks, info.BFree)
			fmt.Fprintf(out, "Inodes:           %d (%d free)\n", info.Files, info.FFree)
			return nil
		},
	}
}
