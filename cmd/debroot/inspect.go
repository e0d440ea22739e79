package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/etnz/debroot/deb"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	var showformat, contents, control bool
	cmd := &cobra.Command{
		Use:   "inspect <deb>",
		Short: "Show the layout and control data of a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			c, err := deb.ReadPackage(f)
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			w := cmd.OutOrStdout()
			switch {
			case showformat:
				_, err = io.WriteString(w, c.ShowFormat())
			case contents:
				for _, h := range c.DataEntries {
					fmt.Fprintln(w, formatEntry(h))
				}
			case control:
				_, err = w.Write(c.Control)
			default:
				printSummary(w, c)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&showformat, "showformat", false, "print package and version like dpkg-deb -W")
	cmd.Flags().BoolVar(&contents, "contents", false, "list the data tarball")
	cmd.Flags().BoolVar(&control, "control", false, "print the control file")
	cmd.MarkFlagsMutuallyExclusive("showformat", "contents", "control")
	return cmd
}

// Special permission bits of a tar header mode.
const (
	modeSetuid = 04000
	modeSetgid = 02000
	modeSticky = 01000
)

// formatEntry renders a tar entry like tar -tv.
func formatEntry(h deb.TarHeader) string {
	return fmt.Sprintf("%s %s/%s %8d %s %s",
		modeString(h), owner(h.Uname, h.Uid), owner(h.Gname, h.Gid), h.Size,
		h.ModTime.UTC().Format("2006-01-02 15:04"), h.Name)
}

// modeString renders a mode the way tar and ls do: "s", "S", "t" or "T"
// in the execute slot of a special bit.
func modeString(h deb.TarHeader) string {
	b := []byte(fs.FileMode(h.Mode).Perm().String())
	if h.Kind == deb.KindDirectory {
		b[0] = 'd'
	}
	special := func(bit int64, i int, set byte) {
		if h.Mode&bit == 0 {
			return
		}
		if b[i] == 'x' {
			b[i] = set
		} else {
			b[i] = set - 'a' + 'A'
		}
	}
	special(modeSetuid, 3, 's')
	special(modeSetgid, 6, 's')
	special(modeSticky, 9, 't')
	return string(b)
}

func owner(name string, id int) string {
	if name != "" {
		return name
	}
	return fmt.Sprint(id)
}

func printSummary(w io.Writer, c *deb.Contents) {
	fmt.Fprintln(w, " new Debian package, version 2.0.")
	for _, m := range c.Members {
		fmt.Fprintf(w, " %-16s %10d bytes\n", m.Name, m.Size)
	}
	for _, h := range c.ControlEntries {
		fmt.Fprintf(w, " %10d bytes %s\n", h.Size, h.Name)
	}
	for _, l := range strings.Split(strings.TrimSuffix(string(c.Control), "\n"), "\n") {
		fmt.Fprintf(w, " %s\n", l)
	}
}
