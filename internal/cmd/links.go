package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/termdock/internal/domain/links"
	"github.com/GriffinCanCode/termdock/internal/providers/contentstore"
)

type linksFlags struct {
	json    bool
	resolve bool
	dir     string
}

// foundLink is one detected link, optionally with its resolved action.
type foundLink struct {
	Line   int           `json:"line"`
	Match  links.Match   `json:"match"`
	Action *links.Action `json:"action,omitempty"`
}

func newLinksCmd(global *globalFlags) *cobra.Command {
	flags := &linksFlags{}

	cmd := &cobra.Command{
		Use:   "links [file]",
		Short: "Detect links in text",
		Long: `Scan a file, or standard input, line by line with the link engine and
print every match. With --resolve each match is mapped to the action that
activating it would perform, using the content store when one is set.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", args[0], err)
				}
				defer f.Close()
				in = f
			}

			var resolver *links.Resolver
			if flags.resolve {
				cfg, err := loadConfig(cmd, global)
				if err != nil {
					return err
				}
				var store contentstore.Store
				if cfg.Terminal.ContentRoot != "" {
					store = contentstore.NewFS(cfg.Terminal.ContentRoot)
				}
				resolver = links.NewResolver(store, "")
			}

			found, err := scanLinks(cmd, in, links.NewEngine(nil), resolver, flags.dir)
			if err != nil {
				return err
			}
			return printLinks(cmd.OutOrStdout(), found, flags.json)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&flags.json, "json", false, "print matches as JSON")
	f.BoolVar(&flags.resolve, "resolve", false, "resolve each match to an action")
	f.StringVar(&flags.dir, "dir", "", "directory relative file links are resolved against")
	return cmd
}

func scanLinks(cmd *cobra.Command, in io.Reader, engine *links.Engine, resolver *links.Resolver, dir string) ([]foundLink, error) {
	found := make([]foundLink, 0)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)

	for n := 1; scanner.Scan(); n++ {
		for _, m := range engine.FindLinks(strings.TrimSuffix(scanner.Text(), "\r")) {
			fl := foundLink{Line: n, Match: m}
			if resolver != nil {
				action := resolver.Resolve(cmd.Context(), m, dir)
				fl.Action = &action
			}
			found = append(found, fl)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return found, nil
}

func printLinks(w io.Writer, found []foundLink, asJSON bool) error {
	if asJSON {
		data, err := sonic.ConfigStd.MarshalIndent(found, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	for _, fl := range found {
		m := fl.Match
		target := m.Value
		if m.HasPosition() {
			target = fmt.Sprintf("%s:%d", target, m.Line)
			if m.Column > 0 {
				target = fmt.Sprintf("%s:%d", target, m.Column)
			}
		}
		line := fmt.Sprintf("%d:%d-%d\t%s\t%s", fl.Line, m.Start, m.End, m.Kind, target)
		if fl.Action != nil {
			line += fmt.Sprintf("\t%s %s", fl.Action.Kind, fl.Action.Target)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
