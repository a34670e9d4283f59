package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/stsci-crds/crds-go/internal/buildinfo"
	"github.com/stsci-crds/crds-go/internal/cache"
	"github.com/stsci-crds/crds-go/internal/config"
	"github.com/stsci-crds/crds-go/internal/locate"
	"github.com/stsci-crds/crds-go/internal/mapping"
	"github.com/stsci-crds/crds-go/internal/query"
	"github.com/stsci-crds/crds-go/internal/validate"
	"github.com/stsci-crds/crds-go/internal/value"
)

func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadKDL(".")
	if err != nil {
		return nil, fmt.Errorf("loading .crds.kdl: %w", err)
	}

	override := config.Default()
	if obs := c.String("observatory"); obs != "" {
		override.Observatory = obs
	}
	if c.Bool("bypass-checksum") {
		override.BypassChecksum = true
	}
	if mp := c.String("mappath"); mp != "" {
		override.MapPath = mp
	}
	if rp := c.String("refpath"); rp != "" {
		override.RefPath = rp
	}
	return cfg.Merge(override), nil
}

func newMappings(cfg *config.Config) (*cache.Mappings, *locate.Locator) {
	loc := locate.New()
	if cfg.MapPath != "" {
		loc.MapPath = cfg.MapPath
	}
	if cfg.RefPath != "" {
		loc.RefPath = cfg.RefPath
	}
	return cache.NewMappings(loc, locate.NewTPNSource(), cfg.BypassChecksum), loc
}

func main() {
	app := &cli.App{
		Name:                   "crds",
		Usage:                  "load calibration reference data mappings and select best references",
		Version:                buildinfo.Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "observatory", Aliases: []string{"o"}, Usage: "observatory name override"},
			&cli.BoolFlag{Name: "bypass-checksum", Usage: "skip sha1sum verification on load"},
			&cli.StringFlag{Name: "mappath", Usage: "override CRDS_MAPPATH"},
			&cli.StringFlag{Name: "refpath", Usage: "override CRDS_REFPATH"},
		},
		Commands: []*cli.Command{
			bestrefsCommand(),
			validateCommand(),
			rewriteChecksumCommand(),
			mappingNamesCommand(),
			missingCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "crds: %v\n", err)
		os.Exit(1)
	}
}

func bestrefsCommand() *cli.Command {
	return &cli.Command{
		Name:      "bestrefs",
		Usage:     "resolve the best reference for every reftype an instrument declares",
		ArgsUsage: "<pipeline.pmap>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "header", Aliases: []string{"H"}, Usage: "header entries as KEY=VALUE, repeatable"},
			&cli.BoolFlag{Name: "json", Usage: "emit the result as JSON"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("bestrefs requires exactly one <pipeline.pmap> argument", 2)
			}
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			hdr, err := parseHeaderFlags(c.StringSlice("header"))
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}

			mappings, _ := newMappings(cfg)
			refs, err := query.BestReferences(mappings, c.Args().First(), hdr)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return printReftypeMap(c, refs)
		},
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "structurally validate a reference mapping's selector keys against declared values",
		ArgsUsage: "<reference.rmap>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("validate requires exactly one <reference.rmap> argument", 2)
			}
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			basename := c.Args().First()
			mappings, _ := newMappings(cfg)
			ref, err := mappings.LoadReference(basename)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}

			var declared map[string]map[string]bool
			_, instrument, reftype, _ := mapping.ParseBasename(basename)
			if values, err := locate.NewTPNSource().ValidValues(instrument, reftype); err == nil && values != nil {
				declared = make(map[string]map[string]bool, len(values))
				for k, vs := range values {
					set := make(map[string]bool, len(vs))
					for _, v := range vs {
						set[v] = true
					}
					declared[k] = set
				}
			}

			rpt := validate.Tree(ref.Root, declared)
			for _, w := range rpt.Warnings {
				fmt.Fprintf(os.Stderr, "warning: %s\n", w)
			}
			for _, e := range rpt.Errors {
				fmt.Fprintf(os.Stderr, "error: %s\n", e)
			}
			if !rpt.Valid() {
				return cli.Exit(fmt.Sprintf("%s: %d validation error(s)", basename, len(rpt.Errors)), 1)
			}
			fmt.Printf("%s: ok\n", basename)
			return nil
		},
	}
}

func rewriteChecksumCommand() *cli.Command {
	return &cli.Command{
		Name:      "rewrite-checksum",
		Usage:     "recompute and rewrite a mapping file's sha1sum field",
		ArgsUsage: "<mapping-file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"O"}, Usage: "output path; defaults to overwriting the input"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("rewrite-checksum requires exactly one <mapping-file> argument", 2)
			}
			path := c.Args().First()
			content, err := os.ReadFile(path)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			rewritten, err := mapping.RewriteChecksum(string(content))
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			out := c.String("output")
			if out == "" {
				out = path
			}
			if err := os.WriteFile(out, []byte(rewritten), 0o644); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			fmt.Printf("rewrote checksum for %s -> %s\n", path, out)
			return nil
		},
	}
}

func mappingNamesCommand() *cli.Command {
	return &cli.Command{
		Name:      "mapping-names",
		Usage:     "list the transitive closure of mapping basenames reachable from a pipeline",
		ArgsUsage: "<pipeline.pmap>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("mapping-names requires exactly one <pipeline.pmap> argument", 2)
			}
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			mappings, _ := newMappings(cfg)
			p, err := mappings.LoadPipeline(c.Args().First())
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			names := p.MappingNames()
			sort.Strings(names)
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		},
	}
}

func missingCommand() *cli.Command {
	return &cli.Command{
		Name:      "missing",
		Usage:     "report mapping and reference basenames reachable from a pipeline that do not exist on disk",
		ArgsUsage: "<pipeline.pmap>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("missing requires exactly one <pipeline.pmap> argument", 2)
			}
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			mappings, loc := newMappings(cfg)
			p, err := mappings.LoadPipeline(c.Args().First())
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			for _, m := range p.MissingMappings(loc.Exists) {
				fmt.Printf("missing mapping: %s\n", m)
			}
			for _, r := range p.MissingReferences(loc.Exists) {
				fmt.Printf("missing reference: %s\n", r)
			}
			for _, r := range orphanedReferences(p, loc) {
				fmt.Printf("orphaned reference: %s\n", r)
			}
			return nil
		},
	}
}

// orphanedReferences reports reference basenames actually present under
// the pipeline's observatory reference root that no mapping in the
// pipeline declares, the complement of MissingReferences's
// declared-but-absent check.
func orphanedReferences(p *mapping.Pipeline, loc *locate.Locator) []string {
	onDisk, err := loc.GlobReferences(p.Header.Observatory, "*")
	if err != nil {
		return nil
	}
	declared := make(map[string]bool)
	for _, name := range p.ReferenceNames() {
		declared[name] = true
	}
	var out []string
	for _, name := range onDisk {
		if !declared[name] {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func parseHeaderFlags(entries []string) (value.Header, error) {
	hdr := make(value.Header, len(entries))
	for _, e := range entries {
		k, v, ok := strings.Cut(e, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --header entry %q, expected KEY=VALUE", e)
		}
		hdr[strings.ToUpper(k)] = v
	}
	return hdr, nil
}

func printReftypeMap(c *cli.Context, refs map[string]string) error {
	if c.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(refs)
	}
	reftypes := make([]string, 0, len(refs))
	for rt := range refs {
		reftypes = append(reftypes, rt)
	}
	sort.Strings(reftypes)
	for _, rt := range reftypes {
		fmt.Printf("%s: %s\n", rt, refs[rt])
	}
	return nil
}
