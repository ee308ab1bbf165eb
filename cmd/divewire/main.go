// Command divewire inspects dive blobs from the command line: info
// prints the whole-dive fields, dump streams the samples as JSON lines.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/arloliu/divewire"
	"github.com/arloliu/divewire/compress"
	"github.com/arloliu/divewire/errs"
	"github.com/arloliu/divewire/format"
	"github.com/arloliu/divewire/sample"
)

var families = map[string]format.Family{
	"divesystem":  format.FamilyDivesystemIDive,
	"divesoft":    format.FamilyDivesoftFreedom,
	"iconhd":      format.FamilyMaresIconHD,
	"genius":      format.FamilyMaresGenius,
	"atom2":       format.FamilyOceanicAtom2,
	"vtpro":       format.FamilyOceanicVTPro,
	"veo250":      format.FamilyOceanicVeo250,
	"mclean":      format.FamilyMcLeanExtreme,
	"sporasub":    format.FamilySporasubSP2,
	"d9":          format.FamilySuuntoD9,
	"vyper":       format.FamilySuuntoVyper,
	"solution":    format.FamilySuuntoSolution,
	"ostc":        format.FamilyHwOstc,
	"edy":         format.FamilyCressiEdy,
	"sensus":      format.FamilyReefnetSensus,
	"uwatec":      format.FamilyUwatecSmart,
}

func familyNames() string {
	names := make([]string, 0, len(families))
	for name := range families {
		names = append(names, name)
	}

	return strings.Join(names, ", ")
}

func openDive(c *cli.Context) (divewire.SummaryInfo, []sample.Sample, error) {
	family, ok := families[c.String("family")]
	if !ok {
		return divewire.SummaryInfo{}, nil, fmt.Errorf("unknown family %q (one of: %s)",
			c.String("family"), familyNames())
	}

	data, err := os.ReadFile(c.Args().First())
	if err != nil {
		return divewire.SummaryInfo{}, nil, err
	}
	if data, err = compress.Decode(data); err != nil {
		return divewire.SummaryInfo{}, nil, err
	}

	p, err := divewire.NewParser(family, uint32(c.Uint("model")), data,
		divewire.WithWarnFunc(log.Printf))
	if err != nil {
		return divewire.SummaryInfo{}, nil, err
	}

	rec := &sample.Recorder{}
	if err := p.Samples(rec); err != nil {
		return divewire.SummaryInfo{}, nil, err
	}

	info, err := divewire.Summary(p)
	if err != nil {
		return divewire.SummaryInfo{}, nil, err
	}

	return info, rec.Samples, nil
}

func main() {
	app := &cli.App{
		Name:  "divewire",
		Usage: "inspect dive computer blobs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "family",
				Usage:    "parser family: " + familyNames(),
				Required: true,
			},
			&cli.UintFlag{
				Name:  "model",
				Usage: "model id within the family",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "info",
				Usage:     "print the whole-dive fields",
				ArgsUsage: "<blob-file>",
				Action: func(c *cli.Context) error {
					info, _, err := openDive(c)
					if err != nil {
						return err
					}

					enc := json.NewEncoder(os.Stdout)
					enc.SetIndent("", "  ")

					return enc.Encode(info)
				},
			},
			{
				Name:      "dump",
				Usage:     "stream the samples as JSON lines",
				ArgsUsage: "<blob-file>",
				Action: func(c *cli.Context) error {
					_, samples, err := openDive(c)
					if err != nil {
						return err
					}

					enc := json.NewEncoder(os.Stdout)
					for _, s := range samples {
						if err := enc.Encode(s); err != nil {
							return err
						}
					}
					log.Println("samples:", len(samples))

					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		if errors.Is(err, errs.ErrDataFormat) {
			log.Println("blob is not a valid dive for this family")
		}
		log.Fatal(err)
	}
}
