package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/David-Botos/tag-remediation/pkg/aggregate"
	"github.com/David-Botos/tag-remediation/pkg/filter"
	"github.com/David-Botos/tag-remediation/pkg/model"
)

// reportOutput is what `report` prints
type reportOutput struct {
	Source      string            `yaml:"source"`
	Fingerprint string            `yaml:"fingerprint"`
	Repairs     int               `yaml:"repaired_rows"`
	Coercions   int               `yaml:"unparsable_costs"`
	Filters     filter.Predicates `yaml:"filters,omitempty"`
	Matched     int               `yaml:"matched_rows"`
	Report      aggregate.Report  `yaml:"report"`
}

// addFilterFlags binds the row predicate flags
func addFilterFlags(cmd *cobra.Command, p *filter.Predicates) {
	cmd.Flags().StringVar(&p.Service, "service", "", "Only rows with this Service")
	cmd.Flags().StringVar(&p.Region, "region", "", "Only rows with this Region")
	cmd.Flags().StringVar(&p.Department, "department", "", "Only rows with this Department")
	cmd.Flags().StringVar(&p.Environment, "environment", "", "Only rows with this Environment")
	cmd.Flags().StringVar(&p.Tagged, "tagged", "", "Only rows with this Tagged value (Yes|No)")
}

func (c *cli) newReportCmd() *cobra.Command {
	var predicates filter.Predicates

	cmd := &cobra.Command{
		Use:   "report FILE",
		Short: "Print tag compliance and cost reports for an export as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dataCleaner, err := c.newCleaner()
			if err != nil {
				return err
			}
			metrics, _, err := c.newMetrics()
			if err != nil {
				return err
			}
			defer c.finishMetrics(cmd, metrics)

			result, err := c.loadFile(dataCleaner, args[0])
			if err != nil {
				metrics.ObserveLoadError(err)
				return fmt.Errorf("%s: %w", model.Categorize(err), err)
			}
			metrics.ObserveLoad(result)

			view := filter.Apply(result.Table, predicates)
			out := reportOutput{
				Source:      result.Source,
				Fingerprint: result.Fingerprint,
				Repairs:     len(result.Repairs),
				Coercions:   len(result.Coercions),
				Filters:     predicates,
				Matched:     view.Len(),
				Report:      aggregate.BuildReport(view),
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
			return enc.Close()
		},
	}
	addFilterFlags(cmd, &predicates)
	return cmd
}
