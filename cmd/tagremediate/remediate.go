package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/David-Botos/tag-remediation/pkg/export"
	"github.com/David-Botos/tag-remediation/pkg/model"
	"github.com/David-Botos/tag-remediation/pkg/remediation"
)

// remediateOutput is what `remediate` prints
type remediateOutput struct {
	Source   string                    `yaml:"source"`
	Proposed int                       `yaml:"proposed"`
	Apply    remediation.ApplyResult   `yaml:"apply"`
	Compare  remediation.CompareReport `yaml:"compare"`
	Export   string                    `yaml:"export,omitempty"`
}

// readEdits parses an edit batch file: either a YAML list of edits or a
// mapping with an "edits" list. Invalid edits are rejected by the session.
func readEdits(path string) ([]remediation.Edit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read edits file: %w", err)
	}

	var edits []remediation.Edit
	if err := yaml.Unmarshal(data, &edits); err != nil {
		var wrapped struct {
			Edits []remediation.Edit `yaml:"edits"`
		}
		if wrappedErr := yaml.Unmarshal(data, &wrapped); wrappedErr != nil {
			return nil, fmt.Errorf("failed to parse edits file: %w", err)
		}
		edits = wrapped.Edits
	}
	return edits, nil
}

func (c *cli) newRemediateCmd() *cobra.Command {
	var (
		editsPath string
		outPath   string
	)

	cmd := &cobra.Command{
		Use:   "remediate FILE",
		Short: "Apply an edit batch to an export and print the remediation impact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			edits, err := readEdits(editsPath)
			if err != nil {
				return err
			}

			dataCleaner, err := c.newCleaner()
			if err != nil {
				return err
			}
			metrics, _, err := c.newMetrics()
			if err != nil {
				return err
			}
			defer c.finishMetrics(cmd, metrics)

			recorder, closeRecorder, err := c.openRecorder(ctx)
			if err != nil {
				return fmt.Errorf("failed to open audit sink: %w", err)
			}
			defer closeRecorder()

			result, err := c.loadFile(dataCleaner, args[0])
			if err != nil {
				metrics.ObserveLoadError(err)
				return fmt.Errorf("%s: %w", model.Categorize(err), err)
			}
			metrics.ObserveLoad(result)

			session := c.newSession(recorder, metrics)
			if _, err := session.Initialize(ctx, result); err != nil {
				return err
			}

			applied, err := session.Apply(ctx, edits)
			if err != nil {
				return err
			}
			report, err := session.Compare()
			if err != nil {
				return err
			}

			out := remediateOutput{
				Source:   result.Source,
				Proposed: len(edits),
				Apply:    applied,
				Compare:  report,
			}

			if outPath != "" {
				if err := writeExport(outPath, session.Edited()); err != nil {
					return err
				}
				c.logger.Info("Wrote remediated export", zap.String("path", outPath))
				out.Export = outPath
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("failed to write result: %w", err)
			}
			return enc.Close()
		},
	}
	cmd.Flags().StringVar(&editsPath, "edits", "", "YAML file with the edit batch")
	cmd.Flags().StringVar(&outPath, "out", "", "Write the edited data to this file (e.g. "+export.EditedFileName+")")
	_ = cmd.MarkFlagRequired("edits")
	return cmd
}

// writeExport writes a view to path
func writeExport(path string, v model.View) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, closeErr)
		}
	}()

	if err := export.Write(f, v); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
